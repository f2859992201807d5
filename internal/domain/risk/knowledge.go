package risk

import "time"

// Indicator is a scoring target served by the knowledge-base search index.
type Indicator struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Type           string    `json:"type,omitempty"`
	IndicatorLevel int       `json:"indicator_level"`
	Dimension      string    `json:"dimension,omitempty"`
	Industry       []string  `json:"industry,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	MaxScore       *float64  `json:"max_score,omitempty"`
	NameVector     []float32 `json:"name_vector,omitempty"`
}

// Regulation is a rule source served by the knowledge-base search index.
type Regulation struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Type                  string     `json:"type,omitempty"`
	Dimension             string     `json:"dimension,omitempty"`
	Industry              []string   `json:"industry,omitempty"`
	Tags                  []string   `json:"tags,omitempty"`
	Region                string     `json:"region,omitempty"`
	ApplicableSubject     string     `json:"applicable_subject,omitempty"`
	FullText              string     `json:"full_text,omitempty"`
	Direction             string     `json:"direction,omitempty"`
	QuantitativeIndicator *float64   `json:"quantitative_indicator,omitempty"`
	QuantitativeDirection string     `json:"quantitative_direction,omitempty"`
	QuantitativeUnit      string     `json:"quantitative_unit,omitempty"`
	Vector                []float32  `json:"full_text_vector,omitempty"`
	CreatedAt             *time.Time `json:"created_at,omitempty"`
}
