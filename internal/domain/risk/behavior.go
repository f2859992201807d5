package risk

import (
	"time"

	"github.com/google/uuid"
)

// Behavior is an observed organizational event. Rows are written by the
// ingestion side; the engine only reads them.
type Behavior struct {
	ID               string     `gorm:"column:id;primaryKey" json:"id"`
	ProjectID        uuid.UUID  `gorm:"type:uuid;column:project_id;not null;index" json:"project_id"`
	Description      string     `gorm:"column:description;type:text" json:"description"`
	Type             string     `gorm:"column:type" json:"type,omitempty"`
	Dimension        string     `gorm:"column:dimension" json:"dimension,omitempty"`
	Tags             []string   `gorm:"column:tags;serializer:json" json:"tags"`
	Status           string     `gorm:"column:status" json:"status"`
	QuantitativeData *float64   `gorm:"column:quantitative_data" json:"quantitative_data,omitempty"`
	BehaviorDate     *time.Time `gorm:"column:behavior_date" json:"behavior_date,omitempty"`
	Vector           []float32  `gorm:"column:vector;serializer:json" json:"vector,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;index" json:"created_at"`
}

func (Behavior) TableName() string { return "behaviors" }
