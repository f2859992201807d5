package weaviate

import (
	"github.com/weaviate/weaviate/entities/models"
)

// Property names shared by the schema, the query field list and the decoders.
const (
	propDocID                 = "docId"
	propName                  = "name"
	propTitle                 = "title"
	propDescription           = "description"
	propType                  = "type"
	propIndicatorLevel        = "indicatorLevel"
	propDimension             = "dimension"
	propIndustry              = "industry"
	propTags                  = "tags"
	propMaxScore              = "maxScore"
	propRegion                = "region"
	propApplicableSubject     = "applicableSubject"
	propFullText              = "fullText"
	propDirection             = "direction"
	propQuantitativeIndicator = "quantitativeIndicator"
	propQuantitativeDirection = "quantitativeDirection"
	propQuantitativeUnit      = "quantitativeUnit"
	propCreatedAt             = "createdAt"
)

func indicatorClass(name string) *models.Class {
	filterable := true
	return &models.Class{
		Class:       name,
		Description: "Risk indicator scored by behaviors.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: propDocID, DataType: []string{"text"}, Tokenization: "field", IndexFilterable: &filterable},
			{Name: propName, DataType: []string{"text"}, Tokenization: "word"},
			{Name: propDescription, DataType: []string{"text"}, Tokenization: "word"},
			{Name: propType, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propIndicatorLevel, DataType: []string{"int"}},
			{Name: propDimension, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propIndustry, DataType: []string{"text[]"}, Tokenization: "field"},
			{Name: propTags, DataType: []string{"text[]"}, Tokenization: "word"},
			{Name: propMaxScore, DataType: []string{"number"}},
		},
	}
}

func regulationClass(name string) *models.Class {
	filterable := true
	return &models.Class{
		Class:       name,
		Description: "Regulation clause with a directive stance.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: propDocID, DataType: []string{"text"}, Tokenization: "field", IndexFilterable: &filterable},
			{Name: propTitle, DataType: []string{"text"}, Tokenization: "word"},
			{Name: propType, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propDimension, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propIndustry, DataType: []string{"text[]"}, Tokenization: "field"},
			{Name: propTags, DataType: []string{"text[]"}, Tokenization: "word"},
			{Name: propRegion, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propApplicableSubject, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propFullText, DataType: []string{"text"}, Tokenization: "word"},
			{Name: propDirection, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propQuantitativeIndicator, DataType: []string{"number"}},
			{Name: propQuantitativeDirection, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propQuantitativeUnit, DataType: []string{"text"}, Tokenization: "field"},
			{Name: propCreatedAt, DataType: []string{"date"}},
		},
	}
}
