package etl

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/BartekS5/eventsync/pkg/models"
)

// maxReportedErrors caps how many schema violations end up in one error.
const maxReportedErrors = 5

// Validator checks transformed batches against a JSON Schema generated from
// the destination column list before anything is sent.
type Validator struct {
	schemas map[models.Shape]*gojsonschema.Schema
}

// NewValidator compiles one schema per shape. messageMaxLen bounds the
// message column.
func NewValidator(messageMaxLen int) (*Validator, error) {
	v := &Validator{schemas: make(map[models.Shape]*gojsonschema.Schema)}
	for _, s := range []models.Schema{models.ServerSchema, models.BrowserSchema} {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(batchSchema(s, messageMaxLen)))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", s.Shape, err)
		}
		v.schemas[s.Shape] = compiled
	}
	return v, nil
}

func batchSchema(s models.Schema, messageMaxLen int) map[string]interface{} {
	props := make(map[string]interface{}, len(s.Columns))
	for _, c := range s.Columns {
		def := map[string]interface{}{}
		switch c.Kind {
		case models.KindNumber:
			def["type"] = "number"
		case models.KindBool:
			def["type"] = "boolean"
		default:
			def["type"] = "string"
			if c.Name == "message" && messageMaxLen > 0 {
				def["maxLength"] = messageMaxLen
			}
		}
		props[c.Name] = def
	}
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type":                 "object",
			"properties":           props,
			"required":             s.Names(),
			"additionalProperties": false,
		},
	}
}

// ValidateBatch returns an error describing the first few violations.
func (v *Validator) ValidateBatch(shape models.Shape, records []models.Record) error {
	schema, ok := v.schemas[shape]
	if !ok {
		return fmt.Errorf("no schema for shape %q", shape)
	}
	if len(records) == 0 {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(records))
	if err != nil {
		return fmt.Errorf("failed to validate %s batch: %w", shape, err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for i, e := range result.Errors() {
		if i == maxReportedErrors {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(result.Errors())-maxReportedErrors))
			break
		}
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s batch failed validation: %s", shape, strings.Join(msgs, "; "))
}
