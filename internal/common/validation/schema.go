// Package validation validates inbound request bodies against JSON schemas.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MatchRequestSchema constrains the POST /match body.
const MatchRequestSchema = `{
	"type": "object",
	"properties": {
		"ticketId": {"type": "string", "minLength": 1},
		"trade":    {"type": "string", "minLength": 1},
		"severity": {"type": "string"},
		"location": {
			"type": "object",
			"properties": {
				"latitude":  {"type": "number", "minimum": -90, "maximum": 90},
				"longitude": {"type": "number", "minimum": -180, "maximum": 180}
			},
			"required": ["latitude", "longitude"],
			"additionalProperties": false
		},
		"searchRadius": {"type": "number", "exclusiveMinimum": 0},
		"maxResults":   {"type": "integer", "minimum": 1, "maximum": 100},
		"filters": {
			"type": "object",
			"properties": {
				"minRating":              {"type": "number", "minimum": 0, "maximum": 5},
				"maxHourlyRate":          {"type": "number", "exclusiveMinimum": 0},
				"requireInsurance":       {"type": "boolean"},
				"requireBackgroundCheck": {"type": "boolean"},
				"availableOnly":          {"type": "boolean"}
			},
			"additionalProperties": false
		},
		"weights": {
			"type": "object",
			"properties": {
				"rating":       {"type": "number", "minimum": 0, "maximum": 1},
				"distance":     {"type": "number", "minimum": 0, "maximum": 1},
				"responseTime": {"type": "number", "minimum": 0, "maximum": 1}
			},
			"required": ["rating", "distance", "responseTime"],
			"additionalProperties": false
		}
	},
	"required": ["ticketId", "trade", "location"],
	"additionalProperties": false
}`

// AcceptRequestSchema constrains the POST /tickets/{id}/accept body.
const AcceptRequestSchema = `{
	"type": "object",
	"properties": {
		"contractorId": {"type": "string", "minLength": 1}
	},
	"required": ["contractorId"],
	"additionalProperties": false
}`

// CancelRequestSchema constrains the POST /tickets/{id}/cancel body.
const CancelRequestSchema = `{
	"type": "object",
	"properties": {
		"note": {"type": "string"}
	},
	"additionalProperties": false
}`

// ValidateDocument validates a decoded JSON document against a schema string.
func ValidateDocument(schema string, document map[string]interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}, nil
	}

	errs := make([]ValidationError, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		}
	}
	return &ValidationResult{Valid: false, Errors: errs}, nil
}

// FormatErrors flattens validation errors into a single detail string.
func FormatErrors(result *ValidationResult) string {
	if result == nil || result.Valid {
		return ""
	}
	detail := ""
	for i, e := range result.Errors {
		if i > 0 {
			detail += "; "
		}
		detail += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return detail
}
