package survey

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// AnswerDocument is the on-disk form of a filled questionnaire, as read by
// the CLI.
type AnswerDocument struct {
	Responses map[string]int `json:"responses"`
	Profile   *Profile       `json:"profile,omitempty"`
}

const answerSchemaURL = "schema://answer-document.json"

var answerSchemaDef = map[string]any{
	"type":     "object",
	"required": []any{"responses"},
	"properties": map[string]any{
		"responses": map[string]any{
			"type": "object",
			"propertyNames": map[string]any{
				"pattern": "^q[0-9]+$",
			},
			"additionalProperties": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 5,
			},
		},
		"profile": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"has_children": map[string]any{"type": "boolean"},
				"email":        map[string]any{"type": "string"},
				"phone":        map[string]any{"type": "string"},
			},
		},
	},
}

var (
	answerSchemaOnce sync.Once
	answerSchema     *jsonschema.Schema
	answerSchemaErr  error
)

func compiledAnswerSchema() (*jsonschema.Schema, error) {
	answerSchemaOnce.Do(func() {
		// The compiler wants a parsed JSON value, so round-trip the Go map.
		b, err := json.Marshal(answerSchemaDef)
		if err != nil {
			answerSchemaErr = fmt.Errorf("marshal answer schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(b, &def); err != nil {
			answerSchemaErr = fmt.Errorf("parse answer schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(answerSchemaURL, def); err != nil {
			answerSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		answerSchema, answerSchemaErr = c.Compile(answerSchemaURL)
	})
	return answerSchema, answerSchemaErr
}

// ParseAnswerDocument validates raw JSON against the answer-document schema
// and decodes it.
func ParseAnswerDocument(raw []byte) (*AnswerDocument, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := compiledAnswerSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("answer document: %w", err)
	}

	var doc AnswerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode answer document: %w", err)
	}
	return &doc, nil
}
