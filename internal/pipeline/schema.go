package pipeline

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/pipeline.schema.json
var pipelineSchemaJSON string

const pipelineSchemaURL = "https://flowdesk.local/schemas/pipeline.schema.json"

var pipelineSchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(pipelineSchemaURL, bytes.NewReader([]byte(pipelineSchemaJSON))); err != nil {
		panic(fmt.Sprintf("pipeline schema: %v", err))
	}
	return compiler.MustCompile(pipelineSchemaURL)
}

// ParseJSON decodes an untrusted pipeline document. The raw document is
// checked against the embedded JSON Schema first so that callers get every
// issue at once, then decoded strictly into typed steps.
func ParseJSON(data []byte, opts ValidateOptions) ([]Step, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return []Step{}, nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Issues: []Issue{{Path: "", Message: "malformed JSON: " + err.Error()}}}
	}
	if err := pipelineSchema.Validate(doc); err != nil {
		return nil, schemaIssues(err)
	}
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, &ValidationError{Issues: []Issue{{Path: "", Message: err.Error()}}}
	}
	if err := Validate(steps, opts); err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []Step{}
	}
	return steps, nil
}

func schemaIssues(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Issues: []Issue{{Path: "", Message: err.Error()}}}
	}
	var issues []Issue
	for _, be := range ve.BasicOutput().Errors {
		// The basic output repeats parent locations with summary messages.
		if be.Error == "" || be.KeywordLocation == "" {
			continue
		}
		issues = append(issues, Issue{Path: be.InstanceLocation, Message: be.Error})
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Path: ve.InstanceLocation, Message: ve.Message})
	}
	return &ValidationError{Issues: issues}
}
