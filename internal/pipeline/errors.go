package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStepType = errors.New("unknown step type")
	ErrInvalidTrigger  = errors.New("invalid trigger")
	ErrInvalidApproval = errors.New("invalid approval policy")
	ErrInvalidPipeline = errors.New("invalid pipeline")
)

// Issue is a single problem found in a pipeline. Path is a JSON pointer into
// the submitted document, e.g. "/2/config/delayMinutes".
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError collects every issue found in one pipeline. It matches
// ErrInvalidPipeline with errors.Is.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid pipeline")
	for i, issue := range e.Issues {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPipeline
}
