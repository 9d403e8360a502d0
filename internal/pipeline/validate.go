package pipeline

import "fmt"

type ValidateOptions struct {
	// RequireSequence rejects pipelines whose step numbers are not 1..n in order.
	RequireSequence bool
}

// Validate checks the structural rules that the type system cannot express.
// It returns nil or a *ValidationError listing every issue.
func Validate(steps []Step, opts ValidateOptions) error {
	var issues []Issue
	for i, s := range steps {
		path := fmt.Sprintf("/%d", i)
		if s.Config == nil {
			issues = append(issues, Issue{Path: path + "/type", Message: "missing step type"})
			continue
		}
		if s.Name == "" {
			issues = append(issues, Issue{Path: path + "/name", Message: "name is required"})
		}
		if s.Step < 1 {
			issues = append(issues, Issue{Path: path + "/step", Message: "step must be at least 1"})
		} else if opts.RequireSequence && s.Step != i+1 {
			issues = append(issues, Issue{Path: path + "/step", Message: fmt.Sprintf("expected step %d, got %d", i+1, s.Step)})
		}
		if d, ok := s.Config.(DelayConfig); ok && d.DelayMinutes < 1 {
			issues = append(issues, Issue{Path: path + "/config/delayMinutes", Message: "must be at least 1"})
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
