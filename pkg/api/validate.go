package api

import "fmt"

var validStepTypes = map[string]bool{
	StepTypeBootloader: true,
}

// Validate checks the plan for configuration errors.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}

	names := make(map[string]int)

	for i, step := range p.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if prev, exists := names[step.Name]; exists {
			return fmt.Errorf("step %d: duplicate step name %q (first defined at step %d)", i, step.Name, prev)
		}
		names[step.Name] = i

		stepType := step.Type
		if stepType == "" {
			stepType = StepTypeBootloader
		}
		if !validStepTypes[stepType] {
			return fmt.Errorf("step %q: unknown type %q", step.Name, step.Type)
		}

		if step.Script == "" {
			return fmt.Errorf("step %q: script is required", step.Name)
		}
	}

	for i, req := range p.Requires {
		if req.Pattern == "" {
			return fmt.Errorf("requires %d: pattern is required", i)
		}
		if req.Step != "" {
			if _, exists := names[req.Step]; !exists {
				return fmt.Errorf("requires %q: references unknown step %q", req.Pattern, req.Step)
			}
		}
	}

	return nil
}
