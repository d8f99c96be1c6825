package steps

import (
	"fmt"

	"github.com/velaos/vela-deploy/pkg/api"
)

// NewStep creates a Step implementation from a StepConfig. An empty type
// defaults to bootloader.
func NewStep(cfg api.StepConfig) (Step, error) {
	switch cfg.Type {
	case api.StepTypeBootloader, "":
		return NewBootloaderStep(cfg), nil
	default:
		return nil, fmt.Errorf("unknown step type: %s", cfg.Type)
	}
}
