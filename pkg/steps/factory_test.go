package steps

import (
	"strings"
	"testing"

	"github.com/velaos/vela-deploy/pkg/api"
)

func TestNewStep_Bootloader(t *testing.T) {
	step, err := NewStep(api.StepConfig{Name: "a", Type: api.StepTypeBootloader, Script: "a.py"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Name() != "a" {
		t.Errorf("name = %q", step.Name())
	}
}

func TestNewStep_EmptyTypeDefaultsToBootloader(t *testing.T) {
	step, err := NewStep(api.StepConfig{Name: "a", Script: "a.py"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step == nil {
		t.Fatal("expected a step")
	}
}

func TestNewStep_UnknownType(t *testing.T) {
	_, err := NewStep(api.StepConfig{Name: "a", Type: "teleport", Script: "a.py"})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "unknown step type") {
		t.Fatalf("unexpected error: %v", err)
	}
}
