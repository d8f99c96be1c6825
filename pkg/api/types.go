package api

const (
	StepTypeBootloader = "bootloader"

	// Step names of the built-in plan.
	StepNameFolders   = "folders"
	StepNamePythonEnv = "python-env"

	// Files the built-in plan expects next to the work directory root.
	FolderBootloaderScript = "folder_bootloader.py"
	EnvBootloaderScript    = "python_env_bootloader.py"
	BootloaderConfigFile   = "bootloader_config.json"
)

// Plan is the deploy plan: the files that must be present before anything
// runs, and the ordered list of steps to execute.
type Plan struct {
	Requires []RequiredFile `yaml:"requires"`
	Steps    []StepConfig   `yaml:"steps"`

	// Set by the loader, not from YAML.
	FilePath string `yaml:"-"`
}

// RequiredFile names a file that must exist in the work directory before any
// step is attempted. Pattern is a doublestar glob; at least one match counts
// as present. When Step is set, the requirement only applies while that step
// is scheduled.
type RequiredFile struct {
	Pattern string `yaml:"pattern"`
	Step    string `yaml:"step,omitempty"`
}

// StepConfig defines a single step of the deploy pipeline.
type StepConfig struct {
	Name   string   `yaml:"name"`
	Title  string   `yaml:"title"`
	Type   string   `yaml:"type"`
	Script string   `yaml:"script"`
	Args   []string `yaml:"args"`

	// Optional steps whose script is absent are skipped with a notice
	// instead of failing the run.
	Optional bool `yaml:"optional"`
}

// DefaultPlan returns the built-in plan: folder structure creation followed
// by Python environment setup, with the collaborator scripts and the shared
// bootloader config as preconditions.
func DefaultPlan() *Plan {
	return &Plan{
		Requires: []RequiredFile{
			{Pattern: FolderBootloaderScript},
			{Pattern: BootloaderConfigFile},
			{Pattern: EnvBootloaderScript, Step: StepNamePythonEnv},
		},
		Steps: []StepConfig{
			{
				Name:   StepNameFolders,
				Title:  "Step 1: Folder Structure Creation",
				Type:   StepTypeBootloader,
				Script: FolderBootloaderScript,
				Args:   []string{"--deploy"},
			},
			{
				Name:   StepNamePythonEnv,
				Title:  "Step 2: Python Environment Setup",
				Type:   StepTypeBootloader,
				Script: EnvBootloaderScript,
				Args:   []string{"--deploy", "--verbose"},
			},
		},
	}
}

// WithoutStep returns a copy of the plan with the named step removed, along
// with any required-file entries bound to that step.
func (p *Plan) WithoutStep(name string) *Plan {
	out := &Plan{FilePath: p.FilePath}
	for _, r := range p.Requires {
		if r.Step == name {
			continue
		}
		out.Requires = append(out.Requires, r)
	}
	for _, s := range p.Steps {
		if s.Name == name {
			continue
		}
		out.Steps = append(out.Steps, s)
	}
	return out
}

// StepNames returns the names of all scheduled steps in order.
func (p *Plan) StepNames() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Name)
	}
	return names
}
