// Package report renders the operator-facing banners: the help-only
// pipeline description and the final deployment summary.
package report

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/velaos/vela-deploy/pkg/api"
	"github.com/velaos/vela-deploy/pkg/deploy"
)

// PlannedSteps are pipeline stages that exist in the roadmap but have no
// bootloader yet. They appear in banners as future work.
var PlannedSteps = []string{
	"Backend TOML generation",
	"Frontend setup (npm)",
}

const summaryTemplate = `
{{ repeat 60 "=" }}
DEPLOYMENT COMPLETE
{{ repeat 60 "=" }}
{{- range .Steps }}
{{ .Mark }} {{ .Title }}{{ with .Reason }} ({{ . }}){{ end }}
{{- end }}

Next steps:
{{- range .Planned }}
- {{ . }}
{{- end }}
{{- with .LogFile }}

See {{ . }} for the full transcript.
{{- end }}
`

const helpTemplate = `vela-deploy orchestrates the VelaOS deployment pipeline.

Pipeline:
{{- range $i, $s := .Steps }}
  {{ add $i 1 }}. {{ $s }}
{{- end }}
{{- range $i, $s := .Planned }}
  {{ add $i 1 | add (len $.Steps) }}. {{ $s }} (planned, not yet implemented)
{{- end }}

Run with --deploy (the default) to execute the implemented steps in order.
Each step is a collaborator script invoked as a blocking subprocess; the
pipeline stops at the first failure.
`

type summaryStep struct {
	Title  string
	Mark   string
	Reason string
}

// Summary renders the final success banner for a completed run.
func Summary(outcome *deploy.Outcome, logFile string) (string, error) {
	data := struct {
		Steps   []summaryStep
		Planned []string
		LogFile string
	}{
		Planned: PlannedSteps,
		LogFile: logFile,
	}

	for _, s := range outcome.Steps {
		data.Steps = append(data.Steps, summaryStep{
			Title:  s.Title,
			Mark:   statusMark(s.Status),
			Reason: reasonFor(s),
		})
	}

	return render("summary", summaryTemplate, data)
}

// HelpBanner renders the pipeline description shown by --help-only.
func HelpBanner(plan *api.Plan) (string, error) {
	data := struct {
		Steps   []string
		Planned []string
	}{
		Planned: PlannedSteps,
	}

	for _, s := range plan.Steps {
		title := s.Title
		if title == "" {
			title = s.Name
		}
		data.Steps = append(data.Steps, title)
	}

	return render("help", helpTemplate, data)
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s banner: %w", name, err)
	}
	return buf.String(), nil
}

func statusMark(s deploy.Status) string {
	switch s {
	case deploy.StatusSucceeded:
		return "✓"
	case deploy.StatusSkipped:
		return "⏭"
	case deploy.StatusFailed:
		return "✗"
	default:
		return "·"
	}
}

func reasonFor(s deploy.StepOutcome) string {
	if s.Status == deploy.StatusSkipped && s.Reason != "" {
		return s.Reason
	}
	return ""
}
