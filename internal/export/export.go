// Package export renders the board as a shareable document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/fyrsmithlabs/planboard/internal/board"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts markdown (md) and json. Empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Document is the exported board.
type Document struct {
	Title       string         `json:"title"`
	GeneratedAt time.Time      `json:"generated_at"`
	Phases      []PhaseSummary `json:"phases"`
	Overall     board.Progress `json:"overall"`
}

// PhaseSummary is a phase with its progress.
type PhaseSummary struct {
	board.Phase
	Progress board.Progress `json:"progress"`
}

// Source is what Build reads.
type Source interface {
	Phases() []board.Phase
	AllProgress() []board.Progress
}

var _ Source = (*board.Board)(nil)

// Build snapshots src.
func Build(src Source, title string, now time.Time) Document {
	if title == "" {
		title = "Event Plan"
	}
	phases := src.Phases()
	progress := src.AllProgress()

	doc := Document{
		Title:       title,
		GeneratedAt: now.UTC(),
		Phases:      make([]PhaseSummary, len(phases)),
		Overall:     board.Progress{PhaseID: "all"},
	}
	for i, p := range phases {
		ps := PhaseSummary{Phase: p}
		if i < len(progress) && progress[i].PhaseID == p.ID {
			ps.Progress = progress[i]
		}
		doc.Overall.Completed += ps.Progress.Completed
		doc.Overall.Total += ps.Progress.Total
		doc.Phases[i] = ps
	}
	if doc.Overall.Total > 0 {
		doc.Overall.Percent = doc.Overall.Completed * 100 / doc.Overall.Total
	}
	return doc
}

var markdownTmpl = template.Must(template.New("board").Funcs(template.FuncMap{
	"check": func(done bool) string {
		if done {
			return "x"
		}
		return " "
	},
	"oneline": func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	},
}).Parse(`# {{.Title}}

Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}. Overall progress: {{.Overall.Completed}}/{{.Overall.Total}} ({{.Overall.Percent}}%).
{{range .Phases}}
## {{.Title}} ({{.Progress.Completed}}/{{.Progress.Total}})
{{range .Tasks}}
- [{{check .Completed}}] {{.Name}}{{if .Details}}: {{oneline .Details}}{{end}}{{if .Colors}} ` + "`{{.Colors.Primary}}` `{{.Colors.Secondary}}`" + `{{end}}{{if eq .Source "manual"}} _(edited)_{{end}}
{{- end}}
{{end}}`))

// Write renders doc to w in format f.
func Write(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode board json: %w", err)
		}
		return nil
	case FormatMarkdown:
		if err := markdownTmpl.Execute(w, doc); err != nil {
			return fmt.Errorf("render board markdown: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}
