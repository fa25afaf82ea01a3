package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/bringup/internal/bringup"
)

// Format is a document encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", s)
	}
}

// FormatFor picks the format from a file extension, defaulting to JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt":
		return FormatText
	default:
		return FormatJSON
	}
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatText:
		return "txt"
	default:
		return "json"
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Document is the encoded form of a run.
type Document struct {
	RunID      string              `json:"runId" yaml:"runId"`
	Cluster    string              `json:"cluster" yaml:"cluster"`
	Status     bringup.RunStatus   `json:"status" yaml:"status"`
	StartedAt  time.Time           `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt" yaml:"finishedAt"`
	Duration   string              `json:"duration" yaml:"duration"`
	Phases     []Phase             `json:"phases" yaml:"phases"`
	Outputs    map[string][]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	// FailureClass is set when the run aborted.
	FailureClass bringup.FailureClass `json:"failureClass,omitempty" yaml:"failureClass,omitempty"`
}

// Phase is one phase of a Document.
type Phase struct {
	Name       string              `json:"name" yaml:"name"`
	Status     bringup.PhaseStatus `json:"status" yaml:"status"`
	Duration   string              `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	Operations []Operation         `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// Operation is one operation of a Phase.
type Operation struct {
	Name       string                  `json:"name" yaml:"name"`
	Status     bringup.OperationStatus `json:"status" yaml:"status"`
	Handle     string                  `json:"handle,omitempty" yaml:"handle,omitempty"`
	Elapsed    string                  `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Ticks      int                     `json:"ticks,omitempty" yaml:"ticks,omitempty"`
	Message    string                  `json:"message,omitempty" yaml:"message,omitempty"`
	Note       string                  `json:"note,omitempty" yaml:"note,omitempty"`
	Overridden string                  `json:"overridden,omitempty" yaml:"overridden,omitempty"`
}

// New builds the document of a run.
func New(cluster string, run *bringup.Run) *Document {
	doc := &Document{
		RunID:      run.ID,
		Cluster:    cluster,
		Status:     run.Status,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Error:      run.Error,
		Outputs:    run.Outputs(),
		Phases:     make([]Phase, 0, len(run.Phases)),
	}
	if !run.FinishedAt.IsZero() {
		doc.Duration = roundDuration(run.FinishedAt.Sub(run.StartedAt))
	}
	if run.Cause != nil {
		doc.FailureClass = bringup.Classify(run.Cause)
	}
	for _, p := range run.Phases {
		phase := Phase{Name: p.Name, Status: p.Status, Error: p.Error}
		if p.Duration > 0 {
			phase.Duration = roundDuration(p.Duration)
		}
		for _, op := range p.Operations {
			o := Operation{
				Name:       strings.TrimSpace(string(op.Kind) + " " + op.Target),
				Status:     op.Status,
				Handle:     string(op.Handle),
				Ticks:      op.Ticks,
				Message:    op.Message,
				Note:       op.Note,
				Overridden: op.Overridden,
			}
			if op.Elapsed > 0 {
				o.Elapsed = roundDuration(op.Elapsed)
			}
			phase.Operations = append(phase.Operations, o)
		}
		doc.Phases = append(doc.Phases, phase)
	}
	return doc
}

func roundDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

// Encode renders doc in format. Text output is uncolored.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		return buf.Bytes(), nil
	case FormatText:
		var buf bytes.Buffer
		NewRenderer(false).Render(&buf, doc)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Decode parses a JSON or YAML document.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("cannot decode %s reports", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &doc, nil
}
