package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
)

// Pipeline stage names, in execution order.
const (
	StageStoreOriginal   = "store-original"
	StageExtractText     = "extract-text"
	StageEnrich          = "enrich"
	StageRenderArtifacts = "render-artifacts"
	StageIndex           = "index"
)

// StepOutcome records how one pipeline stage ended. Only the fields relevant
// to the stage are set.
type StepOutcome struct {
	Stage      string          `json:"-"`
	Status     StepStatus      `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	Error      string          `json:"error,omitempty"`
	URL        string          `json:"url,omitempty"`
	Path       string          `json:"path,omitempty"`
	TextLength int             `json:"text_length,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	HasMath    *bool           `json:"has_math,omitempty"`
	Hints      *StructureHints `json:"structure_hints,omitempty"`
	LatexPath  string          `json:"latex_path,omitempty"`
	LatexURL   string          `json:"latex_url,omitempty"`
}

// Steps is an ordered stage-name to outcome mapping. It is encoded as a JSON
// object whose key order follows execution order.
type Steps []StepOutcome

func (s Steps) Get(stage string) (StepOutcome, bool) {
	for _, step := range s {
		if step.Stage == stage {
			return step, true
		}
	}
	return StepOutcome{}, false
}

func (s Steps) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, step := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(step.Stage)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(step)
		if err != nil {
			return nil, fmt.Errorf("marshal step %s: %w", step.Stage, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Steps) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("steps: expected object, got %v", tok)
	}

	out := Steps{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("steps: expected string key, got %v", keyTok)
		}
		var step StepOutcome
		if err := dec.Decode(&step); err != nil {
			return fmt.Errorf("steps: decode %s: %w", key, err)
		}
		step.Stage = key
		out = append(out, step)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

type Summary struct {
	TextLength   int     `json:"text_length"`
	Confidence   float64 `json:"confidence"`
	HasMath      bool    `json:"has_math"`
	StorageURL   string  `json:"storage_url,omitempty"`
	PDFURL       string  `json:"pdf_url,omitempty"`
	LatexURL     string  `json:"latex_url,omitempty"`
	OriginalFile string  `json:"original_file,omitempty"`
}

// ProcessingResult is the per-document record of one pipeline run.
type ProcessingResult struct {
	DocumentID string           `json:"document_id"`
	Status     ProcessingStatus `json:"status"`
	Steps      Steps            `json:"steps"`
	Summary    *Summary         `json:"summary,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Record appends a stage outcome. Steps only grow during a run.
func (r *ProcessingResult) Record(step StepOutcome) {
	r.Steps = append(r.Steps, step)
}

// Clone returns a deep copy so a stored record cannot be mutated through a
// reference handed to a caller.
func (r *ProcessingResult) Clone() *ProcessingResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Steps != nil {
		out.Steps = make(Steps, len(r.Steps))
		copy(out.Steps, r.Steps)
	}
	if r.Summary != nil {
		summary := *r.Summary
		out.Summary = &summary
	}
	return &out
}
