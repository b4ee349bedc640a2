// Package model holds the records persisted for each orientation run.
package model

import "time"

// RunStatus represents the current state of an orientation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// RunParams records the inputs and tuning a run was started with.
type RunParams struct {
	Transactions      string  `json:"transactions"`
	Properties        string  `json:"properties"`
	Roads             string  `json:"roads"`
	SourceCRS         string  `json:"source_crs"`
	TargetCRS         string  `json:"target_crs"`
	SearchRadius      float64 `json:"search_radius_m"`
	ChordIndexCap     int     `json:"chord_index_cap"`
	MinChordComponent float64 `json:"min_chord_component"`
	ImputeFraction    float64 `json:"impute_fraction"`
	Seed              uint64  `json:"seed"`
	Workers           int     `json:"workers"`
	Output            string  `json:"output"`
}

// LabelCount is one row of the orientation distribution.
type LabelCount struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Summary describes the outcome of a completed run.
type Summary struct {
	Total          int            `json:"total"`
	Roads          int            `json:"roads"`
	Distribution   []LabelCount   `json:"distribution"`
	Mode           string         `json:"mode,omitempty"`
	UnknownBefore  int            `json:"unknown_before"`
	Imputed        int            `json:"imputed"`
	KnownPercent   float64        `json:"known_percent"`
	UnknownPercent float64        `json:"unknown_percent"`
	Reasons        map[string]int `json:"reasons,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// Count returns the count for label, or 0.
func (s *Summary) Count(label string) int {
	if s == nil {
		return 0
	}
	for _, lc := range s.Distribution {
		if lc.Label == label {
			return lc.Count
		}
	}
	return 0
}

// Run is one invocation of the orientation batch.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Params      RunParams  `json:"params"`
	Summary     *Summary   `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PropertyResult is one output row. Seq is the row's position in the
// output, starting at 0.
type PropertyResult struct {
	Seq         int    `json:"seq"`
	Key         string `json:"key"`
	Address     string `json:"address"`
	Orientation string `json:"orientation"`
	Reason      string `json:"reason,omitempty"`
	Imputed     bool   `json:"imputed"`
}
