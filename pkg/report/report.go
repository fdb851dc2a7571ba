package report

import (
	"sync"
)

// Statistics summarizes a batch before or after canonicalization.
type Statistics struct {
	EntityCount       int            `json:"entityCount"`
	LinkCount         int            `json:"linkCount"`
	EntitiesByType    map[string]int `json:"entitiesByType"`
	LinksByType       map[string]int `json:"linksByType"`
	PropertyFrequency map[string]int `json:"propertyFrequency"`
	Quality           Quality        `json:"quality"`
}

// Quality counts records that need repair.
type Quality struct {
	MissingLabels        int `json:"missingLabels"`
	MissingTypes         int `json:"missingTypes"`
	EmptyProperties      int `json:"emptyProperties"`
	LinksMissingEndpoint int `json:"linksMissingEndpoint"`
}

// Report accumulates the non-fatal outcome of one batch. A caller that
// receives a report with no entries can assume every retained record is
// valid.
type Report struct {
	mu sync.Mutex

	Pre  Statistics `json:"pre"`
	Post Statistics `json:"post"`

	Errors          []*Error     `json:"-"`
	Counts          map[Kind]int `json:"counts"`
	DroppedEntities int          `json:"droppedEntities"`
	SkippedLinks    int          `json:"skippedLinks"`
	PrunedLinks     int          `json:"prunedLinks"`
	FallbackApplied bool         `json:"fallbackApplied"`
}

// New returns an empty report.
func New() *Report {
	return &Report{Counts: make(map[Kind]int)}
}

// Add records a classified error. Nil errors are ignored.
func (r *Report) Add(err *Error) {
	if r == nil || err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Counts == nil {
		r.Counts = make(map[Kind]int)
	}
	r.Errors = append(r.Errors, err)
	r.Counts[err.Kind]++
}

// Count returns how many errors of the given kind were recorded.
func (r *Report) Count(kind Kind) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counts[kind]
}

// Warnings is the number of records skipped for schema problems. It is the
// figure surfaced on progress events.
func (r *Report) Warnings() int {
	return r.Count(KindSchema)
}

// Empty reports whether nothing was recorded.
func (r *Report) Empty() bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) == 0 && r.DroppedEntities == 0 && !r.FallbackApplied
}

// Messages renders the recorded errors, mainly for logs and API responses.
func (r *Report) Messages() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}
