// Package track implements the round-based completion tracker shared by the
// station and WIP domains. A Board owns one record set and one round state
// machine per domain, serializes every read-modify-write cycle behind a
// per-file mutex, and pushes each mutation to the persistence layer and to
// live observers.
package track

import "time"

// Record is one trackable unit of work reported by the floor.
type Record struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// RecordState is the per-record value persisted in the tasks/wip files and
// broadcast in wip_update payloads.
type RecordState struct {
	Done bool `json:"done"`
}

// Progress statuses mirrored to observers after every ingest.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// Progress summarizes completion of the current round for one domain.
type Progress struct {
	CurrentIndex int        `json:"current_index"`
	Total        int        `json:"total"`
	CurrentTask  string     `json:"current_task"`
	Status       string     `json:"status"`
	LastUpdate   *time.Time `json:"last_update"`
}

// HistoryEntry records one closed round, newest first in RoundInfo.History.
type HistoryEntry struct {
	Round int       `json:"round"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RoundInfo describes the open round, the most recently closed round, and a
// bounded history. CurrentRound == 0 means no round has ever started; a nil
// CurrentEnd marks the round as open.
type RoundInfo struct {
	CurrentRound int            `json:"current_round"`
	CurrentStart *time.Time     `json:"current_start"`
	CurrentEnd   *time.Time     `json:"current_end"`
	LastRound    int            `json:"last_round"`
	LastStart    *time.Time     `json:"last_start"`
	LastEnd      *time.Time     `json:"last_end"`
	History      []HistoryEntry `json:"history"`
}

// Open reports whether a round is currently in progress.
func (r RoundInfo) Open() bool {
	return r.CurrentRound > 0 && r.CurrentEnd == nil
}

// PruneHistory drops entries that cannot describe a real round: round <= 0 or
// a zero start. Such entries only appear in files written by older builds;
// transitions never produce them.
func (r *RoundInfo) PruneHistory() {
	if len(r.History) == 0 {
		return
	}
	kept := r.History[:0]
	for _, h := range r.History {
		if h.Round > 0 && !h.Start.IsZero() {
			kept = append(kept, h)
		}
	}
	r.History = kept
}

// Clone returns a deep copy safe to hand to observers.
func (r RoundInfo) Clone() RoundInfo {
	cp := r
	cp.CurrentStart = cloneTime(r.CurrentStart)
	cp.CurrentEnd = cloneTime(r.CurrentEnd)
	cp.LastStart = cloneTime(r.LastStart)
	cp.LastEnd = cloneTime(r.LastEnd)
	if r.History != nil {
		cp.History = append([]HistoryEntry(nil), r.History...)
	}
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// StatusSnapshot is the aggregate persisted to the status file and returned
// by GET /api/status. The whole structure is rewritten on every mutation.
type StatusSnapshot struct {
	TaskProgress  Progress  `json:"task_progress"`
	WIPProgress   Progress  `json:"wip_progress"`
	TaskRoundInfo RoundInfo `json:"task_round_info"`
	WIPRoundInfo  RoundInfo `json:"wip_round_info"`
	LastSaved     time.Time `json:"last_saved"`
}

// Event names pushed to live observers.
const (
	EventTaskUpdate         = "task_update"
	EventWIPUpdate          = "wip_update"
	EventTaskProgressUpdate = "task_progress_update"
	EventWIPProgressUpdate  = "wip_progress_update"
	EventTaskRoundUpdate    = "task_round_update"
	EventWIPRoundUpdate     = "wip_round_update"
)
