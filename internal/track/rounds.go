package track

import "time"

// maxHistory bounds RoundInfo.History; older entries are silently dropped.
const maxHistory = 10

// Tracker is the round boundary state machine for one domain. It compares
// incoming event names against the configured start and end markers and keeps
// the round metadata up to date. Tracker is not safe for concurrent use; the
// owning Board holds the domain lock across each transition.
//
// A start marker is authoritative: arriving while a round is open it
// force-closes that round before opening the next one, even if the end marker
// never came. Truncating an in-progress round this way is intended behavior.
type Tracker struct {
	startMarker string
	endMarker   string
	info        RoundInfo
}

// NewTracker builds a Tracker with the given boundary markers.
func NewTracker(startMarker, endMarker string) *Tracker {
	return &Tracker{startMarker: startMarker, endMarker: endMarker}
}

// Restore replaces the round metadata with state loaded from disk.
func (t *Tracker) Restore(info RoundInfo) {
	info.PruneHistory()
	t.info = info
}

// IsStart reports whether name is this domain's start marker.
func (t *Tracker) IsStart(name string) bool { return name == t.startMarker }

// IsEnd reports whether name is this domain's end marker.
func (t *Tracker) IsEnd(name string) bool { return name == t.endMarker }

// IsBoundary reports whether name is either marker.
func (t *Tracker) IsBoundary(name string) bool {
	return t.IsStart(name) || t.IsEnd(name)
}

// Info returns a deep copy of the current round metadata.
func (t *Tracker) Info() RoundInfo {
	return t.info.Clone()
}

// AutoOpen opens the next round when an ordinary event arrives while no round
// is in progress: either nothing has ever started (round 0) or the previous
// round already closed. It reports whether a round was opened.
func (t *Tracker) AutoOpen(now time.Time) bool {
	if t.info.CurrentRound == 0 {
		t.open(now)
		return true
	}
	if t.info.CurrentEnd != nil {
		t.open(now)
		return true
	}
	return false
}

// ForceStart handles the start marker: any open round is closed at now and
// recorded, then a new round opens unconditionally. It reports whether an
// open round had to be closed first.
func (t *Tracker) ForceStart(now time.Time) bool {
	closedPrev := false
	if t.info.Open() {
		t.info.CurrentEnd = &now
		if t.info.CurrentStart != nil {
			t.pushHistory()
		}
		t.copyLast()
		closedPrev = true
	}
	t.open(now)
	return closedPrev
}

// CloseRound handles the end marker. An end marker arriving before anything
// else still opens round 1 first so the close has a round to act on, and a
// missing start timestamp is backfilled with now so the history entry is
// always complete.
func (t *Tracker) CloseRound(now time.Time) {
	if t.info.CurrentRound == 0 {
		t.info.CurrentRound = 1
		t.info.CurrentStart = &now
	}
	if t.info.CurrentStart == nil {
		t.info.CurrentStart = &now
	}
	t.info.CurrentEnd = &now
	t.pushHistory()
	t.copyLast()
}

func (t *Tracker) open(now time.Time) {
	t.info.CurrentRound++
	t.info.CurrentStart = &now
	t.info.CurrentEnd = nil
}

func (t *Tracker) pushHistory() {
	entry := HistoryEntry{
		Round: t.info.CurrentRound,
		Start: *t.info.CurrentStart,
		End:   *t.info.CurrentEnd,
	}
	t.info.History = append([]HistoryEntry{entry}, t.info.History...)
	if len(t.info.History) > maxHistory {
		t.info.History = t.info.History[:maxHistory]
	}
}

func (t *Tracker) copyLast() {
	t.info.LastRound = t.info.CurrentRound
	t.info.LastStart = cloneTime(t.info.CurrentStart)
	t.info.LastEnd = cloneTime(t.info.CurrentEnd)
}
