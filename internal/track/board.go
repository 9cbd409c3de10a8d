package track

import (
	"sync"

	"go.uber.org/zap"

	"github.com/a3cim/floormon/internal/clock"
)

// Persister writes and loads the durable JSON snapshots. Implementations live
// in internal/persist. Write failures are logged by the Board and never roll
// back in-memory state; memory and disk may diverge until the next
// successful write.
type Persister interface {
	LoadTasks() ([]Record, error)
	LoadWIP() ([]Record, error)
	LoadStatus() (*StatusSnapshot, error)
	SaveTasks(recs []Record) error
	SaveWIP(recs []Record) error
	SaveStatus(snap StatusSnapshot) error
}

// Publisher receives named state-change events for live observers. Delivery
// is fire-and-forget; the Board never waits on it.
type Publisher interface {
	Publish(event string, payload any)
}

// Metrics receives ingest counters. A no-op default keeps the Board usable
// without a registry.
type Metrics interface {
	EventIngested(domain string)
	RoundStarted(domain string)
	RoundClosed(domain string)
	Completion(domain string, completed, total int)
}

// Rules names the boundary markers for one domain.
type Rules struct {
	StartMarker string
	EndMarker   string
}

// Config carries the per-domain boundary markers.
type Config struct {
	TaskRules Rules
	WIPRules  Rules
}

// Domain labels used in logs and metrics.
const (
	DomainTask = "task"
	DomainWIP  = "wip"
)

// domain bundles the record set, round tracker, and progress for one tracked
// category. The mutex serializes every read-modify-write cycle against that
// category's file.
type domain struct {
	mu            sync.Mutex
	label         string
	updateEvent   string
	progressEvent string
	roundEvent    string
	records       *RecordSet
	rounds        *Tracker
	progress      Progress
	payload       func(*RecordSet) any
	saveRecords   func([]Record) error
}

func (d *domain) progressCopy() Progress {
	p := d.progress
	p.LastUpdate = cloneTime(p.LastUpdate)
	return p
}

// Board owns the task and WIP domains, the status aggregate, and the
// persistence and broadcast side effects of every ingest. Locks are acquired
// in domain-then-status order only, so the two domains can ingest in
// parallel without deadlocking on the shared status file.
type Board struct {
	tasks *domain
	wip   *domain

	statusMu sync.Mutex
	status   StatusSnapshot

	persist Persister
	pub     Publisher
	clock   clock.Clock
	logger  *zap.Logger
	metrics Metrics
}

// Snapshot aggregates everything a freshly connected observer needs to
// converge without replaying history.
type Snapshot struct {
	Tasks        []Record
	WIP          map[string]RecordState
	TaskProgress Progress
	WIPProgress  Progress
	TaskRounds   RoundInfo
	WIPRounds    RoundInfo
}

// NewBoard builds a Board and restores prior state from the persister. Load
// failures are logged and the affected state starts empty; the persisted
// files are recreated on the next mutation.
func NewBoard(cfg Config, persist Persister, pub Publisher, clk clock.Clock, logger *zap.Logger, metrics Metrics) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	b := &Board{
		tasks: &domain{
			label:         DomainTask,
			updateEvent:   EventTaskUpdate,
			progressEvent: EventTaskProgressUpdate,
			roundEvent:    EventTaskRoundUpdate,
			records:       NewRecordSet(),
			rounds:        NewTracker(cfg.TaskRules.StartMarker, cfg.TaskRules.EndMarker),
			progress:      Progress{Status: StatusIdle},
			payload:       func(s *RecordSet) any { return s.List() },
			saveRecords:   persist.SaveTasks,
		},
		wip: &domain{
			label:         DomainWIP,
			updateEvent:   EventWIPUpdate,
			progressEvent: EventWIPProgressUpdate,
			roundEvent:    EventWIPRoundUpdate,
			records:       NewRecordSet(),
			rounds:        NewTracker(cfg.WIPRules.StartMarker, cfg.WIPRules.EndMarker),
			progress:      Progress{Status: StatusIdle},
			payload:       func(s *RecordSet) any { return s.AsMap() },
			saveRecords:   persist.SaveWIP,
		},
		persist: persist,
		pub:     pub,
		clock:   clk,
		logger:  logger,
		metrics: metrics,
	}
	b.status = StatusSnapshot{
		TaskProgress: Progress{Status: StatusIdle},
		WIPProgress:  Progress{Status: StatusIdle},
	}
	b.restore()
	return b
}

func (b *Board) restore() {
	if recs, err := b.persist.LoadTasks(); err != nil {
		b.logger.Error("task file load failed, starting empty", zap.Error(err))
	} else if recs != nil {
		b.tasks.records.Restore(recs)
		b.logger.Info("task records loaded", zap.Int("count", len(recs)))
	}
	if recs, err := b.persist.LoadWIP(); err != nil {
		b.logger.Error("wip file load failed, starting empty", zap.Error(err))
	} else if recs != nil {
		b.wip.records.Restore(recs)
		b.logger.Info("wip records loaded", zap.Int("count", len(recs)))
	}
	snap, err := b.persist.LoadStatus()
	if err != nil {
		b.logger.Error("status file load failed, starting fresh", zap.Error(err))
		return
	}
	if snap == nil {
		return
	}
	b.tasks.rounds.Restore(snap.TaskRoundInfo)
	b.tasks.progress = snap.TaskProgress
	b.wip.rounds.Restore(snap.WIPRoundInfo)
	b.wip.progress = snap.WIPProgress
	snap.TaskRoundInfo = b.tasks.rounds.Info()
	snap.WIPRoundInfo = b.wip.rounds.Info()
	b.status = *snap
	b.logger.Info("status restored",
		zap.Int("task_round", snap.TaskRoundInfo.CurrentRound),
		zap.Int("wip_round", snap.WIPRoundInfo.CurrentRound))
}

// IngestStation records one station completion event for the task domain.
func (b *Board) IngestStation(name string) {
	b.ingest(b.tasks, name)
}

// IngestWIP records one WIP completion event.
func (b *Board) IngestWIP(name string) {
	b.ingest(b.wip, name)
}

func (b *Board) ingest(d *domain, name string) {
	now := b.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	b.metrics.EventIngested(d.label)

	// Ordinary events arriving with no round in progress open the next one.
	if !d.rounds.IsBoundary(name) && d.rounds.AutoOpen(now) {
		b.metrics.RoundStarted(d.label)
		b.logger.Info("round auto-opened",
			zap.String("domain", d.label),
			zap.Int("round", d.rounds.Info().CurrentRound),
			zap.String("trigger", name))
		b.publishRound(d)
	}

	if d.rounds.IsStart(name) {
		if d.rounds.ForceStart(now) {
			b.metrics.RoundClosed(d.label)
			b.logger.Info("open round force-closed by start marker", zap.String("domain", d.label))
		}
		b.metrics.RoundStarted(d.label)
		d.records.ResetAll()
		d.records.MarkDone(name)
		b.logger.Info("round started, records reset",
			zap.String("domain", d.label),
			zap.Int("round", d.rounds.Info().CurrentRound),
			zap.String("marker", name))
		b.publishRound(d)
	} else if d.records.MarkDone(name) {
		b.logger.Info("record added", zap.String("domain", d.label), zap.String("name", name))
	}

	completed, total := d.records.Ratio()
	d.progress.CurrentIndex = completed
	d.progress.Total = total
	d.progress.CurrentTask = name
	d.progress.Status = StatusRunning
	if completed >= total {
		d.progress.Status = StatusCompleted
	}
	d.progress.LastUpdate = &now
	b.metrics.Completion(d.label, completed, total)

	if d.rounds.IsEnd(name) {
		d.rounds.CloseRound(now)
		b.metrics.RoundClosed(d.label)
		b.logger.Info("round closed",
			zap.String("domain", d.label),
			zap.Int("round", d.rounds.Info().CurrentRound))
		b.publishRound(d)
	}

	b.pub.Publish(d.updateEvent, d.payload(d.records))
	b.pub.Publish(d.progressEvent, d.progressCopy())

	if err := d.saveRecords(d.records.List()); err != nil {
		b.logger.Error("record file write failed, in-memory state kept",
			zap.String("domain", d.label), zap.Error(err))
	}
	progress := d.progressCopy()
	rounds := d.rounds.Info()

	// Still under d.mu: a domain's slot in the status aggregate must never
	// move backwards, so the status write stays inside the ingest's critical
	// section.
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	switch d.label {
	case DomainTask:
		b.status.TaskProgress = progress
		b.status.TaskRoundInfo = rounds
	case DomainWIP:
		b.status.WIPProgress = progress
		b.status.WIPRoundInfo = rounds
	}
	b.status.LastSaved = now
	if err := b.persist.SaveStatus(b.status); err != nil {
		b.logger.Error("status file write failed, in-memory state kept", zap.Error(err))
	}
}

func (b *Board) publishRound(d *domain) {
	b.pub.Publish(d.roundEvent, d.rounds.Info())
}

// Tasks returns the task records in insertion order.
func (b *Board) Tasks() []Record {
	b.tasks.mu.Lock()
	defer b.tasks.mu.Unlock()
	return b.tasks.records.List()
}

// WIP returns the WIP records as a name -> state mapping.
func (b *Board) WIP() map[string]RecordState {
	b.wip.mu.Lock()
	defer b.wip.mu.Unlock()
	return b.wip.records.AsMap()
}

// Status returns a copy of the current status aggregate.
func (b *Board) Status() StatusSnapshot {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	snap := b.status
	snap.TaskRoundInfo = b.status.TaskRoundInfo.Clone()
	snap.WIPRoundInfo = b.status.WIPRoundInfo.Clone()
	return snap
}

// Snapshot collects the full state replayed to newly connected observers.
func (b *Board) Snapshot() Snapshot {
	status := b.Status()
	return Snapshot{
		Tasks:        b.Tasks(),
		WIP:          b.WIP(),
		TaskProgress: status.TaskProgress,
		WIPProgress:  status.WIPProgress,
		TaskRounds:   status.TaskRoundInfo,
		WIPRounds:    status.WIPRoundInfo,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

type nopMetrics struct{}

func (nopMetrics) EventIngested(string)        {}
func (nopMetrics) RoundStarted(string)         {}
func (nopMetrics) RoundClosed(string)          {}
func (nopMetrics) Completion(string, int, int) {}
