package syncer

import (
	"sync"
	"time"
)

// State is the user-visible phase of the sync service.
type State string

const (
	StateIdle     State = "idle"
	StateSyncing  State = "syncing"
	StateComplete State = "complete"
	StateError    State = "error"
)

// Status is a snapshot of the tracker.
type Status struct {
	State     State     `json:"state"`
	Synced    int       `json:"synced"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	// LastSuccess is the end time of the last run without error.
	LastSuccess time.Time `json:"last_success,omitzero"`
}

// Tracker holds the current run status. Complete and error states revert
// to idle after the reset delay.
type Tracker struct {
	mu       sync.Mutex
	status   Status
	reset    time.Duration
	timer    *time.Timer
	gen      uint64
	onChange func(Status)
}

// NewTracker creates an idle tracker. onChange, when non-nil, is called
// with every new status outside the lock.
func NewTracker(reset time.Duration, onChange func(Status)) *Tracker {
	return &Tracker{
		status:   Status{State: StateIdle},
		reset:    reset,
		onChange: onChange,
	}
}

// Status returns the current snapshot.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Start enters the syncing state.
func (t *Tracker) Start(at time.Time) {
	t.set(func(s *Status) {
		s.State = StateSyncing
		s.Synced = 0
		s.Error = ""
		s.StartedAt = at
		s.EndedAt = time.Time{}
	}, false)
}

// Complete records a run that finished with synced documents.
func (t *Tracker) Complete(at time.Time, synced int) {
	t.set(func(s *Status) {
		s.State = StateComplete
		s.Synced = synced
		s.EndedAt = at
		s.LastSuccess = at
	}, true)
}

// Fail records a run that ended with err.
func (t *Tracker) Fail(at time.Time, synced int, err error) {
	t.set(func(s *Status) {
		s.State = StateError
		s.Synced = synced
		s.Error = err.Error()
		s.EndedAt = at
	}, true)
}

// Stop cancels a pending reset.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) set(mutate func(*Status), scheduleReset bool) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	mutate(&t.status)
	snap := t.status
	if scheduleReset && t.reset > 0 {
		gen := t.gen
		t.timer = time.AfterFunc(t.reset, func() { t.toIdle(gen) })
	}
	t.mu.Unlock()
	t.notify(snap)
}

func (t *Tracker) toIdle(gen uint64) {
	t.mu.Lock()
	// A newer transition happened since this reset was scheduled.
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.status.State = StateIdle
	t.status.Error = ""
	snap := t.status
	t.mu.Unlock()
	t.notify(snap)
}

func (t *Tracker) notify(s Status) {
	if t.onChange != nil {
		t.onChange(s)
	}
}
