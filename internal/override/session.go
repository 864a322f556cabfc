package override

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medsched/internal/model"
)

var (
	// ErrBusy is returned when a save or load for the date is already in flight.
	ErrBusy = errors.New("override operation already in progress")
	// ErrInvalidState is returned for operations the current phase does not allow.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrSuperseded is returned by Open when the session was closed or reopened
	// while the lookup was still running.
	ErrSuperseded = errors.New("override session superseded")
)

// Phase is the state of an override edit session.
type Phase string

const (
	PhaseClosed  Phase = "closed"
	PhaseLoading Phase = "loading"
	PhaseDraft   Phase = "draft"
	PhaseSaving  Phase = "saving"
	PhaseError   Phase = "error"
)

var transitions = map[Phase][]Phase{
	PhaseClosed:  {PhaseLoading},
	PhaseLoading: {PhaseDraft, PhaseError, PhaseClosed, PhaseLoading},
	PhaseDraft:   {PhaseSaving, PhaseLoading, PhaseClosed},
	PhaseSaving:  {PhaseClosed, PhaseError},
	PhaseError:   {PhaseDraft, PhaseSaving, PhaseLoading, PhaseClosed},
}

// CanTransition checks if moving between phases is allowed.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Store is the part of the persistence gateway the session needs.
type Store interface {
	ListOverrides(ctx context.Context, q model.OverrideQuery) ([]model.DayOverride, error)
	CreateOverride(ctx context.Context, o model.DayOverride) (*model.OverrideSaveResult, error)
	UpdateOverride(ctx context.Context, id string, o model.DayOverride) (*model.OverrideSaveResult, error)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Phase Phase
	Date  model.Date
	// Draft is nil unless the session holds unsaved edits.
	Draft *model.DayOverride
	// Err is the reason of the last failure while in PhaseError.
	Err       error
	UpdatedAt time.Time
}

// Session edits the override of one date at a time.
type Session struct {
	store Store

	mu        sync.Mutex
	phase     Phase
	date      model.Date
	draft     *Draft
	err       error
	gen       uint64
	updatedAt time.Time
}

// NewSession creates a closed session.
func NewSession(store Store) *Session {
	return &Session{store: store, phase: PhaseClosed, updatedAt: time.Now()}
}

func (s *Session) setPhase(to Phase) error {
	if !CanTransition(s.phase, to) {
		if s.phase == PhaseSaving {
			return ErrBusy
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, s.phase, to)
	}
	s.phase = to
	s.updatedAt = time.Now()
	return nil
}

// State returns a snapshot of the session.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Phase: s.phase, Date: s.date, Err: s.err, UpdatedAt: s.updatedAt}
	if s.draft != nil {
		o := s.draft.Override()
		snap.Draft = &o
	}
	return snap
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Open starts editing date. Any unsaved draft is discarded. The draft is
// seeded from the stored override when one exists, otherwise from templateDay.
func (s *Session) Open(ctx context.Context, date model.Date, templateDay *model.DaySchedule) error {
	s.mu.Lock()
	if err := s.setPhase(PhaseLoading); err != nil {
		s.mu.Unlock()
		return err
	}
	s.gen++
	gen := s.gen
	s.date = date
	s.draft = nil
	s.err = nil
	s.mu.Unlock()

	existing, err := s.lookup(ctx, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.phase != PhaseLoading {
		return ErrSuperseded
	}
	if err != nil {
		s.err = err
		_ = s.setPhase(PhaseError)
		return err
	}
	if existing != nil {
		s.draft = SeedFromOverride(*existing)
	} else {
		s.draft = SeedFromTemplate(date, templateDay)
	}
	return s.setPhase(PhaseDraft)
}

// Edit applies fn to a copy of the draft and keeps the result only if fn succeeds.
// Editing after a failed save resumes the draft.
func (s *Session) Edit(fn func(*Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseLoading, PhaseSaving:
		return ErrBusy
	case PhaseDraft, PhaseError:
	default:
		return fmt.Errorf("%w: edit while %s", ErrInvalidState, s.phase)
	}
	if s.draft == nil {
		return fmt.Errorf("%w: no draft", ErrInvalidState)
	}

	work := s.draft.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.draft = work
	if s.phase == PhaseError {
		s.err = nil
		return s.setPhase(PhaseDraft)
	}
	return nil
}

// Save validates the draft and writes it. An existing record for the date,
// blocked days included, is updated in place; otherwise a new one is created.
// On failure the draft is kept so the save can be retried.
func (s *Session) Save(ctx context.Context) (*model.OverrideSaveResult, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseLoading, PhaseSaving:
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.draft == nil {
		phase := s.phase
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: save while %s", ErrInvalidState, phase)
	}
	if err := s.draft.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	payload := s.draft.Override()
	if err := s.setPhase(PhaseSaving); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	res, err := s.persist(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		_ = s.setPhase(PhaseError)
		return nil, err
	}
	s.draft = nil
	s.err = nil
	_ = s.setPhase(PhaseClosed)
	return res, nil
}

// Close discards the draft without writing anything.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseClosed {
		return nil
	}
	if err := s.setPhase(PhaseClosed); err != nil {
		return err
	}
	s.gen++
	s.draft = nil
	s.err = nil
	return nil
}

func (s *Session) lookup(ctx context.Context, date model.Date) (*model.DayOverride, error) {
	list, err := s.store.ListOverrides(ctx, model.SingleDate(date))
	if err != nil {
		return nil, err
	}
	for _, o := range list {
		if o.Date == date {
			found := o.Clone()
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Session) persist(ctx context.Context, o model.DayOverride) (*model.OverrideSaveResult, error) {
	existing, err := s.lookup(ctx, o.Date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		o.ID = existing.ID
		return s.store.UpdateOverride(ctx, existing.ID, o)
	}
	o.ID = ""
	return s.store.CreateOverride(ctx, o)
}
