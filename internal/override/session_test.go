package override

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsched/internal/model"
	"medsched/internal/timerange"
)

// fakeStore keeps overrides in memory and records write calls.
type fakeStore struct {
	mu        sync.Mutex
	overrides map[model.Date]model.DayOverride
	nextID    int
	creates   int
	updates   []string
	listErr   error
	writeErr  error
	warning   string
	// block, when set, holds ListOverrides until closed.
	block chan struct{}
	// writeBlock, when set, holds writes until closed; writeEntered is
	// signalled as each write starts.
	writeBlock   chan struct{}
	writeEntered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{overrides: make(map[model.Date]model.DayOverride)}
}

func (f *fakeStore) ListOverrides(ctx context.Context, q model.OverrideQuery) ([]model.DayOverride, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.DayOverride
	for d, o := range f.overrides {
		if d.Before(q.From) || d.After(q.To) {
			continue
		}
		if !o.IsAvailable && !q.IncludeUnavailable {
			continue
		}
		out = append(out, o.Clone())
	}
	return out, nil
}

func (f *fakeStore) waitWrite() {
	if f.writeEntered != nil {
		f.writeEntered <- struct{}{}
	}
	if f.writeBlock != nil {
		<-f.writeBlock
	}
}

func (f *fakeStore) CreateOverride(ctx context.Context, o model.DayOverride) (*model.OverrideSaveResult, error) {
	f.waitWrite()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.creates++
	f.nextID++
	o.ID = "ovr-" + string(rune('0'+f.nextID))
	f.overrides[o.Date] = o.Clone()
	return &model.OverrideSaveResult{Message: "created", Warning: f.warning, Availability: &o}, nil
}

func (f *fakeStore) UpdateOverride(ctx context.Context, id string, o model.DayOverride) (*model.OverrideSaveResult, error) {
	f.waitWrite()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.updates = append(f.updates, id)
	o.ID = id
	f.overrides[o.Date] = o.Clone()
	return &model.OverrideSaveResult{Message: "updated", Warning: f.warning, Availability: &o}, nil
}

var june10 = model.MustDate("2025-06-10")

const (
	timeoutShort = time.Second
	tick         = 5 * time.Millisecond
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		allowed  bool
	}{
		{PhaseClosed, PhaseLoading, true},
		{PhaseLoading, PhaseDraft, true},
		{PhaseDraft, PhaseSaving, true},
		{PhaseSaving, PhaseClosed, true},
		{PhaseSaving, PhaseError, true},
		{PhaseError, PhaseSaving, true},
		{PhaseClosed, PhaseSaving, false},
		{PhaseLoading, PhaseSaving, false},
		{PhaseSaving, PhaseDraft, false},
		{PhaseSaving, PhaseLoading, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSession_CreateWhenNoRecord(t *testing.T) {
	store := newFakeStore()
	s := NewSession(store)
	ctx := context.Background()

	tuesday := model.DefaultDay(2) // inactive
	require.NoError(t, s.Open(ctx, june10, &tuesday))
	assert.Equal(t, PhaseDraft, s.Phase())

	require.NoError(t, s.Edit(func(d *Draft) error {
		if err := d.SetAvailable(true); err != nil {
			return err
		}
		return d.SetWindow(clk("10:00"), clk("14:00"))
	}))

	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "created", res.Message)
	assert.Equal(t, 1, store.creates)
	assert.Empty(t, store.updates)
	assert.Equal(t, PhaseClosed, s.Phase())

	saved := store.overrides[june10]
	assert.True(t, saved.IsAvailable)
	assert.Equal(t, clk("10:00"), saved.StartTime)
	assert.Equal(t, clk("14:00"), saved.EndTime)
}

func TestSession_UpdatesBlockedRecordInPlace(t *testing.T) {
	store := newFakeStore()
	store.overrides[june10] = model.DayOverride{ID: "ovr-blocked", Date: june10, IsAvailable: false,
		StartTime: clk("09:00"), EndTime: clk("17:00"), SlotDuration: model.Slot30}
	s := NewSession(store)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, june10, nil))
	snap := s.State()
	require.NotNil(t, snap.Draft)
	assert.Equal(t, "ovr-blocked", snap.Draft.ID)
	assert.False(t, snap.Draft.IsAvailable)

	require.NoError(t, s.Edit(func(d *Draft) error { return d.SetAvailable(true) }))
	_, err := s.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, store.creates)
	assert.Equal(t, []string{"ovr-blocked"}, store.updates)
	assert.True(t, store.overrides[june10].IsAvailable)
}

func TestSession_ValidationBlocksSaveBeforeNetwork(t *testing.T) {
	store := newFakeStore()
	s := NewSession(store)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, june10, nil))

	// bypass the edit-time checks the way a corrupted stored record would
	s.mu.Lock()
	s.draft.record.StartTime = clk("18:00")
	s.mu.Unlock()

	store.listErr = errors.New("must not be called")
	_, err := s.Save(ctx)
	assert.ErrorIs(t, err, timerange.ErrInvalidWindow)
	assert.Equal(t, PhaseDraft, s.Phase())
	assert.Equal(t, 0, store.creates)
}

func TestSession_FailedEditKeepsDraft(t *testing.T) {
	s := NewSession(newFakeStore())
	require.NoError(t, s.Open(context.Background(), june10, nil))

	err := s.Edit(func(d *Draft) error {
		require.NoError(t, d.AddBreak(brk("12:00", "13:00")))
		return d.AddBreak(brk("12:30", "13:30"))
	})
	assert.ErrorIs(t, err, timerange.ErrBreakOverlap)
	assert.Empty(t, s.State().Draft.BreakTimes)
}

func TestSession_GatewayFailurePreservesDraft(t *testing.T) {
	store := newFakeStore()
	s := NewSession(store)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, june10, nil))
	require.NoError(t, s.Edit(func(d *Draft) error { return d.SetWindow(clk("11:00"), clk("15:00")) }))

	store.writeErr = errors.New("http 503")
	_, err := s.Save(ctx)
	require.Error(t, err)

	snap := s.State()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.EqualError(t, snap.Err, "http 503")
	require.NotNil(t, snap.Draft)
	assert.Equal(t, clk("11:00"), snap.Draft.StartTime)

	store.writeErr = nil
	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "created", res.Message)
	assert.Equal(t, clk("11:00"), store.overrides[june10].StartTime)
}

func TestSession_LoadFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("timeout")
	s := NewSession(store)
	ctx := context.Background()

	assert.Error(t, s.Open(ctx, june10, nil))
	assert.Equal(t, PhaseError, s.Phase())
	_, err := s.Save(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)

	store.listErr = nil
	require.NoError(t, s.Open(ctx, june10, nil))
	assert.Equal(t, PhaseDraft, s.Phase())
}

func TestSession_WarningIsNotAnError(t *testing.T) {
	store := newFakeStore()
	store.warning = "2 booked appointments may fall outside the new hours"
	s := NewSession(store)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, june10, nil))

	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, res.HasWarning())
	assert.Equal(t, PhaseClosed, s.Phase())
}

func TestSession_CloseDiscardsDraft(t *testing.T) {
	store := newFakeStore()
	s := NewSession(store)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, june10, nil))
	require.NoError(t, s.Edit(func(d *Draft) error { return d.SetAvailable(false) }))

	require.NoError(t, s.Close())
	assert.Equal(t, PhaseClosed, s.Phase())
	assert.Nil(t, s.State().Draft)
	assert.Empty(t, store.overrides)

	_, err := s.Save(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, s.Edit(func(*Draft) error { return nil }), ErrInvalidState)
}

func TestSession_CloseDuringLoadSupersedesIt(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	s := NewSession(store)

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), june10, nil) }()

	require.Eventually(t, func() bool { return s.Phase() == PhaseLoading }, timeoutShort, tick)
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, s.Close())
	close(store.block)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, PhaseClosed, s.Phase())
}

func TestSession_SecondSaveWhileSavingIsBusy(t *testing.T) {
	store := newFakeStore()
	store.writeBlock = make(chan struct{})
	store.writeEntered = make(chan struct{}, 2)
	s := NewSession(store)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, june10, nil))

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(ctx)
		done <- err
	}()

	select {
	case <-store.writeEntered:
	case <-time.After(timeoutShort):
		t.Fatal("first save never reached the store")
	}
	assert.Equal(t, PhaseSaving, s.Phase())

	_, err := s.Save(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Edit(func(*Draft) error { return nil }), ErrBusy)
	assert.ErrorIs(t, s.Open(ctx, june10, nil), ErrBusy)

	close(store.writeBlock)
	require.NoError(t, <-done)

	assert.Equal(t, 1, store.creates)
	assert.Empty(t, store.updates)
	assert.Empty(t, store.writeEntered)
	assert.Equal(t, PhaseClosed, s.Phase())
}
