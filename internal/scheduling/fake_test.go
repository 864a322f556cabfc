package scheduling

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"medsched/internal/model"
)

// memoryGateway behaves like the schedule API: template writes upsert the
// received days only, overrides are unique per date.
type memoryGateway struct {
	mu        sync.Mutex
	template  model.FullTemplate
	overrides map[model.Date]model.DayOverride
	patches   [][]model.DaySchedule
	nextID    int
	warning   string
	listErr   error
	// saveGate, when set, holds SaveWeeklyTemplate until closed.
	saveGate    chan struct{}
	saveEntered chan struct{}
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{
		template:  model.NewFullTemplate(),
		overrides: make(map[model.Date]model.DayOverride),
	}
}

func (g *memoryGateway) GetWeeklyTemplate(ctx context.Context) (model.FullTemplate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.template.Clone(), nil
}

func (g *memoryGateway) SaveWeeklyTemplate(ctx context.Context, patch model.ActiveDaysPatch) (*model.TemplateSaveResult, error) {
	if g.saveEntered != nil {
		g.saveEntered <- struct{}{}
	}
	if g.saveGate != nil {
		<-g.saveGate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	days := patch.Days()
	g.patches = append(g.patches, days)
	for _, d := range days {
		g.template.Days[d.DayOfWeek] = d.Clone()
	}
	return &model.TemplateSaveResult{Message: "Schedule updated"}, nil
}

func (g *memoryGateway) ListOverrides(ctx context.Context, q model.OverrideQuery) ([]model.DayOverride, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	var out []model.DayOverride
	for d, o := range g.overrides {
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

func (g *memoryGateway) CreateOverride(ctx context.Context, o model.DayOverride) (*model.OverrideSaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.overrides[o.Date]; ok {
		return nil, fmt.Errorf("duplicate %s", o.Date)
	}
	g.nextID++
	o.ID = fmt.Sprintf("ovr-%d", g.nextID)
	g.overrides[o.Date] = o.Clone()
	return &model.OverrideSaveResult{Message: "created", Warning: g.warning, Availability: &o}, nil
}

func (g *memoryGateway) UpdateOverride(ctx context.Context, id string, o model.DayOverride) (*model.OverrideSaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o.ID = id
	g.overrides[o.Date] = o.Clone()
	return &model.OverrideSaveResult{Message: "updated", Warning: g.warning, Availability: &o}, nil
}

func (g *memoryGateway) setListErr(err error) {
	g.mu.Lock()
	g.listErr = err
	g.mu.Unlock()
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetWeeklyTemplate(ctx context.Context) (model.FullTemplate, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.FullTemplate), args.Error(1)
}

func (m *mockGateway) SaveWeeklyTemplate(ctx context.Context, patch model.ActiveDaysPatch) (*model.TemplateSaveResult, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TemplateSaveResult), args.Error(1)
}

func (m *mockGateway) ListOverrides(ctx context.Context, q model.OverrideQuery) ([]model.DayOverride, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DayOverride), args.Error(1)
}

func (m *mockGateway) CreateOverride(ctx context.Context, o model.DayOverride) (*model.OverrideSaveResult, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OverrideSaveResult), args.Error(1)
}

func (m *mockGateway) UpdateOverride(ctx context.Context, id string, o model.DayOverride) (*model.OverrideSaveResult, error) {
	args := m.Called(ctx, id, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OverrideSaveResult), args.Error(1)
}
