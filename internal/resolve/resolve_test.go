package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsched/internal/model"
)

func clk(s string) model.Clock { return model.MustClock(s) }

func mondayOnlyTemplate() model.FullTemplate {
	tpl := model.NewFullTemplate()
	tpl.Days[1].IsActive = true
	tpl.Days[1].BreakTimes = []model.BreakInterval{{StartTime: clk("12:00"), EndTime: clk("13:00")}}
	return tpl
}

func TestResolve_FromTemplate(t *testing.T) {
	tpl := mondayOnlyTemplate()

	mon := Resolve(tpl, model.MustDate("2025-06-09"), nil)
	assert.Equal(t, model.SourceTemplate, mon.Source)
	assert.True(t, mon.IsAvailable)
	assert.Equal(t, clk("09:00"), mon.StartTime)
	assert.Len(t, mon.BreakTimes, 1)

	tue := Resolve(tpl, model.MustDate("2025-06-10"), nil)
	assert.False(t, tue.IsAvailable)
	assert.Equal(t, model.SourceTemplate, tue.Source)
}

func TestResolve_OverrideWins(t *testing.T) {
	tpl := mondayOnlyTemplate()
	date := model.MustDate("2025-06-10")

	open := &model.DayOverride{Date: date, IsAvailable: true, StartTime: clk("10:00"), EndTime: clk("14:00"), SlotDuration: model.Slot30}
	got := Resolve(tpl, date, open)
	assert.Equal(t, model.SourceOverride, got.Source)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, clk("10:00"), got.StartTime)
	assert.Equal(t, clk("14:00"), got.EndTime)
	assert.False(t, tpl.Days[2].IsActive)

	monday := model.MustDate("2025-06-09")
	blocked := &model.DayOverride{Date: monday, IsAvailable: false}
	assert.False(t, Resolve(tpl, monday, blocked).IsAvailable)
}

func TestResolve_OverridePrecedenceForEveryTemplateState(t *testing.T) {
	date := model.MustDate("2025-06-10")
	for _, active := range []bool{true, false} {
		for _, available := range []bool{true, false} {
			tpl := model.NewFullTemplate()
			tpl.Days[date.Weekday()].IsActive = active
			o := &model.DayOverride{Date: date, IsAvailable: available, StartTime: clk("08:00"), EndTime: clk("09:00"), SlotDuration: model.Slot15}
			assert.Equal(t, available, Resolve(tpl, date, o).IsAvailable)
		}
	}
}

func TestResolve_IgnoresOverrideForOtherDate(t *testing.T) {
	tpl := mondayOnlyTemplate()
	other := &model.DayOverride{Date: model.MustDate("2025-06-11"), IsAvailable: true}
	got := Resolve(tpl, model.MustDate("2025-06-10"), other)
	assert.Equal(t, model.SourceTemplate, got.Source)
	assert.False(t, got.IsAvailable)
}

func TestResolve_Idempotent(t *testing.T) {
	tpl := mondayOnlyTemplate()
	date := model.MustDate("2025-06-09")
	o := &model.DayOverride{Date: date, IsAvailable: true, StartTime: clk("07:00"), EndTime: clk("11:00"),
		BreakTimes: []model.BreakInterval{{StartTime: clk("09:00"), EndTime: clk("09:15")}}}

	first := Resolve(tpl, date, o)
	second := Resolve(tpl, date, o)
	assert.Equal(t, first, second)

	// mutating the output does not leak into inputs or later results
	first.BreakTimes[0].StartTime = clk("10:00")
	assert.Equal(t, clk("09:00"), o.BreakTimes[0].StartTime)
	assert.Equal(t, second, Resolve(tpl, date, o))

	plain := Resolve(tpl, date, nil)
	plain.BreakTimes[0].EndTime = clk("15:00")
	assert.Equal(t, clk("13:00"), tpl.Days[1].BreakTimes[0].EndTime)
}

func TestResolveHorizon(t *testing.T) {
	tpl := mondayOnlyTemplate()
	h := model.NewHorizon(model.MustDate("2025-06-09"), 7)
	overrides := []model.DayOverride{
		{Date: model.MustDate("2025-06-10"), IsAvailable: true, StartTime: clk("10:00"), EndTime: clk("14:00")},
		{Date: model.MustDate("2025-06-09"), IsAvailable: false},
	}

	days := ResolveHorizon(tpl, h, overrides)
	require.Len(t, days, 7)
	assert.False(t, days[0].IsAvailable)
	assert.Equal(t, model.SourceOverride, days[0].Source)
	assert.True(t, days[1].IsAvailable)
	for _, d := range days[2:] {
		assert.False(t, d.IsAvailable)
		assert.Equal(t, model.SourceTemplate, d.Source)
	}
}
