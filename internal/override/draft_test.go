package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsched/internal/model"
	"medsched/internal/timerange"
)

func clk(s string) model.Clock { return model.MustClock(s) }

func brk(start, end string) model.BreakInterval {
	return model.BreakInterval{StartTime: clk(start), EndTime: clk(end)}
}

func TestSeedFromTemplate(t *testing.T) {
	date := model.MustDate("2025-06-10")

	d := SeedFromTemplate(date, nil)
	o := d.Override()
	assert.True(t, o.IsAvailable)
	assert.Equal(t, clk("09:00"), o.StartTime)
	assert.Equal(t, clk("17:00"), o.EndTime)
	assert.Equal(t, model.Slot30, o.SlotDuration)
	assert.Empty(t, o.BreakTimes)
	assert.Equal(t, date, o.Date)
	assert.Empty(t, d.ID())

	day := model.DefaultDay(2)
	day.IsActive = true
	day.StartTime = clk("08:00")
	day.BreakTimes = []model.BreakInterval{brk("12:00", "13:00")}
	d = SeedFromTemplate(date, &day)
	o = d.Override()
	assert.True(t, o.IsAvailable)
	assert.Equal(t, clk("08:00"), o.StartTime)
	assert.Equal(t, day.BreakTimes, o.BreakTimes)

	// the draft does not alias the template day
	day.BreakTimes[0] = brk("14:00", "15:00")
	assert.Equal(t, brk("12:00", "13:00"), d.Override().BreakTimes[0])

	inactive := model.DefaultDay(2)
	assert.False(t, SeedFromTemplate(date, &inactive).Override().IsAvailable)
}

func TestSeedFromOverride(t *testing.T) {
	stored := model.DayOverride{
		ID:           "ovr-1",
		Date:         model.MustDate("2025-06-10"),
		IsAvailable:  false,
		StartTime:    clk("10:00"),
		EndTime:      clk("14:00"),
		SlotDuration: model.Slot60,
	}
	d := SeedFromOverride(stored)
	assert.Equal(t, "ovr-1", d.ID())
	assert.Equal(t, stored, d.Override())
}

func TestDraft_WindowRulesOnlyWhenAvailable(t *testing.T) {
	d := SeedFromTemplate(model.MustDate("2025-06-10"), nil)

	assert.ErrorIs(t, d.SetWindow(clk("14:00"), clk("10:00")), timerange.ErrInvalidWindow)
	assert.Equal(t, clk("09:00"), d.Override().StartTime)

	require.NoError(t, d.SetAvailable(false))
	require.NoError(t, d.SetWindow(clk("14:00"), clk("10:00")))
	assert.NoError(t, d.Validate())

	// reopening the date with broken hours is refused
	assert.ErrorIs(t, d.SetAvailable(true), timerange.ErrInvalidWindow)
	assert.False(t, d.Override().IsAvailable)

	require.NoError(t, d.SetWindow(clk("10:00"), clk("14:00")))
	require.NoError(t, d.SetAvailable(true))
	assert.NoError(t, d.Validate())
}

func TestDraft_Breaks(t *testing.T) {
	d := SeedFromTemplate(model.MustDate("2025-06-10"), nil)

	require.NoError(t, d.AddBreak(brk("10:00", "10:30")))
	require.NoError(t, d.AddBreak(brk("12:00", "13:00")))
	assert.ErrorIs(t, d.AddBreak(brk("15:00", "15:15")), timerange.ErrTooManyBreaks)
	assert.ErrorIs(t, d.SetWindow(clk("11:00"), clk("17:00")), timerange.ErrBreakOutsideWindow)

	require.NoError(t, d.RemoveBreak(1))
	assert.Equal(t, []model.BreakInterval{brk("10:00", "10:30")}, d.Override().BreakTimes)
	assert.ErrorIs(t, d.RemoveBreak(5), ErrNoSuchBreak)

	assert.ErrorIs(t, d.SetSlotDuration(model.SlotDuration(25)), timerange.ErrInvalidSlotDuration)
	require.NoError(t, d.SetSlotDuration(model.Slot15))
	assert.Equal(t, model.Slot15, d.Override().SlotDuration)
}
