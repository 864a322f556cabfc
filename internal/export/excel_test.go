package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"medsched/internal/model"
)

func TestWriteSchedule(t *testing.T) {
	days := []model.EffectiveSchedule{
		{
			Date:         model.MustDate("2025-03-10"),
			Source:       model.SourceTemplate,
			IsAvailable:  true,
			StartTime:    model.MustClock("09:00"),
			EndTime:      model.MustClock("17:00"),
			SlotDuration: model.Slot30,
			BreakTimes: []model.BreakInterval{
				{StartTime: model.MustClock("12:00"), EndTime: model.MustClock("13:00")},
				{StartTime: model.MustClock("15:00"), EndTime: model.MustClock("15:15")},
			},
		},
		{
			Date:         model.MustDate("2025-03-11"),
			Source:       model.SourceOverride,
			IsAvailable:  false,
			StartTime:    model.MustClock("09:00"),
			EndTime:      model.MustClock("17:00"),
			SlotDuration: model.Slot30,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSchedule(&buf, days))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, scheduleColumns, rows[0])
	assert.Equal(t, []string{"2025-03-10", "Monday", "template", "yes", "09:00", "17:00", "30", "12:00-13:00, 15:00-15:15"}, rows[1])
	assert.Equal(t, []string{"2025-03-11", "Tuesday", "override", "no"}, rows[2])
}

func TestWriteSchedule_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchedule(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
