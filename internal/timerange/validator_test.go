package timerange

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"medsched/internal/model"
)

func brk(start, end string) model.BreakInterval {
	return model.BreakInterval{StartTime: model.MustClock(start), EndTime: model.MustClock(end)}
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, ValidateWindow(model.MustClock("09:00"), model.MustClock("17:00")))
	assert.ErrorIs(t, ValidateWindow(model.MustClock("17:00"), model.MustClock("09:00")), ErrInvalidWindow)
	assert.ErrorIs(t, ValidateWindow(model.MustClock("09:00"), model.MustClock("09:00")), ErrInvalidWindow)
	assert.NoError(t, ValidateWindow(model.MustClock("20:00"), model.EndOfDay))
}

func TestValidateBreak(t *testing.T) {
	start, end := model.MustClock("09:00"), model.MustClock("17:00")

	tests := []struct {
		name      string
		candidate model.BreakInterval
		existing  []model.BreakInterval
		wantErr   error
	}{
		{"inside window", brk("12:00", "13:00"), nil, nil},
		{"touching window edges", brk("09:00", "17:00"), nil, nil},
		{"starts before window", brk("08:00", "09:30"), nil, ErrBreakOutsideWindow},
		{"ends after window", brk("16:30", "17:30"), nil, ErrBreakOutsideWindow},
		{"inverted", brk("13:00", "12:00"), nil, ErrInvalidWindow},
		{"empty", brk("13:00", "13:00"), nil, ErrInvalidWindow},
		{"overlaps existing", brk("12:30", "13:30"), []model.BreakInterval{brk("12:00", "13:00")}, ErrBreakOverlap},
		{"contains existing", brk("11:00", "14:00"), []model.BreakInterval{brk("12:00", "13:00")}, ErrBreakOverlap},
		{"touches existing", brk("13:00", "13:30"), []model.BreakInterval{brk("12:00", "13:00")}, nil},
		{"third break", brk("15:00", "15:30"), []model.BreakInterval{brk("10:00", "10:15"), brk("12:00", "13:00")}, ErrTooManyBreaks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBreak(tt.candidate, start, end, tt.existing)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidateBreaks(t *testing.T) {
	start, end := model.MustClock("09:00"), model.MustClock("17:00")

	assert.NoError(t, ValidateBreaks(start, end, nil))
	assert.NoError(t, ValidateBreaks(start, end, []model.BreakInterval{brk("10:00", "10:30"), brk("12:00", "13:00")}))
	assert.ErrorIs(t, ValidateBreaks(start, end, []model.BreakInterval{brk("10:00", "11:00"), brk("10:30", "12:00")}), ErrBreakOverlap)
	assert.ErrorIs(t, ValidateBreaks(model.MustClock("11:00"), end, []model.BreakInterval{brk("10:00", "10:30")}), ErrBreakOutsideWindow)
	assert.ErrorIs(t, ValidateBreaks(start, end, []model.BreakInterval{
		brk("10:00", "10:30"), brk("12:00", "13:00"), brk("15:00", "15:30"),
	}), ErrTooManyBreaks)
}

func TestValidateDay(t *testing.T) {
	assert.NoError(t, ValidateDay(model.MustClock("09:00"), model.MustClock("17:00"), model.Slot45, nil))
	assert.ErrorIs(t, ValidateDay(model.MustClock("09:00"), model.MustClock("17:00"), model.SlotDuration(20), nil), ErrInvalidSlotDuration)
	assert.ErrorIs(t, ValidateDay(model.MustClock("18:00"), model.MustClock("17:00"), model.Slot30, nil), ErrInvalidWindow)
}

func TestIsValidation(t *testing.T) {
	assert.False(t, IsValidation(errors.New("boom")))
	assert.False(t, IsValidation(nil))
	wrapped := fmt.Errorf("save: %w", ErrBreakOverlap)
	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, "break_overlap", Code(wrapped))
	assert.Equal(t, "", Code(errors.New("boom")))
}
