package events

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DatesPayload lists the dates whose bookable slots changed. Empty Dates
// means every date following the weekly template.
type DatesPayload struct {
	Dates []string `json:"dates,omitempty"`
}

// SlotRegenerator rebuilds bookable slots after schedule changes. Slot
// generation lives in the booking system; this side only records the request.
type SlotRegenerator struct {
	logger *zerolog.Logger
	runs   atomic.Int64
}

func NewSlotRegenerator(logger *zerolog.Logger) *SlotRegenerator {
	return &SlotRegenerator{logger: logger}
}

// Register subscribes the regenerator to every schedule change.
func (r *SlotRegenerator) Register(bus *EventBus) {
	bus.Subscribe(TypeTemplateSaved, r.handle)
	bus.Subscribe(TypeOverrideSaved, r.handle)
}

// Runs is the number of regenerations requested so far.
func (r *SlotRegenerator) Runs() int64 { return r.runs.Load() }

func (r *SlotRegenerator) handle(event Event) error {
	var p DatesPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
	}
	r.runs.Add(1)
	r.logger.Info().
		Str("event", event.Type).
		Str("doctor_id", event.DoctorID).
		Strs("dates", p.Dates).
		Msg("slot regeneration requested")
	return nil
}
