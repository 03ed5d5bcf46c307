// Package process models scheduled units of work resolved by the tick scheduler.
package process

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"empires-server/internal/hexgrid"
	apperrors "empires-server/internal/shared/errors"
)

const (
	HandlerConstruction = "construction"
	HandlerShip         = "ship"
	HandlerMovement     = "movement"
)

// Process is pending from StartTick until the world reaches EndTick, then resolved once.
type Process struct {
	ID        int64           `json:"id"`
	StartTick int64           `json:"start_tick"`
	EndTick   int64           `json:"end_tick"`
	HandlerID string          `json:"handler_id"`
	Data      json.RawMessage `json:"data"`
}

// New builds an unsaved process. Duration must be at least one tick so every process
// is observable as pending.
func New(startTick, durationTicks int64, handlerID string, payload any) (Process, error) {
	if durationTicks < 1 {
		return Process{}, apperrors.Schedulingf("duration must be at least 1 tick, got %d", durationTicks)
	}
	if handlerID == "" {
		return Process{}, apperrors.Schedulingf("handler id is required")
	}
	if startTick < 0 {
		return Process{}, apperrors.Schedulingf("start tick must not be negative, got %d", startTick)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Process{}, apperrors.WrapValidation("payload is not serializable", err)
	}
	return Process{
		StartTick: startTick,
		EndTick:   startTick + durationTicks,
		HandlerID: handlerID,
		Data:      data,
	}, nil
}

// Decode unmarshals the payload into v.
func (p Process) Decode(v any) error {
	if err := json.Unmarshal(p.Data, v); err != nil {
		return fmt.Errorf("process %d: decode %s payload: %w", p.ID, p.HandlerID, err)
	}
	return nil
}

func (p Process) DueAt(tick int64) bool {
	return p.EndTick <= tick
}

// ResolveDue splits processes into those due at currentTick and those still pending.
// Due processes come back ordered by end tick, then id, so resolution is repeatable.
func ResolveDue(currentTick int64, pending []Process) (due, stillPending []Process) {
	for _, p := range pending {
		if p.DueAt(currentTick) {
			due = append(due, p)
		} else {
			stillPending = append(stillPending, p)
		}
	}
	Sort(due)
	return due, stillPending
}

// Sort orders processes by end tick, then id.
func Sort(ps []Process) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].EndTick != ps[j].EndTick {
			return ps[i].EndTick < ps[j].EndTick
		}
		return ps[i].ID < ps[j].ID
	})
}

// BuildPayload is the data of construction and ship processes.
type BuildPayload struct {
	BlueprintID int64 `json:"blueprint_id"`
	CelestialID int64 `json:"celestial_id"`
	Size        int   `json:"size"`
}

// MovementPayload is the data of movement processes.
type MovementPayload struct {
	MovableID   int64        `json:"movable_id"`
	Destination hexgrid.Cell `json:"destination"`
}

// Failure records a process discarded during resolution.
type Failure struct {
	ID         int64            `json:"id"`
	ProcessID  int64            `json:"process_id"`
	HandlerID  string           `json:"handler_id"`
	Tick       int64            `json:"tick"`
	Reason     apperrors.Reason `json:"reason"`
	Message    string           `json:"message"`
	Data       json.RawMessage  `json:"data"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// Filter narrows process listings. Zero values match everything.
type Filter struct {
	DueBy       int64
	CelestialID int64
	HandlerID   string
}
