// Package catalog holds the draftable shift pool of a single draft.
//
// A Catalog is not safe for concurrent use; the engine guards it with the
// owning draft's lock.
package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/models"
)

var (
	// ErrUnknownShift is returned for a shift id that is not in the pool.
	ErrUnknownShift = errors.New("shift is not in the draft pool")
	// ErrAlreadyClaimed is returned when a shift is claimed a second time.
	ErrAlreadyClaimed = errors.New("shift already claimed")
	// ErrInvalidShift is returned when a shift fails validation on add.
	ErrInvalidShift = errors.New("invalid shift")
)

// Catalog is the shift pool and its claimed set.
type Catalog struct {
	shifts  []models.DraftableShift // insertion order
	index   map[uuid.UUID]int
	claimed map[uuid.UUID]struct{}
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		index:   make(map[uuid.UUID]int),
		claimed: make(map[uuid.UUID]struct{}),
	}
}

// Add validates the whole batch and appends it. Nothing is added if any
// shift is rejected.
func (c *Catalog) Add(shifts ...models.DraftableShift) error {
	seen := make(map[uuid.UUID]struct{}, len(shifts))
	for i, s := range shifts {
		if err := validateShift(s); err != nil {
			return fmt.Errorf("shift %d: %w", i, err)
		}
		if _, dup := c.index[s.ID]; dup {
			return fmt.Errorf("%w: shift %s already in pool", ErrInvalidShift, s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: shift %s repeated in batch", ErrInvalidShift, s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	for _, s := range shifts {
		c.index[s.ID] = len(c.shifts)
		c.shifts = append(c.shifts, copyShift(s))
	}
	return nil
}

// Len returns the size of the pool, claimed shifts included.
func (c *Catalog) Len() int {
	return len(c.shifts)
}

// Contains reports whether the shift is part of the pool.
func (c *Catalog) Contains(id uuid.UUID) bool {
	_, ok := c.index[id]
	return ok
}

// Available reports whether the shift is in the pool and unclaimed.
func (c *Catalog) Available(id uuid.UUID) bool {
	if !c.Contains(id) {
		return false
	}
	_, taken := c.claimed[id]
	return !taken
}

// Get returns a copy of the shift.
func (c *Catalog) Get(id uuid.UUID) (models.DraftableShift, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.DraftableShift{}, false
	}
	return copyShift(c.shifts[i]), true
}

// RemainingCount returns how many shifts are still unclaimed.
func (c *Catalog) RemainingCount() int {
	return len(c.shifts) - len(c.claimed)
}

// Remaining returns the unclaimed shifts in pool order.
func (c *Catalog) Remaining() []models.DraftableShift {
	out := make([]models.DraftableShift, 0, c.RemainingCount())
	for _, s := range c.shifts {
		if _, taken := c.claimed[s.ID]; taken {
			continue
		}
		out = append(out, copyShift(s))
	}
	return out
}

// All returns the whole pool in insertion order.
func (c *Catalog) All() []models.DraftableShift {
	out := make([]models.DraftableShift, len(c.shifts))
	for i, s := range c.shifts {
		out[i] = copyShift(s)
	}
	return out
}

// Claim marks the shift as taken.
func (c *Catalog) Claim(id uuid.UUID) error {
	if !c.Contains(id) {
		return fmt.Errorf("%w: %s", ErrUnknownShift, id)
	}
	if _, taken := c.claimed[id]; taken {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, id)
	}
	c.claimed[id] = struct{}{}
	return nil
}

func validateShift(s models.DraftableShift) error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrInvalidShift)
	}
	if s.PointValue < 0 {
		return fmt.Errorf("%w: point_value cannot be negative", ErrInvalidShift)
	}
	if !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidShift)
	}
	switch s.Difficulty {
	case "", models.ShiftDifficultyEasy, models.ShiftDifficultyModerate, models.ShiftDifficultyHard:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidShift, s.Difficulty)
	}
	return nil
}

func copyShift(s models.DraftableShift) models.DraftableShift {
	if s.Description != nil {
		d := *s.Description
		s.Description = &d
	}
	return s
}
