// Package order derives who acts for any overall pick number.
package order

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoParticipants is returned when an order is requested for an empty roster.
var ErrNoParticipants = errors.New("draft order is empty")

// Round returns the 0-indexed round of pickNumber for a roster of n participants.
func Round(pickNumber, n int) int {
	if n <= 0 {
		return 0
	}
	return pickNumber / n
}

// IndexFor returns the roster index acting on pickNumber. Even rounds run
// front to back, odd rounds back to front.
func IndexFor(pickNumber, n int) int {
	round := pickNumber / n
	inRound := pickNumber % n
	if round%2 == 0 {
		return inRound
	}
	return n - 1 - inRound
}

// Snake returns the participant who acts on the zero-based pickNumber.
func Snake(participants []uuid.UUID, pickNumber int) (uuid.UUID, error) {
	n := len(participants)
	if n == 0 {
		return uuid.Nil, ErrNoParticipants
	}
	if pickNumber < 0 {
		return uuid.Nil, errors.New("pick number cannot be negative")
	}
	return participants[IndexFor(pickNumber, n)], nil
}

// Sequence expands the full acting order for the first total picks.
func Sequence(participants []uuid.UUID, total int) ([]uuid.UUID, error) {
	n := len(participants)
	if n == 0 {
		return nil, ErrNoParticipants
	}
	seq := make([]uuid.UUID, 0, total)
	for pick := 0; pick < total; pick++ {
		seq = append(seq, participants[IndexFor(pick, n)])
	}
	return seq, nil
}
