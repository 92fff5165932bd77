package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnake_ReversesOddRounds(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	roster := []uuid.UUID{a, b, c}

	want := []uuid.UUID{a, b, c, c, b, a, a, b, c}
	for pick, expected := range want {
		got, err := Snake(roster, pick)
		require.NoError(t, err)
		assert.Equal(t, expected, got, "pick %d", pick)
	}
}

func TestSnake_SingleParticipantAlwaysActs(t *testing.T) {
	a := uuid.New()
	for pick := 0; pick < 5; pick++ {
		got, err := Snake([]uuid.UUID{a}, pick)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestSnake_EmptyRoster(t *testing.T) {
	_, err := Snake(nil, 0)
	assert.ErrorIs(t, err, ErrNoParticipants)

	_, err = Sequence(nil, 3)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestSnake_NegativePick(t *testing.T) {
	_, err := Snake([]uuid.UUID{uuid.New()}, -1)
	assert.Error(t, err)
}

func TestSequence_EqualizesMeanPositionOverTwoRounds(t *testing.T) {
	roster := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	seq, err := Sequence(roster, 2*len(roster))
	require.NoError(t, err)

	positions := make(map[uuid.UUID]int)
	for pick, p := range seq {
		positions[p] += pick
	}
	// every participant's two picks sum to the same total: i + (2n-1-i)
	for _, p := range roster {
		assert.Equal(t, 2*len(roster)-1, positions[p])
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0, Round(2, 3))
	assert.Equal(t, 1, Round(3, 3))
	assert.Equal(t, 3, Round(10, 3))
	assert.Equal(t, 0, Round(4, 0))
}
