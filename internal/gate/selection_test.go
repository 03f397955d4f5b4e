package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ddz-client/internal/engine"
)

func TestSelectionToggle(t *testing.T) {
	s := NewSelection()
	require.NoError(t, s.Toggle(2, 5))
	require.NoError(t, s.Toggle(0, 5))
	assert.Equal(t, []int{0, 2}, s.Indices())

	require.NoError(t, s.Toggle(2, 5))
	assert.Equal(t, []int{0}, s.Indices())

	require.ErrorIs(t, s.Toggle(5, 5), ErrSelectionOutOfRange)
	require.ErrorIs(t, s.Toggle(-1, 5), ErrSelectionOutOfRange)

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestSelectionStaysWithinHand(t *testing.T) {
	s := NewSelection()
	for _, i := range []int{0, 4, 9, 4, 3, 12, 1} {
		_ = s.Toggle(i, 10)
		for _, idx := range s.Indices() {
			assert.Less(t, idx, 10)
		}
	}
	s.Prune(3)
	assert.Equal(t, []int{0, 1}, s.Indices())
}

func TestBuildPlayResolvesCards(t *testing.T) {
	hand := engine.SortCanonical([]engine.Card{
		{Suit: engine.SuitClubs, Rank: engine.RankKing},
		{Suit: engine.SuitSpades, Rank: engine.RankThree},
		{Suit: engine.SuitHearts, Rank: engine.RankThree},
	})

	s := NewSelection()
	_, err := BuildPlay(s, hand)
	require.ErrorIs(t, err, ErrEmptySelection)

	require.NoError(t, s.Toggle(1, len(hand)))
	require.NoError(t, s.Toggle(0, len(hand)))
	cards, err := BuildPlay(s, hand)
	require.NoError(t, err)
	assert.Equal(t, []engine.Card{
		{Suit: engine.SuitSpades, Rank: engine.RankThree},
		{Suit: engine.SuitHearts, Rank: engine.RankThree},
	}, cards)

	_, err = BuildPlay(s, hand[:1])
	require.ErrorIs(t, err, ErrSelectionOutOfRange)
}

func TestPlayRequest(t *testing.T) {
	v := viewOf(engine.PhasePlay, "p1",
		engine.Card{Suit: engine.SuitSpades, Rank: engine.RankThree},
		engine.Card{Suit: engine.SuitHearts, Rank: engine.RankThree},
	)
	s := NewSelection()
	_, err := Play(v, "p1", live, s)
	require.ErrorIs(t, err, ErrEmptySelection)

	require.NoError(t, s.Toggle(0, 2))
	msg, err := Play(v, "p1", live, s)
	require.NoError(t, err)
	assert.Equal(t, "p1", msg.PlayerID)
	assert.Len(t, msg.Cards, 1)
}
