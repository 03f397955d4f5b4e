package gate

import (
	"slices"

	"github.com/DoyleJ11/ddz-client/internal/engine"
)

// Selection holds positions into the canonically sorted hand. It is owned by
// a single session goroutine and is not safe for concurrent use.
type Selection struct {
	picked map[int]struct{}
}

func NewSelection() *Selection {
	return &Selection{picked: map[int]struct{}{}}
}

// Toggle flips index in or out of the selection. Indices outside the hand are
// rejected so the selection never refers to a card the client does not hold.
func (s *Selection) Toggle(index, handLen int) error {
	if index < 0 || index >= handLen {
		return ErrSelectionOutOfRange
	}
	if _, ok := s.picked[index]; ok {
		delete(s.picked, index)
		return nil
	}
	s.picked[index] = struct{}{}
	return nil
}

func (s *Selection) Clear() {
	clear(s.picked)
}

func (s *Selection) Len() int {
	return len(s.picked)
}

// Indices returns the selected positions in ascending order.
func (s *Selection) Indices() []int {
	out := make([]int, 0, len(s.picked))
	for i := range s.picked {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Prune drops indices that no longer fit a hand of handLen cards.
func (s *Selection) Prune(handLen int) {
	for i := range s.picked {
		if i >= handLen {
			delete(s.picked, i)
		}
	}
}

// BuildPlay resolves the selection against hand, which must already be in
// canonical order. The result is ordered the way the hand is.
func BuildPlay(sel *Selection, hand []engine.Card) ([]engine.Card, error) {
	if sel == nil || sel.Len() == 0 {
		return nil, ErrEmptySelection
	}
	idx := sel.Indices()
	cards := make([]engine.Card, 0, len(idx))
	for _, i := range idx {
		if i >= len(hand) {
			return nil, ErrSelectionOutOfRange
		}
		cards = append(cards, hand[i])
	}
	if !engine.ContainsAll(hand, cards) {
		return nil, ErrSelectionOutOfRange
	}
	return cards, nil
}
