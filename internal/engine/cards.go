package engine

import "slices"

type Suit string

const (
	SuitClubs    Suit = "CLUBS"
	SuitDiamonds Suit = "DIAMONDS"
	SuitHearts   Suit = "HEARTS"
	SuitSpades   Suit = "SPADES"
	SuitJoker    Suit = "JOKER"
)

type Rank string

const (
	RankThree       Rank = "THREE"
	RankFour        Rank = "FOUR"
	RankFive        Rank = "FIVE"
	RankSix         Rank = "SIX"
	RankSeven       Rank = "SEVEN"
	RankEight       Rank = "EIGHT"
	RankNine        Rank = "NINE"
	RankTen         Rank = "TEN"
	RankJack        Rank = "JACK"
	RankQueen       Rank = "QUEEN"
	RankKing        Rank = "KING"
	RankAce         Rank = "ACE"
	RankTwo         Rank = "TWO"
	RankLittleJoker Rank = "LITTLE_JOKER"
	RankBigJoker    Rank = "BIG_JOKER"
)

// RankOrder is the canonical low-to-high ordering used to lay out a hand.
var RankOrder = []Rank{
	RankThree,
	RankFour,
	RankFive,
	RankSix,
	RankSeven,
	RankEight,
	RankNine,
	RankTen,
	RankJack,
	RankQueen,
	RankKing,
	RankAce,
	RankTwo,
	// Jokers
	RankLittleJoker,
	RankBigJoker,
}

// Card is compared by value. Jokers carry SuitJoker.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) IsJoker() bool {
	return c.Rank == RankLittleJoker || c.Rank == RankBigJoker
}

func (c Card) String() string {
	if c.IsJoker() {
		return string(c.Rank)
	}
	return string(c.Rank) + " of " + string(c.Suit)
}

// RankIndex returns the position of r in RankOrder, or len(RankOrder) for
// ranks the client does not know about so they sort last.
func RankIndex(r Rank) int {
	if i := slices.Index(RankOrder, r); i >= 0 {
		return i
	}
	return len(RankOrder)
}

// SortCanonical returns a sorted copy of cards. Equal ranks keep the order the
// server sent them in.
func SortCanonical(cards []Card) []Card {
	out := slices.Clone(cards)
	slices.SortStableFunc(out, func(a, b Card) int {
		return RankIndex(a.Rank) - RankIndex(b.Rank)
	})
	return out
}

// ContainsAll reports whether every card in sub can be taken from hand
// without reusing a physical card.
func ContainsAll(hand, sub []Card) bool {
	remaining := make(map[Card]int, len(hand))
	for _, c := range hand {
		remaining[c]++
	}
	for _, c := range sub {
		if remaining[c] == 0 {
			return false
		}
		remaining[c]--
	}
	return true
}

// SameCards reports whether a and b lay out identically once sorted, which is
// what local selection indices depend on.
func SameCards(a, b []Card) bool {
	return slices.Equal(SortCanonical(a), SortCanonical(b))
}
