package gate

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/ddz-client/internal/engine"
	"github.com/DoyleJ11/ddz-client/internal/types"
)

const DefaultMaxBid = 3

var (
	ErrNotSeated            = errors.New("not seated in this session")
	ErrNotConnected         = errors.New("not connected")
	ErrStaleView            = errors.New("waiting for a fresh update")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrWrongPhase           = errors.New("action not allowed in this phase")
	ErrBidOutOfRange        = errors.New("bid out of range")
	ErrEmptySelection       = errors.New("no cards selected")
	ErrSelectionOutOfRange  = errors.New("selection does not match hand")
	ErrNotAwaitingSelection = errors.New("not awaiting a co-landlord selection")
	ErrUnknownParticipant   = errors.New("participant cannot be selected")
)

// Link is what the transport says about the connection the view came from.
// Fresh means a full update has arrived since the connection last opened.
type Link struct {
	Connected bool
	Fresh     bool
}

type Permissions struct {
	Seated             bool     `json:"seated"`
	MyTurn             bool     `json:"myTurn"`
	IsLandlord         bool     `json:"isLandlord"`
	CanBid             bool     `json:"canBid"`
	MaxBid             int      `json:"maxBid"`
	CanSelectLandlord  bool     `json:"canSelectLandlord"`
	LandlordCandidates []string `json:"landlordCandidates,omitempty"`
	CanPlay            bool     `json:"canPlay"`
	CanPass            bool     `json:"canPass"`
	CanSelectCards     bool     `json:"canSelectCards"`
}

func Evaluate(v engine.View, self string, link Link) Permissions {
	p := Permissions{MaxBid: DefaultMaxBid}
	if v.Session == nil || self == "" {
		return p
	}
	st := v.Session
	if st.MaxBid > 0 {
		p.MaxBid = st.MaxBid
	}

	p.Seated = true
	p.IsLandlord = v.IsLandlord(self)
	p.MyTurn = st.CurrentPlayer == self

	live := link.Connected && link.Fresh
	if !live {
		return p
	}

	turn := p.MyTurn
	p.CanBid = turn && st.Phase == engine.PhaseBidding && st.AwaitingLandlordSelection == ""
	p.CanPlay = turn && st.Phase == engine.PhasePlay
	p.CanPass = p.CanPlay
	p.CanSelectCards = p.CanPlay

	if st.Phase == engine.PhaseBidding && st.AwaitingLandlordSelection == self {
		p.CanSelectLandlord = true
		p.LandlordCandidates = LandlordCandidates(v, self)
	}
	return p
}

// LandlordCandidates lists everyone who is neither self nor already a
// landlord, in roster order.
func LandlordCandidates(v engine.View, self string) []string {
	var out []string
	for _, p := range v.Players {
		if p.ID == self || v.IsLandlord(p.ID) {
			continue
		}
		out = append(out, p.ID)
	}
	return out
}

// RevealedCards returns the cards a landlord has shown to the table.
func RevealedCards(v engine.View, id string) []engine.Card {
	if !v.IsLandlord(id) {
		return nil
	}
	p, ok := v.Participant(id)
	if !ok {
		return nil
	}
	return p.VisibleCards
}

// check returns the first reason a turn action cannot be sent.
func check(v engine.View, self string, link Link, phase engine.Phase) error {
	if self == "" || v.Session == nil {
		return ErrNotSeated
	}
	if !link.Connected {
		return ErrNotConnected
	}
	if !link.Fresh {
		return ErrStaleView
	}
	if v.Session.Phase != phase {
		return ErrWrongPhase
	}
	if v.Session.CurrentPlayer != self {
		return ErrNotYourTurn
	}
	return nil
}

func Bid(v engine.View, self string, link Link, value int) (types.ClientMessage, error) {
	if err := check(v, self, link, engine.PhaseBidding); err != nil {
		return types.ClientMessage{}, err
	}
	perms := Evaluate(v, self, link)
	if !perms.CanBid {
		return types.ClientMessage{}, ErrWrongPhase
	}
	if value < 0 || value > perms.MaxBid {
		return types.ClientMessage{}, ErrBidOutOfRange
	}
	return types.ClientMessage{Type: types.ActionBid, PlayerID: self, BidValue: &value}, nil
}

func SelectLandlord(v engine.View, self string, link Link, target string) (types.ClientMessage, error) {
	if self == "" || v.Session == nil {
		return types.ClientMessage{}, ErrNotSeated
	}
	if !link.Connected {
		return types.ClientMessage{}, ErrNotConnected
	}
	if !link.Fresh {
		return types.ClientMessage{}, ErrStaleView
	}
	perms := Evaluate(v, self, link)
	if !perms.CanSelectLandlord {
		return types.ClientMessage{}, ErrNotAwaitingSelection
	}
	if !slices.Contains(perms.LandlordCandidates, target) {
		return types.ClientMessage{}, ErrUnknownParticipant
	}
	return types.ClientMessage{Type: types.ActionSelectLandlord, PlayerID: self, SelectedPlayerID: target}, nil
}

func Play(v engine.View, self string, link Link, sel *Selection) (types.ClientMessage, error) {
	if err := check(v, self, link, engine.PhasePlay); err != nil {
		return types.ClientMessage{}, err
	}
	cards, err := BuildPlay(sel, v.Hand())
	if err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{Type: types.ActionPlay, PlayerID: self, Cards: cards}, nil
}

func Pass(v engine.View, self string, link Link) (types.ClientMessage, error) {
	if err := check(v, self, link, engine.PhasePlay); err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{Type: types.ActionPass, PlayerID: self}, nil
}

// CheckSelect reports whether the local hand may currently be selected from.
func CheckSelect(v engine.View, self string, link Link) error {
	return check(v, self, link, engine.PhasePlay)
}
