package engine

import (
	"errors"
	"maps"
	"slices"
)

var ErrUnsupportedFrame = errors.New("unsupported frame")
var ErrEmptyUpdate = errors.New("game update carries no payload")

type Phase string

const (
	PhaseLobby      Phase = "LOBBY"
	PhaseBidding    Phase = "BIDDING"
	PhasePlay       Phase = "PLAY"
	PhaseTerminated Phase = "TERMINATED"
)

type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CardCount    int    `json:"cardCount"`
	IsLandlord   bool   `json:"isLandlord,omitempty"`
	Connected    bool   `json:"isConnected"`
	Score        int    `json:"score,omitempty"`
	Bid          int    `json:"bid,omitempty"`
	SeatPosition *int   `json:"seatPosition,omitempty"`
	VisibleCards []Card `json:"visibleCards,omitempty"`
}

// PlayedHand is the lead the next play has to beat. ComboType is opaque to
// the client (SINGLE, PAIR, ... BOMB, ROCKET).
type PlayedHand struct {
	ComboType string `json:"comboType"`
	Cards     []Card `json:"cards"`
}

// SessionView is the full state the server sends to a seated participant.
type SessionView struct {
	GameID                    string         `json:"gameId,omitempty"`
	Phase                     Phase          `json:"phase"`
	CurrentPlayer             string         `json:"currentPlayer,omitempty"`
	MyHand                    []Card         `json:"myHand,omitempty"`
	Players                   []Participant  `json:"players"`
	PlayerCount               int            `json:"playerCount,omitempty"`
	CurrentLead               *PlayedHand    `json:"currentLead,omitempty"`
	Scores                    map[string]int `json:"scores,omitempty"`
	BombsPlayed               int            `json:"bombsPlayed"`
	RocketsPlayed             int            `json:"rocketsPlayed"`
	CurrentBet                int            `json:"currentBet"`
	Multiplier                int            `json:"multiplier"`
	MaxBid                    int            `json:"maxBid,omitempty"`
	LandlordIDs               []string       `json:"landlordIds,omitempty"`
	AwaitingLandlordSelection string         `json:"awaitingLandlordSelection,omitempty"`
	Paused                    bool           `json:"isPaused,omitempty"`
}

// SpectatorInfo is the reduced projection sent to connections without a
// bound participant.
type SpectatorInfo struct {
	GameID  string        `json:"gameId,omitempty"`
	Phase   Phase         `json:"phase"`
	Players []Participant `json:"players"`
}

type FrameType string

const (
	FrameGameUpdate FrameType = "GAME_UPDATE"
	FrameError      FrameType = "ERROR"
)

type Frame struct {
	Type      FrameType
	State     *SessionView
	Spectator *SpectatorInfo
	Message   string
	Error     string
}

// View is the client's mirror of the session. Session is nil until a full
// state arrives, and stays nil for spectators.
type View struct {
	Reconciled bool              `json:"reconciled"`
	Phase      Phase             `json:"phase,omitempty"`
	Players    []Participant     `json:"players"`
	Session    *SessionView      `json:"session,omitempty"`
	Names      map[string]string `json:"names"`
}

type EventType string

const (
	EvtStateReplaced EventType = "StateReplaced"
	EvtRosterMerged  EventType = "RosterMerged"
	EvtPhaseChanged  EventType = "PhaseChanged"
	EvtHandChanged   EventType = "HandChanged"
	EvtServerError   EventType = "ServerError"
	EvtNotice        EventType = "Notice"
)

type Event struct {
	Type    EventType
	From    Phase
	To      Phase
	Message string
}

/*
	GAME_UPDATE + state          -> EvtStateReplaced (+ EvtPhaseChanged, EvtHandChanged) (+ EvtNotice)
	GAME_UPDATE + spectatorInfo  -> EvtRosterMerged (+ EvtPhaseChanged) (+ EvtNotice)
	error field                  -> EvtServerError, view untouched
	anything else                -> ErrUnsupportedFrame, view untouched
*/

func Apply(v View, f Frame) ([]Event, View, error) {
	if f.Error != "" {
		return []Event{{Type: EvtServerError, Message: f.Error}}, v, nil
	}

	if f.Type != FrameGameUpdate {
		return nil, v, ErrUnsupportedFrame
	}

	var events []Event
	newView := v

	switch {
	case f.State != nil:
		st := cloneSession(f.State)
		events = append(events, Event{Type: EvtStateReplaced})

		if v.Phase != st.Phase {
			events = append(events, Event{Type: EvtPhaseChanged, From: v.Phase, To: st.Phase})
		}
		if !SameCards(handOf(v), st.MyHand) {
			events = append(events, Event{Type: EvtHandChanged})
		}

		newView.Session = st
		newView.Phase = st.Phase
		newView.Players = st.Players
		newView.Names = BuildNames(st.Players)

	case f.Spectator != nil:
		players := slices.Clone(f.Spectator.Players)
		events = append(events, Event{Type: EvtRosterMerged})

		if v.Phase != f.Spectator.Phase {
			events = append(events, Event{Type: EvtPhaseChanged, From: v.Phase, To: f.Spectator.Phase})
		}

		// Keep whatever else the last full state said; only phase and
		// roster come from a spectator-shaped update.
		if v.Session != nil {
			st := cloneSession(v.Session)
			st.Phase = f.Spectator.Phase
			st.Players = players
			newView.Session = st
		}
		newView.Phase = f.Spectator.Phase
		newView.Players = players
		newView.Names = BuildNames(players)

	default:
		return nil, v, ErrEmptyUpdate
	}

	newView.Reconciled = true
	if f.Message != "" {
		events = append(events, Event{Type: EvtNotice, Message: f.Message})
	}
	return events, newView, nil
}

// Reduce replays frames against an empty view. Frames Apply rejects are
// skipped, the same way a live client drops them.
func Reduce(frames []Frame) View {
	v := NewEmptyView()
	for _, f := range frames {
		_, next, err := Apply(v, f)
		if err != nil {
			continue
		}
		v = next
	}
	return v
}

func handOf(v View) []Card {
	if v.Session == nil {
		return nil
	}
	return v.Session.MyHand
}

func cloneSession(s *SessionView) *SessionView {
	c := *s
	c.MyHand = slices.Clone(s.MyHand)
	c.Players = slices.Clone(s.Players)
	c.LandlordIDs = slices.Clone(s.LandlordIDs)
	c.Scores = maps.Clone(s.Scores)
	if s.CurrentLead != nil {
		lead := *s.CurrentLead
		lead.Cards = slices.Clone(s.CurrentLead.Cards)
		c.CurrentLead = &lead
	}
	return &c
}
