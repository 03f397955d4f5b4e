package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ddz-client/internal/engine"
	"github.com/DoyleJ11/ddz-client/internal/types"
)

var live = Link{Connected: true, Fresh: true}

func viewOf(phase engine.Phase, current string, hand ...engine.Card) engine.View {
	st := &engine.SessionView{
		Phase:         phase,
		CurrentPlayer: current,
		MyHand:        hand,
		Players: []engine.Participant{
			{ID: "p1", Name: "Alice", Connected: true},
			{ID: "p2", Name: "Bob", Connected: true},
			{ID: "p3", Name: "Cara", Connected: true},
		},
	}
	return engine.Reduce([]engine.Frame{{Type: engine.FrameGameUpdate, State: st}})
}

func TestTurnGateSoundness(t *testing.T) {
	phases := []engine.Phase{engine.PhaseLobby, engine.PhaseBidding, engine.PhasePlay, engine.PhaseTerminated}
	links := []Link{live, {Connected: true}, {Fresh: true}, {}}

	for _, phase := range phases {
		for _, current := range []string{"", "p1", "p2"} {
			for _, link := range links {
				v := viewOf(phase, current)
				p := Evaluate(v, "p1", link)

				ok := current == "p1" && link.Connected && link.Fresh
				assert.Equal(t, ok && phase == engine.PhaseBidding, p.CanBid, "bid %s %s %+v", phase, current, link)
				assert.Equal(t, ok && phase == engine.PhasePlay, p.CanPlay, "play %s %s %+v", phase, current, link)
				assert.Equal(t, p.CanPlay, p.CanPass)
				assert.Equal(t, p.CanPlay, p.CanSelectCards)
			}
		}
	}
}

func TestSpectatorHasNoCapabilities(t *testing.T) {
	v := viewOf(engine.PhasePlay, "p1", engine.Card{Suit: engine.SuitSpades, Rank: engine.RankThree})
	p := Evaluate(v, "", live)
	assert.False(t, p.Seated)
	assert.False(t, p.CanSelectCards)
	assert.False(t, p.CanPlay)

	spectator := engine.Reduce([]engine.Frame{{
		Type:      engine.FrameGameUpdate,
		Spectator: &engine.SpectatorInfo{Phase: engine.PhasePlay, Players: []engine.Participant{{ID: "p1"}}},
	}})
	assert.False(t, Evaluate(spectator, "p1", live).Seated)
}

// A participant who is not the current player must not be able to bid.
func TestBidRefusedWhenNotCurrentPlayer(t *testing.T) {
	v := viewOf(engine.PhaseBidding, "p1")
	_, err := Bid(v, "p2", live, 1)
	require.ErrorIs(t, err, ErrNotYourTurn)
	assert.False(t, Evaluate(v, "p2", live).CanBid)
}

func TestBid(t *testing.T) {
	v := viewOf(engine.PhaseBidding, "p1")

	msg, err := Bid(v, "p1", live, 0)
	require.NoError(t, err)
	assert.Equal(t, types.ActionBid, msg.Type)
	require.NotNil(t, msg.BidValue)
	assert.Equal(t, 0, *msg.BidValue)

	_, err = Bid(v, "p1", live, DefaultMaxBid+1)
	require.ErrorIs(t, err, ErrBidOutOfRange)

	v.Session.MaxBid = 5
	_, err = Bid(v, "p1", live, 5)
	require.NoError(t, err)

	v.Session.AwaitingLandlordSelection = "p2"
	_, err = Bid(v, "p1", live, 1)
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestGateReasons(t *testing.T) {
	v := viewOf(engine.PhasePlay, "p1")

	cases := []struct {
		name string
		view engine.View
		self string
		link Link
		want error
	}{
		{name: "spectator", view: v, self: "", link: live, want: ErrNotSeated},
		{name: "no view", view: engine.NewEmptyView(), self: "p1", link: live, want: ErrNotSeated},
		{name: "disconnected", view: v, self: "p1", link: Link{}, want: ErrNotConnected},
		{name: "stale after reconnect", view: v, self: "p1", link: Link{Connected: true}, want: ErrStaleView},
		{name: "not my turn", view: v, self: "p2", link: live, want: ErrNotYourTurn},
		{name: "wrong phase", view: viewOf(engine.PhaseBidding, "p1"), self: "p1", link: live, want: ErrWrongPhase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Pass(tc.view, tc.self, tc.link)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSelectLandlord(t *testing.T) {
	v := viewOf(engine.PhaseBidding, "p2")
	v.Session.LandlordIDs = []string{"p1"}
	v.Session.AwaitingLandlordSelection = "p1"

	p := Evaluate(v, "p1", live)
	assert.True(t, p.CanSelectLandlord)
	assert.False(t, p.CanBid)
	assert.Equal(t, []string{"p2", "p3"}, p.LandlordCandidates)

	msg, err := SelectLandlord(v, "p1", live, "p3")
	require.NoError(t, err)
	assert.Equal(t, "p3", msg.SelectedPlayerID)

	_, err = SelectLandlord(v, "p1", live, "p1")
	require.ErrorIs(t, err, ErrUnknownParticipant)

	_, err = SelectLandlord(v, "p2", live, "p3")
	require.ErrorIs(t, err, ErrNotAwaitingSelection)

	_, err = SelectLandlord(v, "p1", Link{Connected: true}, "p3")
	require.ErrorIs(t, err, ErrStaleView)
}

func TestRevealedCards(t *testing.T) {
	v := viewOf(engine.PhasePlay, "p1")
	shown := []engine.Card{{Suit: engine.SuitJoker, Rank: engine.RankBigJoker}}
	v.Players[1].VisibleCards = shown
	v.Session.Players = v.Players

	assert.Nil(t, RevealedCards(v, "p2"))
	v.Session.LandlordIDs = []string{"p2"}
	assert.Equal(t, shown, RevealedCards(v, "p2"))
}
