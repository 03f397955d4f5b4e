package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/ddz-client/internal/engine"
)

var ErrMalformedFrame = errors.New("malformed frame")
var ErrMissingType = errors.New("frame has no type")

const (
	ActionBid            = "BID"
	ActionSelectLandlord = "SELECT_LANDLORD"
	ActionPlay           = "PLAY"
	ActionPass           = "PASS"
)

type ClientMessage struct {
	Type             string        `json:"type"`
	PlayerID         string        `json:"playerId"`
	BidValue         *int          `json:"bidValue,omitempty"`
	SelectedPlayerID string        `json:"selectedPlayerId,omitempty"`
	Cards            []engine.Card `json:"cards,omitempty"`
}

type ServerMessage struct {
	Type          string                `json:"type"` // "GAME_UPDATE" | "ERROR"
	State         *engine.SessionView   `json:"state,omitempty"`
	SpectatorInfo *engine.SpectatorInfo `json:"spectatorInfo,omitempty"`
	Message       string                `json:"message,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// Decode parses one inbound frame. A frame carrying only an error field is
// accepted even without a type.
func Decode(raw []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if msg.Type == "" && msg.Error == "" {
		return ServerMessage{}, ErrMissingType
	}
	return msg, nil
}

func (m ServerMessage) ToFrame() engine.Frame {
	return engine.Frame{
		Type:      engine.FrameType(m.Type),
		State:     m.State,
		Spectator: m.SpectatorInfo,
		Message:   m.Message,
		Error:     m.Error,
	}
}
