package session

import "github.com/DoyleJ11/ddz-client/internal/types"

type Msg interface{ isSessionMsg() }

// Transport events. ConnID is the generation of the connection that produced
// the event; events from a superseded generation are dropped.

type Dialing struct{ ConnID string }

func (Dialing) isSessionMsg() {}

type Opened struct{ ConnID string }

func (Opened) isSessionMsg() {}

type FromServer struct {
	ConnID string
	Msg    types.ServerMessage
}

func (FromServer) isSessionMsg() {}

type Closed struct {
	ConnID string
	Code   int
	Reason string
}

func (Closed) isSessionMsg() {}

type TransportError struct {
	ConnID string
	Err    error
}

func (TransportError) isSessionMsg() {}

// User intents. Reply receives nil once the intent has been handed to the
// transport, or the reason it was refused.

type Toggle struct {
	Index int
	Reply chan error
}

func (Toggle) isSessionMsg() {}

type ClearSelection struct{}

func (ClearSelection) isSessionMsg() {}

type Bid struct {
	Value int
	Reply chan error
}

func (Bid) isSessionMsg() {}

type SelectLandlord struct {
	Target string
	Reply  chan error
}

func (SelectLandlord) isSessionMsg() {}

type Play struct{ Reply chan error }

func (Play) isSessionMsg() {}

type Pass struct{ Reply chan error }

func (Pass) isSessionMsg() {}

type DismissNotice struct{}

func (DismissNotice) isSessionMsg() {}

// Rebind switches the local identity. The caller reconnects the transport.
type Rebind struct{ PlayerID string }

func (Rebind) isSessionMsg() {}

// Plumbing

type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Subscribe) isSessionMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isSessionMsg() {}

type GetState struct {
	Reply chan Snapshot
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}
