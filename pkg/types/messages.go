package types

// Client -> Server (websocket /ws/game/{sessionId}?playerId=...)
// BID:
//   playerId: string
//   bidValue: number // 0 passes, up to maxBid (default 3)
//
// SELECT_LANDLORD:
//   playerId: string
//   selectedPlayerId: string // co-landlord, never self or an existing landlord
//
// PLAY:
//   playerId: string
//   cards: Card[] // subset of the player's hand
//
// PASS:
//   playerId: string
//
// Card:
//   suit: "CLUBS" | "DIAMONDS" | "HEARTS" | "SPADES" | "JOKER"
//   rank: "THREE".."TEN" | "JACK" | "QUEEN" | "KING" | "ACE" | "TWO"
//         | "LITTLE_JOKER" | "BIG_JOKER"

// Server -> Client
// GAME_UPDATE (seated connection):
//   state:
//     gameId: string
//     phase: "LOBBY" | "BIDDING" | "PLAY" | "TERMINATED"
//     currentPlayer: string
//     myHand: Card[]
//     players: Participant[] // roster order is authoritative
//     playerCount: number
//     currentLead: { comboType: string, cards: Card[] } // optional
//     scores: { [playerId]: number }
//     bombsPlayed, rocketsPlayed, currentBet, multiplier, maxBid: number
//     landlordIds: string[]
//     awaitingLandlordSelection: string // optional
//     isPaused: boolean
//   message: string // optional notice
//
// GAME_UPDATE (spectator connection):
//   spectatorInfo:
//     gameId: string
//     phase: string
//     players: Participant[]
//
// Error frame:
//   error: string // no state change
//
// Participant:
//   id, name: string
//   cardCount: number
//   isLandlord, isConnected: boolean
//   score, bid: number
//   seatPosition: number // optional
//   visibleCards: Card[] // revealed by a landlord

// Bridge stream (local renderer, /sessions/{id}/stream)
// SNAPSHOT:
//   snapshot: { version, sessionId, playerId, status, reconciled, stale,
//               view, hand, selection, permissions, names, notice }
//
// REJECTED:
//   intent: string
//   error: string
//
// Intents: TOGGLE {index}, CLEAR_SELECTION, BID {value},
//          SELECT_LANDLORD {target}, PLAY, PASS, DISMISS_NOTICE
