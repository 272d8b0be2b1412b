package game

// EventType is an enum-like type for broadcasting game actions.
type EventType string

const (
	EventPlayerConnected    EventType = "player_connected"
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventGameStarted        EventType = "game_started"
	EventHaiDiscarded       EventType = "hai_discarded"
	EventTumoClaimed        EventType = "tumo_claimed"
	EventRonClaimed         EventType = "ron_claimed"
	EventDoubtResult        EventType = "doubt_result"
	EventDoubtTimeout       EventType = "doubt_timeout"
	EventTurnAdvanced       EventType = "turn_advanced"
	EventGameDrawn          EventType = "game_drawn"
	EventGameState          EventType = "game_state"
	EventError              EventType = "error"
)

// Event is broadcast to the clients of a room in a consistent format. The
// hub annotates each delivery with that connection's own Snapshot before
// writing, so the engine leaves State nil.
type Event struct {
	Type EventType `json:"type"`

	PlayerID string `json:"player_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Tile     string `json:"tile,omitempty"`

	// Window metadata: whether a declaration window just opened and for how
	// long, in seconds.
	RonAvailable   bool `json:"ron_available,omitempty"`
	RonTimeout     int  `json:"ron_timeout,omitempty"`
	DoubtAvailable bool `json:"doubt_available,omitempty"`
	DoubtTimeout   int  `json:"doubt_timeout,omitempty"`

	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`

	Message string `json:"message,omitempty"`

	State *Snapshot `json:"game_state,omitempty"`
}
