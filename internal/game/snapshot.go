package game

import (
	"github.com/google/uuid"
)

// PlayerView is one player's entry in a snapshot. Hand is populated only for
// the viewer's own seat or for hands made public by a declaration; every
// other viewer sees the name, seat, and discards alone.
type PlayerView struct {
	Name       string   `json:"name"`
	Seat       int      `json:"seat"`
	Discards   []string `json:"discarded"`
	Hand       []string `json:"hand,omitempty"`
	HandPublic bool     `json:"hand_public,omitempty"`
}

// DiscardView identifies the most recent discard.
type DiscardView struct {
	Tile     string    `json:"tile"`
	PlayerID uuid.UUID `json:"player_id"`
}

// Snapshot is the per-viewer projection of a room's game state.
type Snapshot struct {
	RoomID          string                `json:"room_id"`
	Phase           Phase                 `json:"phase"`
	CurrentTurn     int                   `json:"current_turn"`
	CurrentPlayerID string                `json:"current_player_id,omitempty"`
	WallCount       int                   `json:"hai_left"`
	Players         map[string]PlayerView `json:"players"`
	LastDiscard     *DiscardView          `json:"last_discarded_hai,omitempty"`
	Declarer        string                `json:"declarer,omitempty"`
	DeclarationKind DeclarationKind       `json:"declaration_kind,omitempty"`
	Winner          string                `json:"winner,omitempty"`
}

// Snapshot builds the projection of the game for one viewer. Hands other
// than the viewer's own are omitted unless their owner is in PublicHands;
// this is the anti-cheat boundary of the data model.
func (s *State) Snapshot(viewerID uuid.UUID) Snapshot {
	snap := Snapshot{
		RoomID:          s.RoomID,
		Phase:           s.Phase,
		CurrentTurn:     s.TurnIndex,
		WallCount:       len(s.Wall),
		Players:         make(map[string]PlayerView, len(s.players)),
		DeclarationKind: s.Kind,
	}
	if current, ok := s.CurrentPlayerID(); ok {
		snap.CurrentPlayerID = current.String()
	}
	if s.Declarer != uuid.Nil {
		snap.Declarer = s.Declarer.String()
	}
	if s.Winner != uuid.Nil {
		snap.Winner = s.Winner.String()
	}
	if s.LastDiscard != nil {
		snap.LastDiscard = &DiscardView{
			Tile:     s.LastDiscard.Tile.String(),
			PlayerID: s.LastDiscard.PlayerID,
		}
	}

	for playerID, p := range s.players {
		view := PlayerView{
			Name:     p.Name,
			Seat:     s.seats[playerID],
			Discards: make([]string, len(p.Discards)),
		}
		for i, t := range p.Discards {
			view.Discards[i] = t.String()
		}
		if playerID == viewerID || s.PublicHands[playerID] {
			view.Hand = make([]string, len(p.Hand))
			for i, t := range p.Hand {
				view.Hand[i] = t.String()
			}
			view.HandPublic = s.PublicHands[playerID]
		}
		snap.Players[playerID.String()] = view
	}
	return snap
}
