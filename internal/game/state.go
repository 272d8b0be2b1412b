// Package game implements the authoritative per-room state and the
// declaration-window state machine for binary mahjong. The interesting rule
// is timing: a win declaration is always accepted provisionally, opponents
// get a bounded window to doubt it, and an un-doubted declaration stands
// even when it was a bluff.
package game

import (
	"github.com/google/uuid"

	"github.com/AnnkoATAMA/tensai/internal/mahjong"
)

// Phase is the room-scoped state machine position.
type Phase string

const (
	PhaseWaiting     Phase = "WAITING"
	PhasePlaying     Phase = "PLAYING"
	PhaseRonWindow   Phase = "RON_WINDOW"
	PhaseDoubtWindow Phase = "DOUBT_WINDOW"
	PhaseFinished    Phase = "FINISHED"
)

// DeclarationKind distinguishes the two win declarations.
type DeclarationKind string

const (
	DeclarationTumo DeclarationKind = "TUMO"
	DeclarationRon  DeclarationKind = "RON"
)

// MaxPlayers is the seat limit per room.
const MaxPlayers = 4

// PlayerState holds one seated player's tiles. The hand is owned exclusively
// by this player and is only ever exposed through State.Snapshot.
type PlayerState struct {
	Name     string
	Hand     []mahjong.Tile
	Discards []mahjong.Tile
	IsFirst  bool
}

// Discard records the most recent discard and who made it.
type Discard struct {
	Tile     mahjong.Tile
	PlayerID uuid.UUID
}

// State is the pure data model for one room's game. It performs no I/O and
// has no locking of its own; the owning Engine serializes all access.
type State struct {
	RoomID string

	players map[uuid.UUID]*PlayerState
	order   []uuid.UUID // join order; seat i is order[i]
	seats   map[uuid.UUID]int

	Wall      []mahjong.Tile
	TurnIndex int
	Phase     Phase

	LastDiscard *Discard

	// Declarer and Kind are set while a doubt window is open, cleared on
	// resolution.
	Declarer uuid.UUID
	Kind     DeclarationKind

	PublicHands map[uuid.UUID]bool

	Winner uuid.UUID
}

// NewState builds an empty waiting room.
func NewState(roomID string) *State {
	return &State{
		RoomID:      roomID,
		players:     make(map[uuid.UUID]*PlayerState),
		seats:       make(map[uuid.UUID]int),
		PublicHands: make(map[uuid.UUID]bool),
		Phase:       PhaseWaiting,
	}
}

// AddPlayer seats a new player at the next index. Returns false when the
// room already holds MaxPlayers. Callers must only invoke this while the
// phase is WAITING.
func (s *State) AddPlayer(playerID uuid.UUID, name string) bool {
	if len(s.players) >= MaxPlayers {
		return false
	}
	if _, exists := s.players[playerID]; exists {
		return false
	}
	seat := len(s.players)
	s.players[playerID] = &PlayerState{
		Name:    name,
		IsFirst: seat == 0,
	}
	s.seats[playerID] = seat
	s.order = append(s.order, playerID)
	return true
}

// PlayerCount returns the number of seated players.
func (s *State) PlayerCount() int {
	return len(s.players)
}

// Player returns the state for playerID, or nil if unseated.
func (s *State) Player(playerID uuid.UUID) *PlayerState {
	return s.players[playerID]
}

// Seated reports whether playerID holds a seat.
func (s *State) Seated(playerID uuid.UUID) bool {
	_, ok := s.players[playerID]
	return ok
}

// IsPlayerTurn reports whether playerID occupies the current turn seat.
func (s *State) IsPlayerTurn(playerID uuid.UUID) bool {
	seat, ok := s.seats[playerID]
	return ok && seat == s.TurnIndex
}

// AdvanceTurn moves the turn pointer to the next seat. Must not be called
// with zero players.
func (s *State) AdvanceTurn() {
	s.TurnIndex = (s.TurnIndex + 1) % len(s.players)
}

// CurrentPlayerID returns the player occupying the turn seat.
func (s *State) CurrentPlayerID() (uuid.UUID, bool) {
	if s.TurnIndex < len(s.order) {
		return s.order[s.TurnIndex], true
	}
	return uuid.Nil, false
}

// MakeHandPublic marks playerID's hand as visible to every viewer.
func (s *State) MakeHandPublic(playerID uuid.UUID) {
	s.PublicHands[playerID] = true
}

// Draw pops the next wall tile into playerID's hand and keeps the hand
// sorted. Returns false when the wall is empty; the caller decides the
// drawn-game outcome.
func (s *State) Draw(playerID uuid.UUID) bool {
	if len(s.Wall) == 0 {
		return false
	}
	p := s.players[playerID]
	tile := s.Wall[0]
	s.Wall = s.Wall[1:]
	p.Hand = append(p.Hand, tile)
	mahjong.Sort(p.Hand)
	return true
}

// RemoveFromHand takes the tile at idx out of playerID's hand and appends it
// to the player's discard pile. The caller has already bounds-checked idx.
func (s *State) RemoveFromHand(playerID uuid.UUID, idx int) mahjong.Tile {
	p := s.players[playerID]
	tile := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	p.Discards = append(p.Discards, tile)
	return tile
}
