package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/AnnkoATAMA/tensai/internal/mahjong"
)

// Default declaration window lengths. Overridable per engine, mainly so
// tests can run the windows in milliseconds.
const (
	DefaultRonWindow   = 10 * time.Second
	DefaultDoubtWindow = 30 * time.Second
)

// OnGameEndFunc handles a finished game, e.g. persisting rating updates.
// winner is uuid.Nil for a drawn game.
type OnGameEndFunc func(roomID string, winner uuid.UUID, players []uuid.UUID)

// Engine validates and applies player actions against the room's State,
// drives the declaration-window timers, and applies the default resolution
// when a window expires. All mutations of one room's game go through the
// engine's mutex: a declaration and a firing timer racing on the same game
// are linearized here, and the loser observes the window already closed.
//
// Public events are emitted through BroadcastFn, which the hub wires once
// per room. Events are emitted after the mutex is released so the hub can
// take fresh per-viewer snapshots without re-entering the lock.
type Engine struct {
	mu     sync.Mutex
	state  *State
	timers *TimerRegistry
	oracle mahjong.Oracle

	RonWindow   time.Duration
	DoubtWindow time.Duration

	// Legality verdict recorded at declaration time. The doubt timeout uses
	// this value as-is; only an explicit doubt re-evaluates the oracle.
	declarationValid bool

	BroadcastFn func(ev Event)

	// OnGameEnd is invoked after the terminal event has been emitted.
	OnGameEnd OnGameEndFunc
}

// NewEngine builds an engine for one room with default window durations.
func NewEngine(roomID string, oracle mahjong.Oracle) *Engine {
	return &Engine{
		state:       NewState(roomID),
		timers:      NewTimerRegistry(),
		oracle:      oracle,
		RonWindow:   DefaultRonWindow,
		DoubtWindow: DefaultDoubtWindow,
	}
}

func (e *Engine) emit(ev Event) {
	if e.BroadcastFn != nil {
		e.BroadcastFn(ev)
	}
}

// AddPlayer seats a new player while the room is still waiting.
func (e *Engine) AddPlayer(playerID uuid.UUID, name string) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseWaiting {
		return false, "game already started"
	}
	if !e.state.AddPlayer(playerID, name) {
		return false, "room is full"
	}
	return true, ""
}

// Seated reports whether playerID holds a seat in this game.
func (e *Engine) Seated(playerID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Seated(playerID)
}

// Phase returns the current state machine position.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Phase
}

// Snapshot builds the per-viewer projection of the game.
func (e *Engine) Snapshot(viewerID uuid.UUID) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot(viewerID)
}

// StartGame shuffles the wall, deals every seated player an opening hand,
// and gives the turn to seat 0. The dealer draws immediately so the
// hand-size invariant (13 between turns, 14 during your own) holds from the
// first turn.
func (e *Engine) StartGame() (bool, string) {
	e.mu.Lock()

	if e.state.Phase != PhaseWaiting {
		e.mu.Unlock()
		return false, "game already started"
	}
	if e.state.PlayerCount() < 2 {
		e.mu.Unlock()
		return false, "need at least 2 players"
	}

	e.state.Wall = mahjong.NewWall(true)
	for _, playerID := range e.state.order {
		p := e.state.players[playerID]
		p.Hand = make([]mahjong.Tile, mahjong.HandSize)
		copy(p.Hand, e.state.Wall[:mahjong.HandSize])
		e.state.Wall = e.state.Wall[mahjong.HandSize:]
		mahjong.Sort(p.Hand)
	}
	e.state.TurnIndex = 0
	dealer := e.state.order[0]
	e.state.Draw(dealer)
	e.state.Phase = PhasePlaying

	ev := Event{Type: EventGameStarted, PlayerID: dealer.String()}
	e.mu.Unlock()

	e.emit(ev)
	return true, ""
}

// Discard removes the tile at idx from the player's hand, records it as the
// last discard, and opens a ron window. The turn does not advance here; it
// advances when the ron window closes by timeout, and never when it closes
// by a ron declaration.
func (e *Engine) Discard(playerID uuid.UUID, idx int) (bool, string) {
	e.mu.Lock()

	if reason, ok := e.requirePlaying(playerID); !ok {
		e.mu.Unlock()
		return false, reason
	}
	p := e.state.Player(playerID)
	if idx < 0 || idx >= len(p.Hand) {
		e.mu.Unlock()
		return false, "invalid tile index"
	}

	tile := e.state.RemoveFromHand(playerID, idx)
	e.state.LastDiscard = &Discard{Tile: tile, PlayerID: playerID}
	e.state.Phase = PhaseRonWindow
	e.timers.Start(TimerRon, e.RonWindow, e.onRonTimeout)

	ev := Event{
		Type:         EventHaiDiscarded,
		PlayerID:     playerID.String(),
		Tile:         tile.String(),
		RonAvailable: true,
		RonTimeout:   int(e.RonWindow / time.Second),
	}
	e.mu.Unlock()

	e.emit(ev)
	return true, ""
}

// onRonTimeout closes an unclaimed ron window: the turn advances and the new
// current player draws. An empty wall at that point ends the game as a
// no-winner draw.
func (e *Engine) onRonTimeout() {
	e.mu.Lock()

	if e.state.Phase != PhaseRonWindow {
		log.WithField("room", e.state.RoomID).Debug("ron timer fired but window already closed")
		e.mu.Unlock()
		return
	}

	e.state.Phase = PhasePlaying
	e.state.AdvanceTurn()

	next, _ := e.state.CurrentPlayerID()
	var ev Event
	var finished []uuid.UUID
	if e.state.Draw(next) {
		ev = Event{Type: EventTurnAdvanced, PlayerID: next.String()}
	} else {
		e.state.Phase = PhaseFinished
		e.timers.CancelAll()
		finished = e.seatedLocked()
		ev = Event{Type: EventGameDrawn, Reason: "wall exhausted"}
	}
	e.mu.Unlock()

	e.emit(ev)
	if finished != nil {
		e.notifyGameEnd(uuid.Nil, finished)
	}
}

// DeclareRon provisionally claims a win on the last discard. Legality is
// recorded now (not re-evaluated at timeout) but never gates the
// declaration itself; bluffing is part of the game. The declarer's hand
// becomes public and a doubt window opens.
func (e *Engine) DeclareRon(playerID uuid.UUID) (bool, string) {
	e.mu.Lock()

	if e.state.Phase != PhaseRonWindow {
		e.mu.Unlock()
		return false, "ron window is not open"
	}
	if !e.state.Seated(playerID) {
		e.mu.Unlock()
		return false, "you are not seated in this game"
	}
	if e.state.LastDiscard.PlayerID == playerID {
		e.mu.Unlock()
		return false, "cannot ron your own discard"
	}

	e.timers.Cancel(TimerRon)
	e.state.Phase = PhaseDoubtWindow
	e.state.Declarer = playerID
	e.state.Kind = DeclarationRon
	e.state.MakeHandPublic(playerID)
	e.declarationValid = e.oracle.CanDeclareRon(e.state.Player(playerID).Hand, e.state.LastDiscard.Tile)
	e.timers.Start(TimerDoubt, e.DoubtWindow, e.onDoubtTimeout)

	ev := Event{
		Type:           EventRonClaimed,
		PlayerID:       playerID.String(),
		DoubtAvailable: true,
		DoubtTimeout:   int(e.DoubtWindow / time.Second),
	}
	e.mu.Unlock()

	e.emit(ev)
	return true, ""
}

// DeclareTumo provisionally claims a win on the player's own draw.
// Symmetric to DeclareRon but only valid on the declarer's own turn, before
// they discard.
func (e *Engine) DeclareTumo(playerID uuid.UUID) (bool, string) {
	e.mu.Lock()

	if reason, ok := e.requirePlaying(playerID); !ok {
		e.mu.Unlock()
		return false, reason
	}

	e.state.Phase = PhaseDoubtWindow
	e.state.Declarer = playerID
	e.state.Kind = DeclarationTumo
	e.state.MakeHandPublic(playerID)
	e.declarationValid = e.oracle.CanDeclareTumo(e.state.Player(playerID).Hand)
	e.timers.Start(TimerDoubt, e.DoubtWindow, e.onDoubtTimeout)

	ev := Event{
		Type:           EventTumoClaimed,
		PlayerID:       playerID.String(),
		DoubtAvailable: true,
		DoubtTimeout:   int(e.DoubtWindow / time.Second),
	}
	e.mu.Unlock()

	e.emit(ev)
	return true, ""
}

// DeclareDoubt challenges the open declaration. Legality is re-evaluated
// against the recorded context: a legal declaration means the challenge
// fails and the declarer wins; an illegal one means the doubter wins.
func (e *Engine) DeclareDoubt(doubterID, targetID uuid.UUID) (bool, string) {
	e.mu.Lock()

	if e.state.Phase != PhaseDoubtWindow {
		e.mu.Unlock()
		return false, "doubt window is not open"
	}
	if !e.state.Seated(doubterID) {
		e.mu.Unlock()
		return false, "you are not seated in this game"
	}
	if doubterID == targetID {
		e.mu.Unlock()
		return false, "cannot doubt yourself"
	}
	if targetID != e.state.Declarer {
		e.mu.Unlock()
		return false, "that player has not declared a win"
	}

	e.timers.Cancel(TimerDoubt)

	kind := e.state.Kind
	target := e.state.Player(targetID)
	var valid bool
	if kind == DeclarationRon {
		valid = e.oracle.CanDeclareRon(target.Hand, e.state.LastDiscard.Tile)
	} else {
		valid = e.oracle.CanDeclareTumo(target.Hand)
	}

	var winner uuid.UUID
	var reason string
	if valid {
		winner = targetID
		reason = string(kind) + " upheld, doubt fails"
	} else {
		winner = doubterID
		reason = string(kind) + " invalid, doubt succeeds"
	}
	ev := e.finishLocked(winner, reason, EventDoubtResult)
	ev.TargetID = targetID.String()
	ev.PlayerID = doubterID.String()
	players := e.seatedLocked()
	e.mu.Unlock()

	e.emit(ev)
	e.notifyGameEnd(winner, players)
	return true, ""
}

// onDoubtTimeout closes a doubt window nobody challenged. The declarer wins
// regardless of the recorded verdict: failing to doubt in time forfeits the
// table's right to object, so an uncontested bluff stands.
func (e *Engine) onDoubtTimeout() {
	e.mu.Lock()

	if e.state.Phase != PhaseDoubtWindow {
		log.WithField("room", e.state.RoomID).Debug("doubt timer fired but window already closed")
		e.mu.Unlock()
		return
	}

	declarer := e.state.Declarer
	kind := e.state.Kind
	var reason string
	if e.declarationValid {
		reason = string(kind) + " upheld, doubt window expired"
	} else {
		reason = string(kind) + " invalid, but the doubt window expired; declaration stands"
	}
	ev := e.finishLocked(declarer, reason, EventDoubtTimeout)
	players := e.seatedLocked()
	e.mu.Unlock()

	e.emit(ev)
	e.notifyGameEnd(declarer, players)
}

// finishLocked performs the terminal transition. Caller holds the mutex.
func (e *Engine) finishLocked(winner uuid.UUID, reason string, evType EventType) Event {
	e.state.Phase = PhaseFinished
	e.state.Winner = winner
	e.state.Declarer = uuid.Nil
	e.state.Kind = ""
	e.timers.CancelAll()
	return Event{
		Type:   evType,
		Winner: winner.String(),
		Reason: reason,
	}
}

// seatedLocked copies the seat order. Caller holds the mutex.
func (e *Engine) seatedLocked() []uuid.UUID {
	return append([]uuid.UUID(nil), e.state.order...)
}

func (e *Engine) notifyGameEnd(winner uuid.UUID, players []uuid.UUID) {
	if e.OnGameEnd != nil {
		e.OnGameEnd(e.state.RoomID, winner, players)
	}
}

// Teardown cancels all pending timers. Called by the hub when the last
// connection leaves the room, so no expiry callback outlives the room.
func (e *Engine) Teardown() {
	e.timers.CancelAll()
}

// requirePlaying checks the common preconditions for actions taken on one's
// own turn. Caller holds the mutex.
func (e *Engine) requirePlaying(playerID uuid.UUID) (string, bool) {
	switch e.state.Phase {
	case PhaseWaiting, PhaseFinished:
		return "game is not active", false
	case PhaseRonWindow, PhaseDoubtWindow:
		return "a declaration window is open", false
	}
	if !e.state.IsPlayerTurn(playerID) {
		return "not your turn", false
	}
	return "", true
}
