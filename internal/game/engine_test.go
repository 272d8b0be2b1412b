package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnnkoATAMA/tensai/internal/mahjong"
)

// mockBroadcaster collects emitted events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) lastEvent() *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

func (mb *mockBroadcaster) eventOfType(t EventType) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := range mb.events {
		if mb.events[i].Type == t {
			return &mb.events[i]
		}
	}
	return nil
}

// stubOracle returns fixed verdicts so tests can force legal and bluffed
// declarations without constructing real winning shapes.
type stubOracle struct {
	ron  bool
	tumo bool
}

func (o stubOracle) CanDeclareRon(hand []mahjong.Tile, discard mahjong.Tile) bool { return o.ron }
func (o stubOracle) CanDeclareTumo(hand []mahjong.Tile) bool                      { return o.tumo }

// setupTestEngine builds a started game with numPlayers seats and windows
// short enough to exercise timeouts in tests.
func setupTestEngine(t *testing.T, numPlayers int, oracle mahjong.Oracle) (*Engine, []uuid.UUID, *mockBroadcaster) {
	t.Helper()

	e := NewEngine("test-room", oracle)
	mb := &mockBroadcaster{}
	e.BroadcastFn = mb.broadcastFn
	e.RonWindow = 60 * time.Millisecond
	e.DoubtWindow = 60 * time.Millisecond

	players := make([]uuid.UUID, numPlayers)
	for i := 0; i < numPlayers; i++ {
		players[i] = uuid.New()
		ok, reason := e.AddPlayer(players[i], "player")
		require.True(t, ok, reason)
	}

	ok, reason := e.StartGame()
	require.True(t, ok, reason)
	return e, players, mb
}

func TestAddPlayerSeatLimit(t *testing.T) {
	e := NewEngine("room", stubOracle{})

	for i := 0; i < MaxPlayers; i++ {
		ok, _ := e.AddPlayer(uuid.New(), "p")
		require.True(t, ok)
	}
	ok, reason := e.AddPlayer(uuid.New(), "fifth")
	assert.False(t, ok)
	assert.Equal(t, "room is full", reason)
}

func TestAddPlayerAfterStart(t *testing.T) {
	e, _, _ := setupTestEngine(t, 2, stubOracle{})

	ok, reason := e.AddPlayer(uuid.New(), "late")
	assert.False(t, ok)
	assert.Equal(t, "game already started", reason)
}

func TestStartGameRequirements(t *testing.T) {
	e := NewEngine("room", stubOracle{})
	e.BroadcastFn = (&mockBroadcaster{}).broadcastFn

	ok, reason := e.StartGame()
	assert.False(t, ok)
	assert.Equal(t, "need at least 2 players", reason)

	e.AddPlayer(uuid.New(), "a")
	e.AddPlayer(uuid.New(), "b")
	ok, _ = e.StartGame()
	require.True(t, ok)

	ok, reason = e.StartGame()
	assert.False(t, ok)
	assert.Equal(t, "game already started", reason)
}

func TestStartGameDealsHands(t *testing.T) {
	e, players, mb := setupTestEngine(t, 3, stubOracle{})

	// Dealer drew their first tile at deal time; everyone else holds 13.
	assert.Len(t, e.state.Player(players[0]).Hand, mahjong.HandSize+1)
	assert.Len(t, e.state.Player(players[1]).Hand, mahjong.HandSize)
	assert.Len(t, e.state.Player(players[2]).Hand, mahjong.HandSize)
	assert.Len(t, e.state.Wall, mahjong.TotalTiles-3*mahjong.HandSize-1)
	assert.Equal(t, PhasePlaying, e.Phase())

	ev := mb.eventOfType(EventGameStarted)
	require.NotNil(t, ev)
	assert.Equal(t, players[0].String(), ev.PlayerID)
}

func TestDiscardOpensRonWindow(t *testing.T) {
	e, players, mb := setupTestEngine(t, 2, stubOracle{})

	ok, reason := e.Discard(players[1], 0)
	assert.False(t, ok)
	assert.Equal(t, "not your turn", reason)

	ok, reason = e.Discard(players[0], 99)
	assert.False(t, ok)
	assert.Equal(t, "invalid tile index", reason)

	ok, _ = e.Discard(players[0], 0)
	require.True(t, ok)
	assert.Equal(t, PhaseRonWindow, e.Phase())
	// Turn does not advance until the window resolves.
	assert.Equal(t, 0, e.state.TurnIndex)
	assert.Len(t, e.state.Player(players[0]).Hand, mahjong.HandSize)
	assert.Len(t, e.state.Player(players[0]).Discards, 1)

	ev := mb.eventOfType(EventHaiDiscarded)
	require.NotNil(t, ev)
	assert.True(t, ev.RonAvailable)
	assert.Equal(t, players[0].String(), ev.PlayerID)
}

func TestDiscardDuringWindowRejected(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{})

	ok, _ := e.Discard(players[0], 0)
	require.True(t, ok)

	ok, reason := e.Discard(players[0], 0)
	assert.False(t, ok)
	assert.Equal(t, "a declaration window is open", reason)
}

func TestRonTimeoutAdvancesTurn(t *testing.T) {
	e, players, mb := setupTestEngine(t, 2, stubOracle{})

	ok, _ := e.Discard(players[0], 0)
	require.True(t, ok)

	time.Sleep(e.RonWindow + 50*time.Millisecond)

	assert.Equal(t, PhasePlaying, e.Phase())
	assert.Equal(t, 1, e.state.TurnIndex)
	// The new current player drew their 14th tile.
	assert.Len(t, e.state.Player(players[1]).Hand, mahjong.HandSize+1)

	ev := mb.eventOfType(EventTurnAdvanced)
	require.NotNil(t, ev)
	assert.Equal(t, players[1].String(), ev.PlayerID)
}

func TestDeclareRonValidation(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{ron: true})

	ok, reason := e.DeclareRon(players[1])
	assert.False(t, ok)
	assert.Equal(t, "ron window is not open", reason)

	require.True(t, first(e.Discard(players[0], 0)))

	ok, reason = e.DeclareRon(players[0])
	assert.False(t, ok)
	assert.Equal(t, "cannot ron your own discard", reason)

	ok, reason = e.DeclareRon(uuid.New())
	assert.False(t, ok)
	assert.Equal(t, "you are not seated in this game", reason)

	ok, _ = e.DeclareRon(players[1])
	assert.True(t, ok)
	assert.Equal(t, PhaseDoubtWindow, e.Phase())
}

func TestDeclareRonOpensDoubtWindow(t *testing.T) {
	e, players, mb := setupTestEngine(t, 3, stubOracle{ron: false})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[2])))

	assert.Equal(t, PhaseDoubtWindow, e.Phase())
	assert.Equal(t, players[2], e.state.Declarer)
	assert.Equal(t, DeclarationRon, e.state.Kind)
	assert.True(t, e.state.PublicHands[players[2]])

	ev := mb.eventOfType(EventRonClaimed)
	require.NotNil(t, ev)
	assert.True(t, ev.DoubtAvailable)
}

// An undoubted declaration stands even when it was a bluff: failing to
// challenge in time forfeits the table's right to object.
func TestDoubtTimeoutBluffStands(t *testing.T) {
	e, players, mb := setupTestEngine(t, 2, stubOracle{ron: false})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))

	time.Sleep(e.DoubtWindow + 50*time.Millisecond)

	assert.Equal(t, PhaseFinished, e.Phase())
	assert.Equal(t, players[1], e.state.Winner)

	ev := mb.eventOfType(EventDoubtTimeout)
	require.NotNil(t, ev)
	assert.Equal(t, players[1].String(), ev.Winner)
	assert.Contains(t, ev.Reason, "declaration stands")
}

func TestDoubtTimeoutLegalDeclarationStands(t *testing.T) {
	e, players, mb := setupTestEngine(t, 2, stubOracle{ron: true})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))

	time.Sleep(e.DoubtWindow + 50*time.Millisecond)

	assert.Equal(t, PhaseFinished, e.Phase())
	assert.Equal(t, players[1], e.state.Winner)

	ev := mb.eventOfType(EventDoubtTimeout)
	require.NotNil(t, ev)
	assert.Contains(t, ev.Reason, "upheld")
}

func TestDoubtSucceedsAgainstBluff(t *testing.T) {
	e, players, mb := setupTestEngine(t, 3, stubOracle{ron: false})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))
	require.True(t, first(e.DeclareDoubt(players[2], players[1])))

	assert.Equal(t, PhaseFinished, e.Phase())
	assert.Equal(t, players[2], e.state.Winner)

	ev := mb.eventOfType(EventDoubtResult)
	require.NotNil(t, ev)
	assert.Equal(t, players[2].String(), ev.Winner)
	assert.Equal(t, players[1].String(), ev.TargetID)
	assert.Contains(t, ev.Reason, "doubt succeeds")
}

func TestDoubtFailsAgainstLegalWin(t *testing.T) {
	e, players, mb := setupTestEngine(t, 3, stubOracle{ron: true})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))
	require.True(t, first(e.DeclareDoubt(players[2], players[1])))

	assert.Equal(t, PhaseFinished, e.Phase())
	assert.Equal(t, players[1], e.state.Winner)

	ev := mb.eventOfType(EventDoubtResult)
	require.NotNil(t, ev)
	assert.Contains(t, ev.Reason, "doubt fails")
}

func TestDoubtValidation(t *testing.T) {
	e, players, _ := setupTestEngine(t, 3, stubOracle{ron: true})

	ok, reason := e.DeclareDoubt(players[2], players[1])
	assert.False(t, ok)
	assert.Equal(t, "doubt window is not open", reason)

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))

	ok, reason = e.DeclareDoubt(players[1], players[1])
	assert.False(t, ok)
	assert.Equal(t, "cannot doubt yourself", reason)

	ok, reason = e.DeclareDoubt(players[2], players[0])
	assert.False(t, ok)
	assert.Equal(t, "that player has not declared a win", reason)
}

// Unseated connections are viewers only; a spectator must not be able to
// challenge a declaration, let alone be recorded as the winner.
func TestDoubtFromSpectatorRejected(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{ron: false})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))

	spectator := uuid.New()
	ok, reason := e.DeclareDoubt(spectator, players[1])
	assert.False(t, ok)
	assert.Equal(t, "you are not seated in this game", reason)

	// The window stays open and nobody has won.
	assert.Equal(t, PhaseDoubtWindow, e.Phase())
	assert.Equal(t, uuid.Nil, e.state.Winner)
}

func TestDeclareTumoOnOwnTurn(t *testing.T) {
	e, players, mb := setupTestEngine(t, 2, stubOracle{tumo: true})

	ok, reason := e.DeclareTumo(players[1])
	assert.False(t, ok)
	assert.Equal(t, "not your turn", reason)

	ok, _ = e.DeclareTumo(players[0])
	require.True(t, ok)
	assert.Equal(t, PhaseDoubtWindow, e.Phase())
	assert.Equal(t, DeclarationTumo, e.state.Kind)
	assert.True(t, e.state.PublicHands[players[0]])

	ev := mb.eventOfType(EventTumoClaimed)
	require.NotNil(t, ev)
	assert.True(t, ev.DoubtAvailable)
}

func TestWallExhaustionDrawsGame(t *testing.T) {
	e, players, mb := setupTestEngine(t, 2, stubOracle{})

	// Leave nothing for the next player to draw.
	e.mu.Lock()
	e.state.Wall = nil
	e.mu.Unlock()

	require.True(t, first(e.Discard(players[0], 0)))
	time.Sleep(e.RonWindow + 50*time.Millisecond)

	assert.Equal(t, PhaseFinished, e.Phase())
	assert.Equal(t, uuid.Nil, e.state.Winner)

	ev := mb.eventOfType(EventGameDrawn)
	require.NotNil(t, ev)
	assert.Equal(t, "wall exhausted", ev.Reason)
}

// A ron timer firing after the window was already claimed must be a no-op:
// the engine mutex linearizes the race and the loser sees a closed window.
func TestStaleRonTimerIsNoop(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{ron: true})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))

	e.onRonTimeout()

	assert.Equal(t, PhaseDoubtWindow, e.Phase())
	assert.Equal(t, 0, e.state.TurnIndex)
}

func TestStaleDoubtTimerIsNoop(t *testing.T) {
	e, players, _ := setupTestEngine(t, 3, stubOracle{ron: false})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))
	require.True(t, first(e.DeclareDoubt(players[2], players[1])))

	winner := e.state.Winner
	e.onDoubtTimeout()

	assert.Equal(t, PhaseFinished, e.Phase())
	assert.Equal(t, winner, e.state.Winner)
}

func TestActionAfterTimeoutRejected(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{ron: true})

	require.True(t, first(e.Discard(players[0], 0)))
	time.Sleep(e.RonWindow + 50*time.Millisecond)

	ok, reason := e.DeclareRon(players[1])
	assert.False(t, ok)
	assert.Equal(t, "ron window is not open", reason)
}

func TestActionsAfterFinishRejected(t *testing.T) {
	e, players, _ := setupTestEngine(t, 3, stubOracle{ron: true})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))
	require.True(t, first(e.DeclareDoubt(players[2], players[1])))

	ok, reason := e.Discard(players[1], 0)
	assert.False(t, ok)
	assert.Equal(t, "game is not active", reason)

	ok, _ = e.DeclareTumo(players[1])
	assert.False(t, ok)
}

// first adapts the (bool, string) action results for require.True.
func first(ok bool, _ string) bool { return ok }
