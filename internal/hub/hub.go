// Package hub maps room identifiers to their game engines and to the set of
// live websocket connections, and fans engine events out to every viewer
// with a per-viewer snapshot attached.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnnkoATAMA/tensai/internal/game"
	"github.com/AnnkoATAMA/tensai/internal/mahjong"
)

// ErrGameInProgress is returned by Connect when an unseated player joins a
// room whose game has already started. The connection stays registered (the
// client still receives broadcasts) but cannot act.
var ErrGameInProgress = errors.New("game already in progress")

// ErrRoomFull is returned by Connect when the room is still waiting but all
// seats are taken. Like ErrGameInProgress it is non-fatal to the connection.
var ErrRoomFull = errors.New("room is full")

// writeTimeout bounds each websocket write so one slow consumer cannot
// block delivery to its peers; a timed-out write is dropped.
const writeTimeout = 3 * time.Second

// Room pairs one game engine with the live connections viewing it.
type Room struct {
	ID     string
	Engine *game.Engine
	conns  map[uuid.UUID]*websocket.Conn
}

// Hub is the process-scoped room registry. Rooms are created on the first
// connection and torn down when the last connection leaves.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	logger *logrus.Logger

	// RonWindow/DoubtWindow are applied to engines created by this hub.
	RonWindow   time.Duration
	DoubtWindow time.Duration

	// OnGameEnd, when set, is attached to every engine this hub creates.
	OnGameEnd game.OnGameEndFunc
}

// New builds an empty hub. Engines it creates use the default declaration
// windows unless the duration fields are overridden before the first
// connection.
func New(logger *logrus.Logger) *Hub {
	return &Hub{
		rooms:       make(map[string]*Room),
		logger:      logger,
		RonWindow:   game.DefaultRonWindow,
		DoubtWindow: game.DefaultDoubtWindow,
	}
}

// Connect registers a live connection for playerID in roomID, creating the
// room (and its engine) on first connect. New players are auto-seated while
// the game is waiting; an unseated player connecting after the start gets
// ErrGameInProgress, which is non-fatal to the connection.
func (h *Hub) Connect(roomID string, playerID uuid.UUID, name string, conn *websocket.Conn) error {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		engine := game.NewEngine(roomID, mahjong.ShapeOracle{})
		engine.RonWindow = h.RonWindow
		engine.DoubtWindow = h.DoubtWindow
		// The hub is the engine's only subscriber; wired exactly once here.
		engine.BroadcastFn = func(ev game.Event) {
			h.Broadcast(ev, roomID)
		}
		engine.OnGameEnd = h.OnGameEnd
		room = &Room{
			ID:     roomID,
			Engine: engine,
			conns:  make(map[uuid.UUID]*websocket.Conn),
		}
		h.rooms[roomID] = room
		h.logger.WithField("room", roomID).Info("room created")
	}
	room.conns[playerID] = conn
	h.mu.Unlock()

	h.Broadcast(game.Event{
		Type:     game.EventPlayerConnected,
		PlayerID: playerID.String(),
	}, roomID)

	if room.Engine.Seated(playerID) {
		return nil
	}
	if seated, _ := room.Engine.AddPlayer(playerID, name); seated {
		h.Broadcast(game.Event{
			Type:     game.EventPlayerJoined,
			PlayerID: playerID.String(),
			Name:     name,
		}, roomID)
		return nil
	}
	if room.Engine.Phase() == game.PhaseWaiting {
		return ErrRoomFull
	}
	return ErrGameInProgress
}

// Disconnect removes the connection and tears the room down when nobody is
// left, cancelling all pending timers so no expiry callback fires into a
// destroyed room.
func (h *Hub) Disconnect(roomID string, playerID uuid.UUID) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(room.conns, playerID)
	empty := len(room.conns) == 0
	if empty {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if empty {
		room.Engine.Teardown()
		h.logger.WithField("room", roomID).Info("room torn down")
		return
	}
	h.Broadcast(game.Event{
		Type:     game.EventPlayerDisconnected,
		PlayerID: playerID.String(),
	}, roomID)
}

// Engine returns the engine for roomID, if the room is live.
func (h *Hub) Engine(roomID string) (*game.Engine, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return nil, false
	}
	return room.Engine, true
}

// Broadcast delivers ev to every live connection in the room, each copy
// annotated with that viewer's own snapshot. Writes run concurrently with a
// bounded timeout; fan-out order across connections is unspecified.
func (h *Hub) Broadcast(ev game.Event, roomID string) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	viewers := make(map[uuid.UUID]*websocket.Conn, len(room.conns))
	for playerID, conn := range room.conns {
		viewers[playerID] = conn
	}
	h.mu.Unlock()

	for playerID, conn := range viewers {
		if conn == nil {
			continue
		}
		viewerEv := ev
		if viewerEv.State == nil {
			snap := room.Engine.Snapshot(playerID)
			viewerEv.State = &snap
		}
		data, err := json.Marshal(viewerEv)
		if err != nil {
			h.logger.WithError(err).WithField("room", roomID).Error("failed to marshal broadcast event")
			continue
		}
		go h.write(conn, data, roomID, playerID)
	}
}

// SendPersonal delivers ev to exactly one connection. The caller supplies
// any snapshot it wants embedded.
func (h *Hub) SendPersonal(ev game.Event, roomID string, playerID uuid.UUID) {
	h.mu.Lock()
	var conn *websocket.Conn
	if room, ok := h.rooms[roomID]; ok {
		conn = room.conns[playerID]
	}
	h.mu.Unlock()

	if conn == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).WithField("room", roomID).Error("failed to marshal personal event")
		return
	}
	go h.write(conn, data, roomID, playerID)
}

func (h *Hub) write(conn *websocket.Conn, data []byte, roomID string, playerID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"room":   roomID,
			"player": playerID,
		}).Warn("failed to write websocket message")
	}
}
