package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnnkoATAMA/tensai/internal/auth"
	"github.com/AnnkoATAMA/tensai/internal/cache"
	"github.com/AnnkoATAMA/tensai/internal/database"
	"github.com/AnnkoATAMA/tensai/internal/game"
	"github.com/AnnkoATAMA/tensai/internal/hub"
)

// wsMessage is the inbound frame for the game websocket.
type wsMessage struct {
	Action   string `json:"action"`
	HaiIdx   *int   `json:"hai_idx,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

// RoomWSHandler upgrades the connection for one room (/room/ws/{room_id}),
// resolves the player from the session cookie, registers them with the hub,
// and runs the read loop until the client goes away.
func RoomWSHandler(logger *logrus.Logger, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if roomID == "" {
			http.Error(w, "Missing room_id in path (/room/ws/{room_id})", http.StatusBadRequest)
			return
		}

		userID, err := auth.UserIDFromRequest(r)
		if err != nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		user, err := database.GetUserByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "Unknown user", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.WithError(err).Warnf("WebSocket accept error for room %s", roomID)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		logger.WithFields(logrus.Fields{
			"room":   roomID,
			"player": userID,
			"remote": r.RemoteAddr,
		}).Info("websocket connected")

		if err := h.Connect(roomID, userID, user.Name, c); err != nil {
			switch {
			case errors.Is(err, hub.ErrGameInProgress):
				// Non-fatal: the connection stays and receives broadcasts,
				// but an unseated player cannot act.
				h.SendPersonal(game.Event{
					Type:    game.EventError,
					Message: "game already started",
				}, roomID, userID)
			case errors.Is(err, hub.ErrRoomFull):
				h.SendPersonal(game.Event{
					Type:    game.EventError,
					Message: "room is full",
				}, roomID, userID)
			default:
				logger.WithError(err).Warnf("failed to connect player %s to room %s", userID, roomID)
				c.Close(websocket.StatusInternalError, "Failed to join room.")
				return
			}
		}

		readRoomMessages(r.Context(), c, h, roomID, userID, logger)

		h.Disconnect(roomID, userID)
		logger.WithFields(logrus.Fields{
			"room":   roomID,
			"player": userID,
		}).Info("websocket disconnected")
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readRoomMessages dispatches inbound frames to the engine. Rejections go
// back to the acting connection only; accepted actions are broadcast by the
// engine itself and logged to the historian queue.
func readRoomMessages(ctx context.Context, c *websocket.Conn, h *hub.Hub, roomID string, userID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				logger.WithError(err).Warnf("read error for player %s in room %s", userID, roomID)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.SendPersonal(game.Event{Type: game.EventError, Message: "invalid JSON"}, roomID, userID)
			continue
		}

		engine, ok := h.Engine(roomID)
		if !ok {
			h.SendPersonal(game.Event{Type: game.EventError, Message: "room not found"}, roomID, userID)
			continue
		}

		var accepted bool
		var reason string
		payload := map[string]interface{}{}

		switch msg.Action {
		case "start_game":
			accepted, reason = engine.StartGame()

		case "discard":
			if msg.HaiIdx == nil {
				reason = "hai_idx is required"
				break
			}
			payload["hai_idx"] = *msg.HaiIdx
			accepted, reason = engine.Discard(userID, *msg.HaiIdx)

		case "claim_tumo":
			accepted, reason = engine.DeclareTumo(userID)

		case "claim_ron":
			accepted, reason = engine.DeclareRon(userID)

		case "claim_doubt":
			targetID, parseErr := uuid.Parse(msg.TargetID)
			if parseErr != nil {
				reason = "target_id is required"
				break
			}
			payload["target_id"] = msg.TargetID
			accepted, reason = engine.DeclareDoubt(userID, targetID)

		case "get_game_state":
			snap := engine.Snapshot(userID)
			h.SendPersonal(game.Event{Type: game.EventGameState, State: &snap}, roomID, userID)
			continue

		default:
			reason = "unknown action: " + msg.Action
		}

		if !accepted {
			h.SendPersonal(game.Event{Type: game.EventError, Message: reason}, roomID, userID)
			continue
		}
		logRoomAction(logger, roomID, userID, msg.Action, payload)
	}
}

// logRoomAction pushes an accepted action to the historian queue without
// blocking the read loop. Errors are logged and dropped.
func logRoomAction(logger *logrus.Logger, roomID string, actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	record := cache.RoomActionRecord{
		RoomID:     roomID,
		ActorID:    actorID,
		ActionType: actionType,
		Payload:    payload,
		Timestamp:  time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoomAction(ctx, record); err != nil {
			logger.WithError(err).Debug("failed to publish room action")
		}
	}()
}
