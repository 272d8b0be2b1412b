package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/AnnkoATAMA/tensai/internal/auth"
	"github.com/AnnkoATAMA/tensai/internal/database"
)

func roomErrorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrRoomFull),
		errors.Is(err, database.ErrAlreadyInRoom),
		errors.Is(err, database.ErrNotInRoom):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CreateRoomHandler creates a room and seats the creator.
func CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		MaxPlayers int    `json:"max_players"`
		GameType   string `json:"game_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if req.MaxPlayers < 2 || req.MaxPlayers > 4 {
		http.Error(w, "max_players must be between 2 and 4", http.StatusBadRequest)
		return
	}
	if req.GameType != "sanma" && req.GameType != "yonma" {
		http.Error(w, "game_type must be 'sanma' or 'yonma'", http.StatusBadRequest)
		return
	}

	room, err := database.CreateRoom(r.Context(), userID, req.MaxPlayers, req.GameType)
	if err != nil {
		http.Error(w, err.Error(), roomErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(room)
}

// ListRoomsHandler lists all rooms.
func ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := database.ListRooms(r.Context())
	if err != nil {
		http.Error(w, "failed to list rooms", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

type roomRequest struct {
	RoomID uuid.UUID `json:"room_id"`
}

func decodeRoomRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == uuid.Nil {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return req.RoomID, userID, true
}

// JoinRoomHandler seats the caller in a room.
func JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := decodeRoomRequest(w, r)
	if !ok {
		return
	}
	if err := database.JoinRoom(r.Context(), roomID, userID); err != nil {
		http.Error(w, err.Error(), roomErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// LeaveRoomHandler removes the caller's seat.
func LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := decodeRoomRequest(w, r)
	if !ok {
		return
	}
	if err := database.LeaveRoom(r.Context(), roomID, userID); err != nil {
		http.Error(w, err.Error(), roomErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteRoomHandler deletes a room the caller is seated in.
func DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := decodeRoomRequest(w, r)
	if !ok {
		return
	}
	if err := database.DeleteRoom(r.Context(), roomID, userID); err != nil {
		http.Error(w, err.Error(), roomErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// RoomPlayersHandler lists the seated users of ?room_id=.
func RoomPlayersHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.URL.Query().Get("room_id"))
	if err != nil {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}
	players, err := database.GetRoomPlayers(r.Context(), roomID)
	if err != nil {
		http.Error(w, "failed to list players", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(players)
}
