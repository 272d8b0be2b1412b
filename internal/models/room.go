package models

import "github.com/google/uuid"

// Room is a persisted lobby row. GameType is 'sanma' (three players) or
// 'yonma' (four players).
type Room struct {
	ID         uuid.UUID `json:"id"`
	MaxPlayers int       `json:"max_players"`
	GameType   string    `json:"game_type"`
}

// RoomPlayer maps a user to the room they currently occupy. A user may sit
// in at most one room at a time.
type RoomPlayer struct {
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}
