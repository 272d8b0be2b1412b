package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AnnkoATAMA/tensai/internal/models"
)

// Room membership errors, mapped to HTTP statuses by the handlers.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("you are already in a room")
	ErrNotInRoom     = errors.New("you are not in this room")
)

// roomForUser returns the room the user currently occupies, or uuid.Nil.
func roomForUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (uuid.UUID, error) {
	var roomID uuid.UUID
	q := `SELECT room_id FROM room_players WHERE user_id=$1`
	err := tx.QueryRow(ctx, q, userID).Scan(&roomID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return roomID, nil
}

// CreateRoom inserts a room and seats the creator in it. A user already
// occupying a room cannot create another.
func CreateRoom(ctx context.Context, userID uuid.UUID, maxPlayers int, gameType string) (*models.Room, error) {
	room := &models.Room{MaxPlayers: maxPlayers, GameType: gameType}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate room id: %w", err)
	}
	room.ID = id

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		existing, err := roomForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if existing != uuid.Nil {
			return ErrAlreadyInRoom
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rooms (id, max_players, game_type) VALUES ($1, $2, $3)`,
			room.ID, room.MaxPlayers, room.GameType,
		); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO room_players (room_id, user_id) VALUES ($1, $2)`,
			room.ID, userID,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns every room row.
func ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := DB.Query(ctx, `SELECT id, max_players, game_type FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.MaxPlayers, &r.GameType); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// JoinRoom seats userID in roomID, enforcing existence, capacity, and the
// one-room-per-user rule.
func JoinRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var maxPlayers int
		err := tx.QueryRow(ctx, `SELECT max_players FROM rooms WHERE id=$1`, roomID).Scan(&maxPlayers)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		existing, err := roomForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if existing != uuid.Nil {
			return ErrAlreadyInRoom
		}

		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM room_players WHERE room_id=$1`, roomID,
		).Scan(&count); err != nil {
			return err
		}
		if count >= maxPlayers {
			return ErrRoomFull
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO room_players (room_id, user_id) VALUES ($1, $2)`,
			roomID, userID,
		)
		return err
	})
}

// LeaveRoom removes userID's seat in roomID.
func LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	tag, err := DB.Exec(ctx,
		`DELETE FROM room_players WHERE room_id=$1 AND user_id=$2`,
		roomID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInRoom
	}
	return nil
}

// DeleteRoom removes the room and all its seats. Only a member may delete.
func DeleteRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var member bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM room_players WHERE room_id=$1 AND user_id=$2)`,
			roomID, userID,
		).Scan(&member); err != nil {
			return err
		}
		if !member {
			return ErrNotInRoom
		}
		if _, err := tx.Exec(ctx, `DELETE FROM room_players WHERE room_id=$1`, roomID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRoomNotFound
		}
		return nil
	})
}

// GetRoomPlayers lists the seated users with their display names.
func GetRoomPlayers(ctx context.Context, roomID uuid.UUID) ([]models.RoomPlayer, error) {
	q := `
		SELECT p.room_id, p.user_id, u.name
		FROM room_players p
		JOIN users u ON u.id = p.user_id
		WHERE p.room_id = $1
	`
	rows, err := DB.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.RoomPlayer
	for rows.Next() {
		var p models.RoomPlayer
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.Name); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
