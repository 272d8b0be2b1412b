package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/AnnkoATAMA/tensai/internal/models"
	"github.com/AnnkoATAMA/tensai/internal/rating"
)

// FinalizeGameRatings applies the Glicko-2 update for one finished game and
// persists the new ratings. winnerID is uuid.Nil for a drawn game. Players
// without an account row are skipped; ratings only move for known users.
func FinalizeGameRatings(ctx context.Context, roomID string, playerIDs []uuid.UUID, winnerID uuid.UUID) error {
	var userList []models.User
	for _, id := range playerIDs {
		u, err := GetUserByID(ctx, id)
		if err != nil {
			log.WithField("player", id).Warn("user not found for rating update")
			continue
		}
		userList = append(userList, *u)
	}
	if len(userList) < 2 {
		return nil
	}

	oldRatings := make(map[uuid.UUID]int, len(userList))
	for _, u := range userList {
		oldRatings[u.ID] = u.Rating
	}

	updated := rating.FinalizeGame(userList, winnerID)

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, u := range updated {
			updQ := `UPDATE users SET rating=$1 WHERE id=$2`
			if _, err := tx.Exec(ctx, updQ, u.Rating, u.ID); err != nil {
				return err
			}
			insQ := `
				INSERT INTO rating_history (user_id, room_id, old_rating, new_rating)
				VALUES ($1, $2, $3, $4)
			`
			if _, err := tx.Exec(ctx, insQ, u.ID, roomID, oldRatings[u.ID], u.Rating); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx rating update: %w", err)
	}
	return nil
}
