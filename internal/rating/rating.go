package rating

import (
	"math"

	"github.com/google/uuid"

	"github.com/AnnkoATAMA/tensai/internal/models"
)

const iterations = 10

// FinalizeGame updates every seated player's rating for one finished game.
// The winner scores 1.0 and everyone else 0.0; a drawn game (winner ==
// uuid.Nil) scores everyone 0.5. Each player's opponent is modeled as the
// average of the other seats, iterated so the update converges.
func FinalizeGame(players []models.User, winnerID uuid.UUID) []models.User {
	if len(players) < 2 {
		return players
	}

	scores := make([]float64, len(players))
	for i, p := range players {
		switch {
		case winnerID == uuid.Nil:
			scores[i] = 0.5
		case p.ID == winnerID:
			scores[i] = 1.0
		default:
			scores[i] = 0.0
		}
	}

	states := make([]Glicko2, len(players))
	for i, p := range players {
		states[i] = FromRating(float64(p.Rating), DefaultRD, DefaultSigma)
	}

	for iter := 0; iter < iterations; iter++ {
		var total float64
		for i := range states {
			total += states[i].Rating()
		}
		next := make([]Glicko2, len(states))
		for i := range states {
			oppRating := (total - states[i].Rating()) / float64(len(states)-1)
			opp := FromRating(oppRating, DefaultRD, DefaultSigma)
			next[i] = Update(states[i], opp, scores[i])
		}
		states = next
	}

	for i := range players {
		players[i].Rating = int(math.Round(states[i].Rating()))
	}
	return players
}
