package rating

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AnnkoATAMA/tensai/internal/models"
)

func TestFinalizeGameWinnerGains(t *testing.T) {
	winner := models.User{ID: uuid.New(), Rating: 1500}
	loser := models.User{ID: uuid.New(), Rating: 1500}

	updated := FinalizeGame([]models.User{winner, loser}, winner.ID)

	assert.Greater(t, updated[0].Rating, 1500)
	assert.Less(t, updated[1].Rating, 1500)
}

func TestFinalizeGameDrawIsSymmetric(t *testing.T) {
	a := models.User{ID: uuid.New(), Rating: 1500}
	b := models.User{ID: uuid.New(), Rating: 1500}

	updated := FinalizeGame([]models.User{a, b}, uuid.Nil)

	assert.Equal(t, updated[0].Rating, updated[1].Rating)
}

func TestFinalizeGameUnderdogWinGainsMore(t *testing.T) {
	underdog := models.User{ID: uuid.New(), Rating: 1400}
	favorite := models.User{ID: uuid.New(), Rating: 1600}

	upset := FinalizeGame([]models.User{underdog, favorite}, underdog.ID)
	expected := FinalizeGame([]models.User{
		{ID: favorite.ID, Rating: 1600}, {ID: underdog.ID, Rating: 1400},
	}, favorite.ID)

	upsetGain := upset[0].Rating - 1400
	expectedGain := expected[0].Rating - 1600
	assert.Greater(t, upsetGain, expectedGain)
}

func TestFinalizeGameFourPlayers(t *testing.T) {
	players := make([]models.User, 4)
	for i := range players {
		players[i] = models.User{ID: uuid.New(), Rating: 1500}
	}
	winnerID := players[2].ID

	updated := FinalizeGame(players, winnerID)

	for i, p := range updated {
		if p.ID == winnerID {
			assert.Greater(t, p.Rating, 1500, "seat %d", i)
		} else {
			assert.Less(t, p.Rating, 1500, "seat %d", i)
		}
	}
}

func TestFinalizeGameSinglePlayerNoop(t *testing.T) {
	only := models.User{ID: uuid.New(), Rating: 1500}
	updated := FinalizeGame([]models.User{only}, only.ID)
	assert.Equal(t, 1500, updated[0].Rating)
}
