package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnnkoATAMA/tensai/internal/mahjong"
)

func TestSnapshotHidesOtherHands(t *testing.T) {
	e, players, _ := setupTestEngine(t, 3, stubOracle{})

	snap := e.Snapshot(players[1])

	own := snap.Players[players[1].String()]
	assert.Len(t, own.Hand, mahjong.HandSize)
	assert.False(t, own.HandPublic)

	for _, other := range []uuid.UUID{players[0], players[2]} {
		view := snap.Players[other.String()]
		assert.Empty(t, view.Hand, "opponent hand must not leak")
	}
	assert.Equal(t, players[0].String(), snap.CurrentPlayerID)
}

func TestSnapshotSpectatorSeesNoHands(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{})

	snap := e.Snapshot(uuid.New())

	for _, p := range players {
		assert.Empty(t, snap.Players[p.String()].Hand)
	}
	assert.Equal(t, mahjong.TotalTiles-2*mahjong.HandSize-1, snap.WallCount)
}

func TestSnapshotExposesDeclarerHandToAllViewers(t *testing.T) {
	e, players, _ := setupTestEngine(t, 3, stubOracle{ron: false})

	require.True(t, first(e.Discard(players[0], 0)))
	require.True(t, first(e.DeclareRon(players[1])))

	ownHand := e.Snapshot(players[1]).Players[players[1].String()].Hand
	require.Len(t, ownHand, mahjong.HandSize)

	// A public hand renders identically for the owner, every seated
	// opponent, and an unseated spectator.
	viewers := []uuid.UUID{players[0], players[1], players[2], uuid.New()}
	for _, viewer := range viewers {
		snap := e.Snapshot(viewer)
		view := snap.Players[players[1].String()]
		assert.Equal(t, ownHand, view.Hand, "viewer %s", viewer)
		assert.True(t, view.HandPublic, "viewer %s", viewer)
		assert.Equal(t, players[1].String(), snap.Declarer)
		assert.Equal(t, DeclarationRon, snap.DeclarationKind)
	}
}

func TestSnapshotLastDiscard(t *testing.T) {
	e, players, _ := setupTestEngine(t, 2, stubOracle{})

	require.True(t, first(e.Discard(players[0], 3)))

	snap := e.Snapshot(players[1])
	require.NotNil(t, snap.LastDiscard)
	assert.Equal(t, players[0], snap.LastDiscard.PlayerID)
	assert.NotEmpty(t, snap.LastDiscard.Tile)
	assert.Equal(t, []string{snap.LastDiscard.Tile}, snap.Players[players[0].String()].Discards)
}
