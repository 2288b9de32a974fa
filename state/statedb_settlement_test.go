package state

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/settlenet-io/settle-go/common"
)

func newTestStateDBEnv(t *testing.T) (*StateDB, func()) {
	sqlDB := NewMemoryDB()
	statedb, err := NewStateDB(sqlDB)
	assert.NoError(t, err)
	return statedb, func() {
		statedb.Close()
		sqlDB.Close()
	}
}

func TestInsertSettlementAssignsMonotonicIds(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	id1, err := db.InsertSettlement(RandSettlement(SettlementStatusPending))
	assert.NoError(t, err)
	id2, err := db.InsertSettlement(RandSettlement(SettlementStatusPending))
	assert.NoError(t, err)
	assert.Equal(t, id1+1, id2)
}

func TestInsertSettlementRejectsInvalid(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	s := RandSettlement(SettlementStatusPending)
	s.MakerAmount = nil
	_, err := db.InsertSettlement(s)
	assert.ErrorIs(t, err, ErrorAmountInvalid)

	s = RandSettlement(SettlementStatusPending)
	s.TradeId = ethcommon.Hash{}
	_, err = db.InsertSettlement(s)
	assert.ErrorIs(t, err, ErrorTradeIdInvalid)

	s = RandSettlement(SettlementStatusPending)
	s.Taker = s.Maker
	_, err = db.InsertSettlement(s)
	assert.ErrorIs(t, err, ErrorSelfTradeInvalid)
}

func TestGetSettlementRoundTrip(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	expected := RandSettlement(SettlementStatusPending)
	id, err := db.InsertSettlement(expected)
	assert.NoError(t, err)

	actual, ok, err := db.GetSettlement(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, actual.Id)
	assert.Equal(t, expected.TradeId, actual.TradeId)
	assert.Equal(t, expected.Maker, actual.Maker)
	assert.Equal(t, expected.Taker, actual.Taker)
	assert.Equal(t, expected.MakerAsset, actual.MakerAsset)
	assert.Equal(t, expected.TakerAsset, actual.TakerAsset)
	assert.Equal(t, expected.MakerAmount, actual.MakerAmount)
	assert.Equal(t, expected.TakerAmount, actual.TakerAmount)
	assert.Equal(t, expected.Status, actual.Status)
	assert.Equal(t, expected.CreatedAt, actual.CreatedAt)
	assert.Equal(t, ethcommon.Hash{}, actual.Proof)

	_, ok, err = db.GetSettlement(id + 100)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkSettlementCompletedOnce(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	id, err := db.InsertSettlement(RandSettlement(SettlementStatusPending))
	assert.NoError(t, err)

	proof := ethcommon.Hash(common.RandBytes32())
	ok, err := db.MarkSettlementCompleted(id, proof)
	assert.NoError(t, err)
	assert.True(t, ok)

	s, _, err := db.GetSettlement(id)
	assert.NoError(t, err)
	assert.Equal(t, SettlementStatusCompleted, s.Status)
	assert.Equal(t, proof, s.Proof)

	// second flip must be a no-op
	ok, err = db.MarkSettlementCompleted(id, ethcommon.Hash(common.RandBytes32()))
	assert.NoError(t, err)
	assert.False(t, ok)

	// a completed settlement cannot be refunded either
	ok, err = db.MarkSettlementRefunded(id)
	assert.NoError(t, err)
	assert.False(t, ok)

	s, _, err = db.GetSettlement(id)
	assert.NoError(t, err)
	assert.Equal(t, SettlementStatusCompleted, s.Status)
	assert.Equal(t, proof, s.Proof)
}

func TestMarkSettlementRefundedOnce(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	id, err := db.InsertSettlement(RandSettlement(SettlementStatusPending))
	assert.NoError(t, err)

	ok, err := db.MarkSettlementRefunded(id)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.MarkSettlementRefunded(id)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.MarkSettlementCompleted(id, ethcommon.Hash(common.RandBytes32()))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestGetSettlementsByStatus(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	id1, err := db.InsertSettlement(RandSettlement(SettlementStatusPending))
	assert.NoError(t, err)
	id2, err := db.InsertSettlement(RandSettlement(SettlementStatusPending))
	assert.NoError(t, err)

	ok, err := db.MarkSettlementRefunded(id1)
	assert.NoError(t, err)
	assert.True(t, ok)

	pending, err := db.GetSettlementsByStatus(SettlementStatusPending)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].Id)

	refunded, err := db.GetSettlementsByStatus(SettlementStatusRefunded)
	assert.NoError(t, err)
	assert.Len(t, refunded, 1)
	assert.Equal(t, id1, refunded[0].Id)
}

func TestGetExpiredPendingSettlements(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	fresh := RandSettlement(SettlementStatusPending)
	fresh.CreatedAt = 1000
	stale := RandSettlement(SettlementStatusPending)
	stale.CreatedAt = 100

	_, err := db.InsertSettlement(fresh)
	assert.NoError(t, err)
	staleId, err := db.InsertSettlement(stale)
	assert.NoError(t, err)

	// timeout 600s, now=800: only the record created at t=100 is past expiry
	expired, err := db.GetExpiredPendingSettlements(800, 600)
	assert.NoError(t, err)
	assert.Len(t, expired, 1)
	assert.Equal(t, staleId, expired[0].Id)

	// boundary: expiry == now is not yet expired
	expired, err = db.GetExpiredPendingSettlements(700, 600)
	assert.NoError(t, err)
	assert.Len(t, expired, 0)
}

func TestGetSettlementStats(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	s1 := RandSettlement(SettlementStatusPending) // 100/50
	s2 := RandSettlement(SettlementStatusPending)
	s3 := RandSettlement(SettlementStatusPending)

	id1, err := db.InsertSettlement(s1)
	assert.NoError(t, err)
	_, err = db.InsertSettlement(s2)
	assert.NoError(t, err)
	id3, err := db.InsertSettlement(s3)
	assert.NoError(t, err)

	_, err = db.MarkSettlementCompleted(id1, ethcommon.Hash(common.RandBytes32()))
	assert.NoError(t, err)
	_, err = db.MarkSettlementRefunded(id3)
	assert.NoError(t, err)

	stats, err := db.GetSettlementStats()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Refunded)
	assert.Equal(t, "150", stats.Volume) // both legs of the completed one
}

func TestSettlementAmountsAboveUint64RoundTrip(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	// 2^64 + 7: must come back unchanged, not truncated
	huge := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(7))

	s := RandSettlement(SettlementStatusPending)
	s.MakerAmount = new(big.Int).Set(huge)
	s.TakerAmount = new(big.Int).Lsh(big.NewInt(1), 128)

	id, err := db.InsertSettlement(s)
	assert.NoError(t, err)

	actual, ok, err := db.GetSettlement(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, huge, actual.MakerAmount)
	assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 128), actual.TakerAmount)
}

func TestLastRefundSweepRoundTrip(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	_, ok, err := db.GetLastRefundSweep()
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, db.SetLastRefundSweep(12345))
	ts, ok, err := db.GetLastRefundSweep()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12345), ts)

	// later sweeps overwrite
	assert.NoError(t, db.SetLastRefundSweep(67890))
	ts, _, err = db.GetLastRefundSweep()
	assert.NoError(t, err)
	assert.Equal(t, int64(67890), ts)
}
