package state

import (
	"database/sql"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// InsertSettlement appends a new pending settlement and returns the
// monotonically assigned id.
func (st *StateDB) InsertSettlement(s *Settlement) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	query := `INSERT INTO settlement (` + settlementInsertParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return 0, err
	}

	r := (&sqlSettlement{}).encode(s)

	res, err := stmt.Exec(
		r.TradeId,
		r.Maker,
		r.Taker,
		r.MakerAsset,
		r.TakerAsset,
		r.MakerAmount,
		r.TakerAmount,
		r.Status,
		r.CreatedAt,
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (st *StateDB) GetSettlement(id int64) (*Settlement, bool, error) {
	query := `SELECT * FROM settlement WHERE id = ?;`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	var (
		r     sqlSettlement
		proof sql.NullString
	)

	row := stmt.QueryRow(id)
	if err := row.Scan(
		&r.Id,
		&r.TradeId,
		&r.Maker,
		&r.Taker,
		&r.MakerAsset,
		&r.TakerAsset,
		&r.MakerAmount,
		&r.TakerAmount,
		&proof,
		&r.Status,
		&r.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows { // no settlement found
			return nil, false, nil
		}
		return nil, false, err
	}

	if proof.Valid {
		r.Proof = proof.String
	}

	return r.decode(), true, nil
}

func (st *StateDB) GetSettlementsByStatus(status SettlementStatus) ([]*Settlement, error) {
	query := `SELECT * FROM settlement WHERE status = ?`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var settlements []*Settlement

	for rows.Next() {
		var (
			r     sqlSettlement
			proof sql.NullString
		)
		if err := rows.Scan(
			&r.Id,
			&r.TradeId,
			&r.Maker,
			&r.Taker,
			&r.MakerAsset,
			&r.TakerAsset,
			&r.MakerAmount,
			&r.TakerAmount,
			&proof,
			&r.Status,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}

		if proof.Valid {
			r.Proof = proof.String
		}

		settlements = append(settlements, r.decode())
	}

	return settlements, rows.Err()
}

// GetExpiredPendingSettlements returns pending settlements whose expiry
// (createdAt + timeout) lies strictly before `now`.
func (st *StateDB) GetExpiredPendingSettlements(now, timeoutSeconds int64) ([]*Settlement, error) {
	query := `SELECT id FROM settlement WHERE status = ? AND createdAt + ? < ?`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(SettlementStatusPending, timeoutSeconds, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var settlements []*Settlement
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		s, ok, err := st.GetSettlement(id)
		if err != nil {
			return nil, err
		}
		if ok {
			settlements = append(settlements, s)
		}
	}

	return settlements, rows.Err()
}

// MarkSettlementCompleted flips a pending settlement to completed and
// stores the proof. The status predicate lives in the UPDATE itself so
// the pending -> completed transition happens at most once even if two
// callers race past the engine lock.
func (st *StateDB) MarkSettlementCompleted(id int64, proof ethcommon.Hash) (bool, error) {
	query := `UPDATE settlement SET status = ?, proof = ? WHERE id = ? AND status = ?`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(SettlementStatusCompleted, proof.String()[2:], id, SettlementStatusPending)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// MarkSettlementRefunded flips a pending settlement to refunded. Same
// at-most-once guard as MarkSettlementCompleted.
func (st *StateDB) MarkSettlementRefunded(id int64) (bool, error) {
	query := `UPDATE settlement SET status = ? WHERE id = ? AND status = ?`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(SettlementStatusRefunded, id, SettlementStatusPending)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// SettlementStats are the aggregate counters exposed on the query surface.
// Volume counts both legs of every completed settlement, as a decimal
// string since amounts may exceed 64 bits.
type SettlementStats struct {
	Total     int64  `json:"total"`
	Pending   int64  `json:"pending"`
	Completed int64  `json:"completed"`
	Refunded  int64  `json:"refunded"`
	Volume    string `json:"volume"`
}

func (st *StateDB) GetSettlementStats() (*SettlementStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(CASE WHEN status = 'pending' THEN 1 END),
		COUNT(CASE WHEN status = 'completed' THEN 1 END),
		COUNT(CASE WHEN status = 'refunded' THEN 1 END)
	FROM settlement`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	stats := &SettlementStats{}
	if err := stmt.QueryRow().Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Completed,
		&stats.Refunded,
	); err != nil {
		return nil, err
	}

	// Amounts are stored as hex strings, so the volume is summed here
	// rather than in sql.
	completed, err := st.GetSettlementsByStatus(SettlementStatusCompleted)
	if err != nil {
		return nil, err
	}
	volume := new(big.Int)
	for _, s := range completed {
		volume.Add(volume, s.MakerAmount)
		volume.Add(volume, s.TakerAmount)
	}
	stats.Volume = volume.String()

	return stats, nil
}
