package state

import (
	"database/sql"
	"math/big"
)

// InsertTransfer appends a new pending transfer and returns the
// monotonically assigned id.
func (st *StateDB) InsertTransfer(t *Transfer) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	query := `INSERT INTO transfer (` + transferInsertParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return 0, err
	}

	r := (&sqlTransfer{}).encode(t)

	res, err := stmt.Exec(
		r.Sender,
		r.Asset,
		r.Amount,
		r.DestChain,
		r.DestAddress,
		r.Status,
		r.CreatedAt,
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (st *StateDB) GetTransfer(id int64) (*Transfer, bool, error) {
	query := `SELECT * FROM transfer WHERE id = ?;`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	var r sqlTransfer

	row := stmt.QueryRow(id)
	if err := row.Scan(
		&r.Id,
		&r.Sender,
		&r.Asset,
		&r.Amount,
		&r.DestChain,
		&r.DestAddress,
		&r.Status,
		&r.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows { // no transfer found
			return nil, false, nil
		}
		return nil, false, err
	}

	return r.decode(), true, nil
}

func (st *StateDB) GetTransfersByStatus(status TransferStatus) ([]*Transfer, error) {
	query := `SELECT * FROM transfer WHERE status = ?`

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

	var transfers []*Transfer

	for rows.Next() {
		var r sqlTransfer
		if err := rows.Scan(
			&r.Id,
			&r.Sender,
			&r.Asset,
			&r.Amount,
			&r.DestChain,
			&r.DestAddress,
			&r.Status,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}

		transfers = append(transfers, r.decode())
	}

	return transfers, rows.Err()
}

// GetExpiredPendingTransfers returns pending transfers whose expiry
// (createdAt + timeout) lies strictly before `now`. Used by the refund
// keeper.
func (st *StateDB) GetExpiredPendingTransfers(now, timeoutSeconds int64) ([]*Transfer, error) {
	query := `SELECT * FROM transfer WHERE status = ? AND createdAt + ? < ?`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(TransferStatusPending, timeoutSeconds, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var transfers []*Transfer
	for rows.Next() {
		var r sqlTransfer
		if err := rows.Scan(
			&r.Id,
			&r.Sender,
			&r.Asset,
			&r.Amount,
			&r.DestChain,
			&r.DestAddress,
			&r.Status,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}

		transfers = append(transfers, r.decode())
	}

	return transfers, rows.Err()
}

// MarkTransferCompleted flips a pending transfer to completed. The status
// predicate in the UPDATE guarantees the flip happens exactly once.
func (st *StateDB) MarkTransferCompleted(id int64) (bool, error) {
	return st.markTransfer(id, TransferStatusCompleted)
}

// MarkTransferRefunded flips a pending transfer to refunded.
func (st *StateDB) MarkTransferRefunded(id int64) (bool, error) {
	return st.markTransfer(id, TransferStatusRefunded)
}

func (st *StateDB) markTransfer(id int64, to TransferStatus) (bool, error) {
	query := `UPDATE transfer SET status = ? WHERE id = ? AND status = ?`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(to, id, TransferStatusPending)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// TransferStats are the aggregate counters for the transfer ledger.
// Escrowed is the volume still held in engine custody, as a decimal
// string since amounts may exceed 64 bits.
type TransferStats struct {
	Total     int64  `json:"total"`
	Pending   int64  `json:"pending"`
	Completed int64  `json:"completed"`
	Refunded  int64  `json:"refunded"`
	Escrowed  string `json:"escrowed"`
}

func (st *StateDB) GetTransferStats() (*TransferStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(CASE WHEN status = 'pending' THEN 1 END),
		COUNT(CASE WHEN status = 'completed' THEN 1 END),
		COUNT(CASE WHEN status = 'refunded' THEN 1 END)
	FROM transfer`

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	stats := &TransferStats{}
	if err := stmt.QueryRow().Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Completed,
		&stats.Refunded,
	); err != nil {
		return nil, err
	}

	// Amounts are stored as hex strings, so the escrowed volume is summed
	// here rather than in sql.
	pending, err := st.GetTransfersByStatus(TransferStatusPending)
	if err != nil {
		return nil, err
	}
	escrowed := new(big.Int)
	for _, tr := range pending {
		escrowed.Add(escrowed, tr.Amount)
	}
	stats.Escrowed = escrowed.String()

	return stats, nil
}
