package state

import (
	"database/sql"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/settlenet-io/settle-go/common"
	"github.com/settlenet-io/settle-go/database"
)

// StateDB persists the two append-only ledgers plus a small kv table for
// singleton values.
type StateDB struct {
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	// 1. Create the tables.
	if _, err := db.Exec(settlementTable + transferTable + kvTable); err != nil {
		return nil, err
	}

	// 2. A stmt cache + db.
	return &StateDB{
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) GetKeyedValue(key ethcommon.Hash) (ethcommon.Hash, error) {
	query := `SELECT value FROM kv WHERE key = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return ethcommon.Hash{}, err
	}

	var value string
	if err := stmt.QueryRow(key.String()[2:]).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return ethcommon.Hash{}, nil
		}
		return ethcommon.Hash{}, err
	}

	return ethcommon.Hash(common.HexStrToBytes32(value)), nil
}

func (st *StateDB) SetKeyedValue(key ethcommon.Hash, value [32]byte) error {
	query := `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(key.String()[2:], ethcommon.Hash(value).String()[2:])
	return err
}

var lastRefundSweepKey = ethcommon.BytesToHash([]byte("last-refund-sweep"))

// SetLastRefundSweep records when the refund keeper last swept the
// transfer ledger, so a restarted operator can see how stale the keeper is.
func (st *StateDB) SetLastRefundSweep(ts int64) error {
	return st.SetKeyedValue(lastRefundSweepKey, ethcommon.BigToHash(big.NewInt(ts)))
}

func (st *StateDB) GetLastRefundSweep() (int64, bool, error) {
	v, err := st.GetKeyedValue(lastRefundSweepKey)
	if err != nil {
		return 0, false, err
	}
	if v == (ethcommon.Hash{}) {
		return 0, false, nil
	}
	return v.Big().Int64(), true, nil
}
