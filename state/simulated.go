package state

import (
	"database/sql"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/settlenet-io/settle-go/common"
)

// Test fixtures shared across packages.

func RandSettlement(status SettlementStatus) *Settlement {
	s := &Settlement{
		TradeId:     ethcommon.Hash(common.RandBytes32()),
		Maker:       common.RandEthAddress(),
		Taker:       common.RandEthAddress(),
		MakerAsset:  common.RandEthAddress(),
		TakerAsset:  common.RandEthAddress(),
		MakerAmount: big.NewInt(100),
		TakerAmount: big.NewInt(50),
		Status:      status,
		CreatedAt:   time.Now().Unix(),
	}
	if status == SettlementStatusCompleted {
		s.Proof = ethcommon.Hash(common.RandBytes32())
	}
	return s
}

func RandTransfer(status TransferStatus) *Transfer {
	return &Transfer{
		Sender:      common.RandEthAddress(),
		Asset:       common.RandEthAddress(),
		Amount:      big.NewInt(10),
		DestChain:   "chain-x",
		DestAddress: common.RandEthAddress().Hex(),
		Status:      status,
		CreatedAt:   time.Now().Unix(),
	}
}

func NewMemoryDB() *sql.DB {
	// Each pooled connection to a plain ":memory:" DSN gets its own empty
	// database; shared cache makes them all see the same tables.
	db, err := sql.Open("sqlite3", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		logger.Fatal(err)
	}
	return db
}
