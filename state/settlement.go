package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/settlenet-io/settle-go/common"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"   // recorded, no funds moved yet
	SettlementStatusCompleted SettlementStatus = "completed" // both legs applied on the token ledger
	SettlementStatusRefunded  SettlementStatus = "refunded"  // closed out after expiry, no funds moved
)

var (
	ErrorTradeIdInvalid     = errors.New("trade id invalid")
	ErrorMakerInvalid       = errors.New("maker address invalid")
	ErrorTakerInvalid       = errors.New("taker address invalid")
	ErrorAssetInvalid       = errors.New("asset address invalid")
	ErrorAmountInvalid      = errors.New("amount invalid")
	ErrorCreatedAtInvalid   = errors.New("createdAt invalid")
	ErrorStatusInvalid      = errors.New("status invalid")
	ErrorSelfTradeInvalid   = errors.New("maker and taker are the same identity")
	ErrorProofWithoutStatus = errors.New("proof set on a non-completed settlement")
)

// Settlement is one entry of the append-only settlement ledger: a single
// atomic two-legged value exchange between a maker and a taker. Records
// are never deleted; status moves pending -> completed or pending ->
// refunded, at most once.
type Settlement struct {
	Id          int64
	TradeId     ethcommon.Hash
	Maker       ethcommon.Address
	Taker       ethcommon.Address
	MakerAsset  ethcommon.Address
	TakerAsset  ethcommon.Address
	MakerAmount *big.Int
	TakerAmount *big.Int
	Proof       ethcommon.Hash // set on completion, zero otherwise
	Status      SettlementStatus
	CreatedAt   int64 // unix seconds
}

// Validate checks the record's internal consistency before it is stored.
func (s *Settlement) Validate() error {
	if s.TradeId == (ethcommon.Hash{}) {
		return ErrorTradeIdInvalid
	}
	if s.Maker == (ethcommon.Address{}) {
		return ErrorMakerInvalid
	}
	if s.Taker == (ethcommon.Address{}) {
		return ErrorTakerInvalid
	}
	if s.Maker == s.Taker {
		return ErrorSelfTradeInvalid
	}
	if s.MakerAsset == (ethcommon.Address{}) || s.TakerAsset == (ethcommon.Address{}) {
		return ErrorAssetInvalid
	}
	if !common.IsPositive(s.MakerAmount) || !common.IsPositive(s.TakerAmount) {
		return ErrorAmountInvalid
	}
	if s.CreatedAt <= 0 {
		return ErrorCreatedAtInvalid
	}
	switch s.Status {
	case SettlementStatusPending, SettlementStatusCompleted, SettlementStatusRefunded:
	default:
		return ErrorStatusInvalid
	}
	if s.Proof != (ethcommon.Hash{}) && s.Status != SettlementStatusCompleted {
		return ErrorProofWithoutStatus
	}
	return nil
}

// Expiry is the deadline after which the settlement may no longer be
// executed, only refunded.
func (s *Settlement) Expiry(timeoutSeconds int64) int64 {
	return s.CreatedAt + timeoutSeconds
}

func (s *Settlement) IsPending() bool {
	return s.Status == SettlementStatusPending
}

func (s *Settlement) IsResolved() bool {
	return s.Status == SettlementStatusCompleted || s.Status == SettlementStatusRefunded
}

func (s *Settlement) Clone() *Settlement {
	clone := *s
	clone.MakerAmount = common.BigIntClone(s.MakerAmount)
	clone.TakerAmount = common.BigIntClone(s.TakerAmount)
	return &clone
}

func (s *Settlement) String() string {
	return fmt.Sprintf(
		"Settlement { Id: %d, TradeId: %s, Maker: %s, Taker: %s, MakerAsset: %s, TakerAsset: %s, MakerAmount: %v, TakerAmount: %v, Status: %s }",
		s.Id, s.TradeId, s.Maker.Hex(), s.Taker.Hex(), s.MakerAsset.Hex(), s.TakerAsset.Hex(), s.MakerAmount, s.TakerAmount, s.Status,
	)
}
