// SettlementEngine drives the settlement ledger: one entry per matched
// trade, executed as an atomic two-legged swap through the token ledger.
// No funds are escrowed at creation; both legs rely on the counterparties
// having pre-authorized the ledger to debit them, and move only during
// execution.

package engine

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"

	"github.com/settlenet-io/settle-go/agreement"
	"github.com/settlenet-io/settle-go/common"
	"github.com/settlenet-io/settle-go/registry"
	"github.com/settlenet-io/settle-go/state"
)

type SettlementEngine struct {
	statedb  *state.StateDB
	registry *registry.Registry
	ledger   agreement.TokenLedger
	events   *Events

	// the engine's account on the token ledger. The maker leg passes
	// through it during execution so an aborted swap never needs the
	// taker's authorization to unwind.
	custody ethcommon.Address

	now func() int64 // unix seconds

	// Serializes every state-changing call: the ledger must behave as a
	// single global order of operations.
	opLock sync.Mutex
}

func NewSettlementEngine(
	statedb *state.StateDB,
	reg *registry.Registry,
	ledger agreement.TokenLedger,
	custody ethcommon.Address,
	events *Events,
	cfg *Config,
) *SettlementEngine {
	clock := cfg.clock()
	return &SettlementEngine{
		statedb:  statedb,
		registry: reg,
		ledger:   ledger,
		custody:  custody,
		events:   events,
		now:      func() int64 { return clock().Unix() },
	}
}

// CreateSettlement records a new pending settlement on behalf of an
// authorized matcher. No funds move here.
func (se *SettlementEngine) CreateSettlement(
	caller ethcommon.Address,
	tradeId ethcommon.Hash,
	maker, taker ethcommon.Address,
	makerAsset, takerAsset ethcommon.Address,
	makerAmount, takerAmount *big.Int,
) (int64, error) {
	se.opLock.Lock()
	defer se.opLock.Unlock()

	snap := se.registry.Snapshot()
	if snap.Paused {
		return 0, agreement.ErrSystemPaused
	}
	if !snap.IsAuthorizedMatcher(caller) {
		return 0, agreement.ErrUnauthorized
	}
	if !snap.IsSupportedAsset(makerAsset) || !snap.IsSupportedAsset(takerAsset) {
		return 0, agreement.ErrAssetNotSupported
	}
	if !common.IsPositive(makerAmount) || !common.IsPositive(takerAmount) {
		return 0, agreement.ErrAmountInvalid
	}

	s := &state.Settlement{
		TradeId:     tradeId,
		Maker:       maker,
		Taker:       taker,
		MakerAsset:  makerAsset,
		TakerAsset:  takerAsset,
		MakerAmount: common.BigIntClone(makerAmount),
		TakerAmount: common.BigIntClone(takerAmount),
		Status:      state.SettlementStatusPending,
		CreatedAt:   se.now(),
	}
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", agreement.ErrRecordInvalid, err)
	}

	id, err := se.statedb.InsertSettlement(s)
	if err != nil {
		return 0, err
	}

	logger.WithFields(logger.Fields{
		"id":      id,
		"tradeId": common.Shorten(tradeId.String(), 6),
		"matcher": caller.Hex(),
	}).Info("settlement created")

	se.events.publishSettlementCreated(&agreement.SettlementCreatedEvent{
		Id:          id,
		TradeId:     tradeId,
		Maker:       maker,
		Taker:       taker,
		MakerAsset:  makerAsset,
		TakerAsset:  takerAsset,
		MakerAmount: common.BigIntClone(makerAmount),
		TakerAmount: common.BigIntClone(takerAmount),
	})

	return id, nil
}

// ExecuteSettlement performs the two-legged swap before the expiry
// deadline. Anyone may call it: once both parties have pre-authorized the
// token ledger, a neutral keeper is enough to trigger settlement. Both
// legs apply or neither does.
func (se *SettlementEngine) ExecuteSettlement(id int64) error {
	se.opLock.Lock()
	defer se.opLock.Unlock()

	snap := se.registry.Snapshot()
	if snap.Paused {
		return agreement.ErrSystemPaused
	}

	s, ok, err := se.statedb.GetSettlement(id)
	if err != nil {
		return err
	}
	if !ok {
		return agreement.ErrUnknownSettlement
	}
	if !s.IsPending() {
		return agreement.ErrInvalidState
	}

	now := se.now()
	if now > s.Expiry(int64(snap.SettlementTimeout.Seconds())) {
		return agreement.ErrExpired
	}

	// Leg 1: maker pays into engine custody. The maker's side is parked
	// there until the taker's side clears, so an aborted swap is returned
	// by spending custody, which needs no authorization from either party.
	if err := se.ledger.TransferFrom(s.Maker, se.custody, s.MakerAsset, s.MakerAmount); err != nil {
		logger.WithFields(logger.Fields{"id": id, "leg": 1}).Errorf("ledger transfer failed: err=%v", err)
		return fmt.Errorf("%w: maker leg: %v", agreement.ErrLedgerTransferFailed, err)
	}

	// Leg 2: taker pays maker. On failure custody returns the maker's
	// funds and no balance change is retained.
	if err := se.ledger.TransferFrom(s.Taker, s.Maker, s.TakerAsset, s.TakerAmount); err != nil {
		logger.WithFields(logger.Fields{"id": id, "leg": 2}).Errorf("ledger transfer failed: err=%v", err)
		if undoErr := se.ledger.Transfer(s.Maker, s.MakerAsset, s.MakerAmount); undoErr != nil {
			// Custody refused to pay out. This needs operator
			// intervention and must be loud.
			logger.WithField("id", id).Errorf("failed to return maker leg from custody: err=%v", undoErr)
			return fmt.Errorf("%w: taker leg: %v (unwind failed: %v)", agreement.ErrLedgerTransferFailed, err, undoErr)
		}
		return fmt.Errorf("%w: taker leg: %v", agreement.ErrLedgerTransferFailed, err)
	}

	// Release the maker's side from custody to the taker.
	if err := se.ledger.Transfer(s.Taker, s.MakerAsset, s.MakerAmount); err != nil {
		logger.WithFields(logger.Fields{"id": id}).Errorf("custody release failed: err=%v", err)
		if undoErr := se.ledger.TransferFrom(s.Maker, s.Taker, s.TakerAsset, s.TakerAmount); undoErr != nil {
			logger.WithField("id", id).Errorf("failed to unwind taker leg: err=%v", undoErr)
			return fmt.Errorf("%w: release: %v (unwind failed: %v)", agreement.ErrLedgerTransferFailed, err, undoErr)
		}
		if undoErr := se.ledger.Transfer(s.Maker, s.MakerAsset, s.MakerAmount); undoErr != nil {
			logger.WithField("id", id).Errorf("failed to return maker leg from custody: err=%v", undoErr)
			return fmt.Errorf("%w: release: %v (unwind failed: %v)", agreement.ErrLedgerTransferFailed, err, undoErr)
		}
		return fmt.Errorf("%w: release: %v", agreement.ErrLedgerTransferFailed, err)
	}

	proof := settlementProof(s)
	flipped, err := se.statedb.MarkSettlementCompleted(id, proof)
	if err != nil {
		return err
	}
	if !flipped {
		// Unreachable while opLock serializes transitions.
		return agreement.ErrInvalidState
	}

	logger.WithFields(logger.Fields{
		"id":    id,
		"proof": common.Shorten(proof.String(), 6),
	}).Info("settlement completed")

	se.events.publishSettlementCompleted(&agreement.SettlementCompletedEvent{
		Id:      id,
		TradeId: s.TradeId,
		Proof:   proof,
	})

	return nil
}

// RefundSettlement closes out a pending settlement strictly past its
// expiry. No funds move: nothing was escrowed at creation, so this is a
// bookkeeping close-out for audit, not a repayment.
func (se *SettlementEngine) RefundSettlement(id int64) error {
	se.opLock.Lock()
	defer se.opLock.Unlock()

	snap := se.registry.Snapshot()
	if snap.Paused {
		return agreement.ErrSystemPaused
	}

	s, ok, err := se.statedb.GetSettlement(id)
	if err != nil {
		return err
	}
	if !ok {
		return agreement.ErrUnknownSettlement
	}
	if !s.IsPending() {
		return agreement.ErrCannotRefund
	}
	if se.now() <= s.Expiry(int64(snap.SettlementTimeout.Seconds())) {
		return agreement.ErrCannotRefund
	}

	flipped, err := se.statedb.MarkSettlementRefunded(id)
	if err != nil {
		return err
	}
	if !flipped {
		return agreement.ErrCannotRefund
	}

	logger.WithField("id", id).Info("settlement refunded")

	se.events.publishSettlementRefunded(&agreement.SettlementRefundedEvent{
		Id:      id,
		TradeId: s.TradeId,
	})

	return nil
}

// GetSettlement is the read-only accessor of the query surface.
func (se *SettlementEngine) GetSettlement(id int64) (*state.Settlement, bool, error) {
	return se.statedb.GetSettlement(id)
}

func (se *SettlementEngine) GetStats() (*state.SettlementStats, error) {
	return se.statedb.GetSettlementStats()
}

// settlementProof derives the opaque completion reference external
// observers use to correlate the completion with the underlying swap.
func settlementProof(s *state.Settlement) ethcommon.Hash {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(s.Id))

	return crypto.Keccak256Hash(
		idBytes[:],
		s.TradeId.Bytes(),
		s.Maker.Bytes(),
		s.Taker.Bytes(),
		s.MakerAsset.Bytes(),
		s.TakerAsset.Bytes(),
		s.MakerAmount.Bytes(),
		s.TakerAmount.Bytes(),
	)
}
