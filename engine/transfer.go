// TransferEngine drives the cross-chain transfer ledger. Unlike
// settlement creation, initiation escrows funds into the engine's custody
// account immediately; the escrow is released by a verified relayer
// completion, or returned to the sender once the transfer timeout passes.

package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/settlenet-io/settle-go/agreement"
	"github.com/settlenet-io/settle-go/common"
	"github.com/settlenet-io/settle-go/registry"
	"github.com/settlenet-io/settle-go/state"
)

type TransferEngine struct {
	statedb  *state.StateDB
	registry *registry.Registry
	ledger   agreement.TokenLedger
	verifier agreement.AttestationVerifier
	events   *Events

	// the engine's account on the token ledger, holder of all escrow
	custody ethcommon.Address

	now           func() int64 // unix seconds
	sweepInterval time.Duration

	opLock sync.Mutex
}

func NewTransferEngine(
	statedb *state.StateDB,
	reg *registry.Registry,
	ledger agreement.TokenLedger,
	verifier agreement.AttestationVerifier,
	custody ethcommon.Address,
	events *Events,
	cfg *Config,
) *TransferEngine {
	clock := cfg.clock()
	return &TransferEngine{
		statedb:       statedb,
		registry:      reg,
		ledger:        ledger,
		verifier:      verifier,
		events:        events,
		custody:       custody,
		now:           func() int64 { return clock().Unix() },
		sweepInterval: cfg.sweepInterval(),
	}
}

// InitiateTransfer escrows `amount` of `asset` from the sender into
// engine custody and records a pending transfer for the relayer to pick
// up. Destination chain/address are opaque to this engine.
func (te *TransferEngine) InitiateTransfer(
	sender ethcommon.Address,
	asset ethcommon.Address,
	amount *big.Int,
	destChain, destAddress string,
) (int64, error) {
	te.opLock.Lock()
	defer te.opLock.Unlock()

	snap := te.registry.Snapshot()
	if snap.Paused {
		return 0, agreement.ErrSystemPaused
	}
	if !snap.IsSupportedAsset(asset) {
		return 0, agreement.ErrAssetNotSupported
	}
	if !common.IsPositive(amount) {
		return 0, agreement.ErrAmountInvalid
	}
	if destChain == "" {
		return 0, fmt.Errorf("%w: %w", agreement.ErrRecordInvalid, state.ErrorDestChainInvalid)
	}

	// Escrow first: an unfunded record must never exist.
	if err := te.ledger.TransferFrom(sender, te.custody, asset, amount); err != nil {
		logger.WithField("sender", sender.Hex()).Errorf("escrow failed: err=%v", err)
		return 0, fmt.Errorf("%w: escrow: %v", agreement.ErrLedgerTransferFailed, err)
	}

	tr := &state.Transfer{
		Sender:      sender,
		Asset:       asset,
		Amount:      common.BigIntClone(amount),
		DestChain:   destChain,
		DestAddress: destAddress,
		Status:      state.TransferStatusPending,
		CreatedAt:   te.now(),
	}

	id, err := te.statedb.InsertTransfer(tr)
	if err != nil {
		// Undo the escrow so the sender is not left short with no record.
		if undoErr := te.ledger.Transfer(sender, asset, amount); undoErr != nil {
			logger.WithField("sender", sender.Hex()).Errorf("failed to return escrow: err=%v", undoErr)
		}
		return 0, err
	}

	logger.WithFields(logger.Fields{
		"id":        id,
		"sender":    sender.Hex(),
		"destChain": destChain,
	}).Info("cross-chain transfer initiated")

	te.events.publishTransferInitiated(&agreement.TransferInitiatedEvent{
		Id:          id,
		Sender:      sender,
		Asset:       asset,
		Amount:      common.BigIntClone(amount),
		DestChain:   destChain,
		DestAddress: destAddress,
	})

	return id, nil
}

// CompleteTransfer releases the escrow of a pending transfer to the
// recipient named in the attestation. The attestation must pass the
// configured verifier, and its asset/amount must match what was recorded
// at initiation: a compromised attestor cannot release an arbitrary
// amount under a transfer's id.
func (te *TransferEngine) CompleteTransfer(att *agreement.TransferAttestation) error {
	te.opLock.Lock()
	defer te.opLock.Unlock()

	snap := te.registry.Snapshot()
	if snap.Paused {
		return agreement.ErrSystemPaused
	}

	if err := te.verifier.Verify(att); err != nil {
		return err
	}

	tr, ok, err := te.statedb.GetTransfer(att.TransferId)
	if err != nil {
		return err
	}
	if !ok {
		return agreement.ErrUnknownTransfer
	}
	if !tr.IsPending() {
		return agreement.ErrInvalidState
	}

	if !snap.IsSupportedAsset(att.Asset) {
		return agreement.ErrAssetNotSupported
	}
	if att.Asset != tr.Asset || att.Amount == nil || att.Amount.Cmp(tr.Amount) != 0 {
		return agreement.ErrTransferMismatch
	}

	if err := te.ledger.Transfer(att.Recipient, tr.Asset, tr.Amount); err != nil {
		logger.WithField("id", tr.Id).Errorf("escrow release failed: err=%v", err)
		return fmt.Errorf("%w: release: %v", agreement.ErrLedgerTransferFailed, err)
	}

	flipped, err := te.statedb.MarkTransferCompleted(tr.Id)
	if err != nil {
		return err
	}
	if !flipped {
		// Unreachable while opLock serializes transitions.
		return agreement.ErrInvalidState
	}

	logger.WithFields(logger.Fields{
		"id":        tr.Id,
		"recipient": att.Recipient.Hex(),
	}).Info("cross-chain transfer completed")

	te.events.publishTransferCompleted(&agreement.TransferCompletedEvent{
		Id:        tr.Id,
		Recipient: att.Recipient,
		Asset:     tr.Asset,
		Amount:    common.BigIntClone(tr.Amount),
	})

	return nil
}

// RefundTransfer returns the escrow of a pending transfer to its sender
// once the transfer timeout has strictly passed. Anyone may call it.
func (te *TransferEngine) RefundTransfer(id int64) error {
	te.opLock.Lock()
	defer te.opLock.Unlock()
	return te.refundTransferLocked(id)
}

func (te *TransferEngine) refundTransferLocked(id int64) error {
	snap := te.registry.Snapshot()
	if snap.Paused {
		return agreement.ErrSystemPaused
	}

	tr, ok, err := te.statedb.GetTransfer(id)
	if err != nil {
		return err
	}
	if !ok {
		return agreement.ErrUnknownTransfer
	}
	if !tr.IsPending() {
		return agreement.ErrCannotRefund
	}
	if te.now() <= tr.Expiry(int64(snap.TransferTimeout.Seconds())) {
		return agreement.ErrCannotRefund
	}

	if err := te.ledger.Transfer(tr.Sender, tr.Asset, tr.Amount); err != nil {
		logger.WithField("id", id).Errorf("escrow refund failed: err=%v", err)
		return fmt.Errorf("%w: refund: %v", agreement.ErrLedgerTransferFailed, err)
	}

	flipped, err := te.statedb.MarkTransferRefunded(id)
	if err != nil {
		return err
	}
	if !flipped {
		return agreement.ErrCannotRefund
	}

	logger.WithFields(logger.Fields{
		"id":     id,
		"sender": tr.Sender.Hex(),
	}).Info("cross-chain transfer refunded")

	te.events.publishTransferRefunded(&agreement.TransferRefundedEvent{
		Id:     id,
		Sender: tr.Sender,
		Asset:  tr.Asset,
		Amount: common.BigIntClone(tr.Amount),
	})

	return nil
}

// EmergencyWithdraw moves engine-custodied funds to the operator. This is
// a deliberate trust concentration for incident response; every use is
// logged at warn level.
func (te *TransferEngine) EmergencyWithdraw(caller, asset ethcommon.Address, amount *big.Int) error {
	te.opLock.Lock()
	defer te.opLock.Unlock()

	operator := te.registry.Operator()
	if caller != operator {
		return agreement.ErrUnauthorized
	}
	if !common.IsPositive(amount) {
		return agreement.ErrAmountInvalid
	}

	if err := te.ledger.Transfer(operator, asset, amount); err != nil {
		return fmt.Errorf("%w: emergency withdraw: %v", agreement.ErrLedgerTransferFailed, err)
	}

	logger.WithFields(logger.Fields{
		"operator": operator.Hex(),
		"asset":    asset.Hex(),
		"amount":   amount,
	}).Warn("emergency withdraw executed")

	return nil
}

// GetTransfer is the read-only accessor of the query surface.
func (te *TransferEngine) GetTransfer(id int64) (*state.Transfer, bool, error) {
	return te.statedb.GetTransfer(id)
}

func (te *TransferEngine) GetStats() (*state.TransferStats, error) {
	return te.statedb.GetTransferStats()
}

// Loop is the refund keeper. Each tick it sweeps pending transfers whose
// timeout has passed and returns their escrow to the senders.
func (te *TransferEngine) Loop(ctx context.Context) error {
	logger.Debug("starting transfer refund keeper")
	defer logger.Debug("stopping transfer refund keeper")

	ticker := time.NewTicker(te.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := te.sweepExpired(); err != nil {
				logger.Errorf("refund sweep failed: err=%v", err)
			}
		}
	}
}

func (te *TransferEngine) sweepExpired() error {
	te.opLock.Lock()
	defer te.opLock.Unlock()

	snap := te.registry.Snapshot()
	if snap.Paused {
		return nil
	}

	expired, err := te.statedb.GetExpiredPendingTransfers(te.now(), int64(snap.TransferTimeout.Seconds()))
	if err != nil {
		return err
	}

	for _, tr := range expired {
		if err := te.refundTransferLocked(tr.Id); err != nil {
			logger.WithField("id", tr.Id).Errorf("keeper refund failed: err=%v", err)
		}
	}

	if err := te.statedb.SetLastRefundSweep(te.now()); err != nil {
		logger.Errorf("failed to record sweep time: err=%v", err)
	}

	return nil
}
