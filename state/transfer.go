package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/settlenet-io/settle-go/common"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"   // escrowed, waiting for the relayer
	TransferStatusCompleted TransferStatus = "completed" // released to the recipient
	TransferStatusRefunded  TransferStatus = "refunded"  // escrow returned to the sender after timeout
)

var (
	ErrorSenderInvalid    = errors.New("sender address invalid")
	ErrorDestChainInvalid = errors.New("destination chain invalid")
)

// Transfer is one entry of the append-only cross-chain transfer ledger.
// The escrowed amount stays in engine custody until the relayer confirms
// delivery on the destination ledger or the transfer times out.
type Transfer struct {
	Id          int64
	Sender      ethcommon.Address
	Asset       ethcommon.Address
	Amount      *big.Int
	DestChain   string // opaque destination ledger identifier
	DestAddress string // opaque destination address
	Status      TransferStatus
	CreatedAt   int64 // unix seconds
}

func (t *Transfer) Validate() error {
	if t.Sender == (ethcommon.Address{}) {
		return ErrorSenderInvalid
	}
	if t.Asset == (ethcommon.Address{}) {
		return ErrorAssetInvalid
	}
	if !common.IsPositive(t.Amount) {
		return ErrorAmountInvalid
	}
	if t.DestChain == "" {
		return ErrorDestChainInvalid
	}
	if t.CreatedAt <= 0 {
		return ErrorCreatedAtInvalid
	}
	switch t.Status {
	case TransferStatusPending, TransferStatusCompleted, TransferStatusRefunded:
	default:
		return ErrorStatusInvalid
	}
	return nil
}

// Completed preserves the original boolean view of the record.
func (t *Transfer) Completed() bool {
	return t.Status == TransferStatusCompleted
}

func (t *Transfer) IsPending() bool {
	return t.Status == TransferStatusPending
}

func (t *Transfer) Expiry(timeoutSeconds int64) int64 {
	return t.CreatedAt + timeoutSeconds
}

func (t *Transfer) Clone() *Transfer {
	clone := *t
	clone.Amount = common.BigIntClone(t.Amount)
	return &clone
}

func (t *Transfer) String() string {
	return fmt.Sprintf(
		"Transfer { Id: %d, Sender: %s, Asset: %s, Amount: %v, DestChain: %s, DestAddress: %s, Status: %s }",
		t.Id, t.Sender.Hex(), t.Asset.Hex(), t.Amount, t.DestChain, t.DestAddress, t.Status,
	)
}
