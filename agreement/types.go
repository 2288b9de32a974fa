// Global agreement on types shared between the engine and its collaborators.

package agreement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SettlementCreatedEvent is emitted when a matcher opens a settlement.
type SettlementCreatedEvent struct {
	Id          int64
	TradeId     common.Hash // opaque correlation id from the matcher
	Maker       common.Address
	Taker       common.Address
	MakerAsset  common.Address
	TakerAsset  common.Address
	MakerAmount *big.Int
	TakerAmount *big.Int
}

func (ev *SettlementCreatedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// SettlementCompletedEvent is emitted after both legs of the swap have
// been applied on the token ledger. Proof lets external observers
// correlate the completion with the underlying transfer.
type SettlementCompletedEvent struct {
	Id      int64
	TradeId common.Hash
	Proof   common.Hash
}

func (ev *SettlementCompletedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// SettlementRefundedEvent is emitted when a stale pending settlement is
// closed out after expiry. No funds moved.
type SettlementRefundedEvent struct {
	Id      int64
	TradeId common.Hash
}

func (ev *SettlementRefundedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// TransferInitiatedEvent is what the relayer watches. Destination
// coordinates are carried verbatim as the user supplied them.
type TransferInitiatedEvent struct {
	Id          int64
	Sender      common.Address
	Asset       common.Address
	Amount      *big.Int
	DestChain   string
	DestAddress string
}

func (ev *TransferInitiatedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

type TransferCompletedEvent struct {
	Id        int64
	Recipient common.Address
	Asset     common.Address
	Amount    *big.Int
}

func (ev *TransferCompletedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// TransferRefundedEvent is emitted when escrow of a stuck transfer is
// returned to its sender after the transfer timeout.
type TransferRefundedEvent struct {
	Id     int64
	Sender common.Address
	Asset  common.Address
	Amount *big.Int
}

func (ev *TransferRefundedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

type MatcherAuthorizationChangedEvent struct {
	Matcher    common.Address
	Authorized bool
}

type AssetSupportChangedEvent struct {
	Asset     common.Address
	Supported bool
}

// TransferAttestation is the claim a relayer presents when completing a
// cross-chain transfer on this side. Payload is whatever proof material
// the configured verifier understands; the engine never inspects it.
type TransferAttestation struct {
	TransferId int64
	Recipient  common.Address
	Asset      common.Address
	Amount     *big.Int
	Attestor   common.Address
	Payload    []byte
}

func (a *TransferAttestation) String() string {
	return fmt.Sprintf("%+v", *a)
}
