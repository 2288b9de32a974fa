package agreement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the external collaborator that actually moves balances.
// Both calls are atomic and synchronous from the engine's point of view:
// they either fully apply or return an error with nothing changed.
type TokenLedger interface {
	// TransferFrom debits `amount` of `asset` from `owner` and credits
	// `recipient`. The owner must have pre-authorized the engine to debit
	// it; the ledger reports an error otherwise (or on insufficient
	// balance).
	TransferFrom(owner, recipient common.Address, asset common.Address, amount *big.Int) error

	// Transfer spends the engine's own custody balance and credits
	// `recipient`.
	Transfer(recipient common.Address, asset common.Address, amount *big.Int) error

	// BalanceOf is a read-only probe, used by the admin surface and tests.
	BalanceOf(owner common.Address, asset common.Address) (*big.Int, error)
}

// AttestationVerifier decides whether a cross-chain completion claim is
// trustworthy. The engine hard-wires no trust model: swap in a
// cryptographic verifier (light client, threshold signature, ...) without
// touching ledger logic. The bundled RelayerAttestor in package engine
// accepts only the registry's current relayer identity and is NOT meant
// for production deployments.
type AttestationVerifier interface {
	Verify(att *TransferAttestation) error
}
