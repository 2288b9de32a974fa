package agreement

import "errors"

// Shared failure taxonomy. Every state-changing entry point of the engine
// returns one of these (possibly wrapped), so callers can tell a permanent
// resolution apart from a temporal precondition that may clear later.
var (
	// Caller lacks the role required for the operation (matcher allow-list,
	// operator, relayer).
	ErrUnauthorized = errors.New("caller is not authorized")

	// Asset is not on the supported-asset allow-list.
	ErrAssetNotSupported = errors.New("asset is not supported")

	// Amount is nil, zero or negative.
	ErrAmountInvalid = errors.New("amount must be strictly positive")

	// Record fields fail shape validation (zero trade id, maker == taker,
	// empty destination chain). Wraps the specific state error.
	ErrRecordInvalid = errors.New("record fields are invalid")

	// Record is not in the status the operation requires. Permanent: the
	// record has already been resolved, do not retry.
	ErrInvalidState = errors.New("record is not in the required status")

	// No record exists under the given id. Permanent.
	ErrUnknownSettlement = errors.New("settlement not found")
	ErrUnknownTransfer   = errors.New("transfer not found")

	// Settlement execution was attempted after the expiry deadline.
	ErrExpired = errors.New("settlement has expired")

	// Refund was attempted before expiry or against a resolved record.
	ErrCannotRefund = errors.New("record is not refundable")

	// The global pause flag is set. Clears when the operator unpauses.
	ErrSystemPaused = errors.New("system is paused")

	// The token ledger collaborator reported failure. Propagated, never
	// retried by the engine.
	ErrLedgerTransferFailed = errors.New("token ledger transfer failed")

	// Completion arguments do not match the asset/amount recorded at
	// initiation.
	ErrTransferMismatch = errors.New("completion does not match transfer record")
)
