package engine

import (
	"math/big"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/settlenet-io/settle-go/agreement"
	"github.com/settlenet-io/settle-go/common"
	"github.com/settlenet-io/settle-go/state"
)

// initiateTransfer escrows the canonical 10 A from the maker toward
// chain "x".
func (env *testEnv) initiateTransfer(t *testing.T) int64 {
	env.ledger.Mint(env.maker, env.assetA, big.NewInt(10))
	env.ledger.Approve(env.maker, true)

	id, err := env.te.InitiateTransfer(env.maker, env.assetA, big.NewInt(10), "x", "addr-on-x")
	assert.NoError(t, err)
	return id
}

func (env *testEnv) relayerAttestation(id int64, recipient ethcommon.Address) *agreement.TransferAttestation {
	return &agreement.TransferAttestation{
		TransferId: id,
		Recipient:  recipient,
		Asset:      env.assetA,
		Amount:     big.NewInt(10),
		Attestor:   env.relayer,
	}
}

func TestInitiateTransferEscrowsExactly(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	id := env.initiateTransfer(t)

	assert.Equal(t, big.NewInt(0), env.balance(t, env.maker, env.assetA))
	assert.Equal(t, big.NewInt(10), env.balance(t, env.custody, env.assetA))

	tr, ok, err := env.te.GetTransfer(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, env.maker, tr.Sender)
	assert.Equal(t, big.NewInt(10), tr.Amount)
	assert.Equal(t, "x", tr.DestChain)
	assert.False(t, tr.Completed())

	ev := <-env.events.GetTransferInitiatedEventChannel()
	assert.Equal(t, id, ev.Id)
	assert.Equal(t, env.maker, ev.Sender)
	assert.Equal(t, "x", ev.DestChain)
	assert.Equal(t, "addr-on-x", ev.DestAddress)
}

func TestInitiateTransferValidation(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	_, err := env.te.InitiateTransfer(env.maker, common.RandEthAddress(), big.NewInt(10), "x", "a")
	assert.ErrorIs(t, err, agreement.ErrAssetNotSupported)

	_, err = env.te.InitiateTransfer(env.maker, env.assetA, big.NewInt(0), "x", "a")
	assert.ErrorIs(t, err, agreement.ErrAmountInvalid)

	_, err = env.te.InitiateTransfer(env.maker, env.assetA, big.NewInt(10), "", "a")
	assert.ErrorIs(t, err, agreement.ErrRecordInvalid)
	assert.ErrorIs(t, err, state.ErrorDestChainInvalid)
}

func TestInitiateTransferWithoutAuthorization(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	// funded but no pre-authorization to debit
	env.ledger.Mint(env.maker, env.assetA, big.NewInt(10))

	_, err := env.te.InitiateTransfer(env.maker, env.assetA, big.NewInt(10), "x", "a")
	assert.ErrorIs(t, err, agreement.ErrLedgerTransferFailed)

	// nothing was escrowed and no record exists
	assert.Equal(t, big.NewInt(10), env.balance(t, env.maker, env.assetA))
	stats, err := env.te.GetStats()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
}

func TestCompleteTransferReleasesEscrow(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	recipient := common.RandEthAddress()
	id := env.initiateTransfer(t)

	assert.NoError(t, env.te.CompleteTransfer(env.relayerAttestation(id, recipient)))

	assert.Equal(t, big.NewInt(10), env.balance(t, recipient, env.assetA))
	assert.Equal(t, big.NewInt(0), env.balance(t, env.custody, env.assetA))

	tr, _, err := env.te.GetTransfer(id)
	assert.NoError(t, err)
	assert.True(t, tr.Completed())

	ev := <-env.events.GetTransferCompletedEventChannel()
	assert.Equal(t, id, ev.Id)
	assert.Equal(t, recipient, ev.Recipient)

	// the completed flag flips exactly once
	err = env.te.CompleteTransfer(env.relayerAttestation(id, recipient))
	assert.ErrorIs(t, err, agreement.ErrInvalidState)
}

func TestCompleteTransferRejectsUnknownAttestor(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	id := env.initiateTransfer(t)

	att := env.relayerAttestation(id, common.RandEthAddress())
	att.Attestor = common.RandEthAddress()
	assert.ErrorIs(t, env.te.CompleteTransfer(att), agreement.ErrUnauthorized)

	// escrow untouched
	assert.Equal(t, big.NewInt(10), env.balance(t, env.custody, env.assetA))
}

func TestCompleteTransferCrossChecksRecord(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	id := env.initiateTransfer(t)

	// wrong amount
	att := env.relayerAttestation(id, common.RandEthAddress())
	att.Amount = big.NewInt(9999)
	assert.ErrorIs(t, env.te.CompleteTransfer(att), agreement.ErrTransferMismatch)

	// wrong asset
	att = env.relayerAttestation(id, common.RandEthAddress())
	att.Asset = env.assetB
	assert.ErrorIs(t, env.te.CompleteTransfer(att), agreement.ErrTransferMismatch)

	// unknown id
	att = env.relayerAttestation(id+50, common.RandEthAddress())
	assert.ErrorIs(t, env.te.CompleteTransfer(att), agreement.ErrUnknownTransfer)

	assert.Equal(t, big.NewInt(10), env.balance(t, env.custody, env.assetA))
}

func TestRefundTransferAfterTimeout(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	id := env.initiateTransfer(t)

	// not yet expired (timeout = 7200s)
	env.clock.Advance(7200 * time.Second)
	assert.ErrorIs(t, env.te.RefundTransfer(id), agreement.ErrCannotRefund)

	env.clock.Advance(1 * time.Second)
	assert.NoError(t, env.te.RefundTransfer(id))

	// escrow back with the sender
	assert.Equal(t, big.NewInt(10), env.balance(t, env.maker, env.assetA))
	assert.Equal(t, big.NewInt(0), env.balance(t, env.custody, env.assetA))

	tr, _, err := env.te.GetTransfer(id)
	assert.NoError(t, err)
	assert.Equal(t, state.TransferStatusRefunded, tr.Status)

	ev := <-env.events.GetTransferRefundedEventChannel()
	assert.Equal(t, id, ev.Id)

	// second refund fails, and so does late completion
	assert.ErrorIs(t, env.te.RefundTransfer(id), agreement.ErrCannotRefund)
	err = env.te.CompleteTransfer(env.relayerAttestation(id, common.RandEthAddress()))
	assert.ErrorIs(t, err, agreement.ErrInvalidState)
}

func TestRefundKeeperSweepsExpired(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	stale := env.initiateTransfer(t)

	env.clock.Advance(7000 * time.Second)
	fresh := env.initiateTransfer(t)

	env.clock.Advance(201 * time.Second)
	assert.NoError(t, env.te.sweepExpired())

	tr, _, err := env.te.GetTransfer(stale)
	assert.NoError(t, err)
	assert.Equal(t, state.TransferStatusRefunded, tr.Status)

	tr, _, err = env.te.GetTransfer(fresh)
	assert.NoError(t, err)
	assert.Equal(t, state.TransferStatusPending, tr.Status)

	// the sweep time is persisted for operators
	ts, ok, err := env.statedb.GetLastRefundSweep()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, env.clock.Now().Unix(), ts)
}

func TestTransferOperationsWhilePaused(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	id := env.initiateTransfer(t)
	env.clock.Advance(8000 * time.Second)

	assert.NoError(t, env.reg.SetPaused(env.operator, true))

	_, err := env.te.InitiateTransfer(env.maker, env.assetA, big.NewInt(1), "x", "a")
	assert.ErrorIs(t, err, agreement.ErrSystemPaused)
	err = env.te.CompleteTransfer(env.relayerAttestation(id, common.RandEthAddress()))
	assert.ErrorIs(t, err, agreement.ErrSystemPaused)
	assert.ErrorIs(t, env.te.RefundTransfer(id), agreement.ErrSystemPaused)

	// escrow untouched
	assert.Equal(t, big.NewInt(10), env.balance(t, env.custody, env.assetA))
}

func TestEmergencyWithdraw(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	env.initiateTransfer(t)

	err := env.te.EmergencyWithdraw(common.RandEthAddress(), env.assetA, big.NewInt(10))
	assert.ErrorIs(t, err, agreement.ErrUnauthorized)

	assert.NoError(t, env.te.EmergencyWithdraw(env.operator, env.assetA, big.NewInt(10)))
	assert.Equal(t, big.NewInt(10), env.balance(t, env.operator, env.assetA))
	assert.Equal(t, big.NewInt(0), env.balance(t, env.custody, env.assetA))
}

func TestRotatedRelayerCanAttest(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	id := env.initiateTransfer(t)

	newRelayer := common.RandEthAddress()
	assert.NoError(t, env.reg.RotateRelayer(env.operator, newRelayer))

	// old relayer is rejected
	att := env.relayerAttestation(id, common.RandEthAddress())
	assert.ErrorIs(t, env.te.CompleteTransfer(att), agreement.ErrUnauthorized)

	// new relayer is active immediately
	att = env.relayerAttestation(id, common.RandEthAddress())
	att.Attestor = newRelayer
	assert.NoError(t, env.te.CompleteTransfer(att))
}
