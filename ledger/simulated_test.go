package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/settlenet-io/settle-go/common"
)

func TestTransferFromRequiresApproval(t *testing.T) {
	custodian := common.RandEthAddress()
	owner := common.RandEthAddress()
	recipient := common.RandEthAddress()
	asset := common.RandEthAddress()

	l := NewSimulated(custodian)
	l.Mint(owner, asset, big.NewInt(100))

	err := l.TransferFrom(owner, recipient, asset, big.NewInt(40))
	assert.ErrorIs(t, err, ErrNotApproved)

	l.Approve(owner, true)
	assert.NoError(t, l.TransferFrom(owner, recipient, asset, big.NewInt(40)))

	b, err := l.BalanceOf(owner, asset)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(60), b)
	b, err = l.BalanceOf(recipient, asset)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(40), b)
}

func TestTransferFromChecksBalance(t *testing.T) {
	l := NewSimulated(common.RandEthAddress())
	owner := common.RandEthAddress()
	asset := common.RandEthAddress()

	l.Approve(owner, true)
	err := l.TransferFrom(owner, common.RandEthAddress(), asset, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	err = l.TransferFrom(owner, common.RandEthAddress(), asset, big.NewInt(0))
	assert.ErrorIs(t, err, ErrBadAmount)
}

func TestTransferSpendsCustody(t *testing.T) {
	custodian := common.RandEthAddress()
	recipient := common.RandEthAddress()
	asset := common.RandEthAddress()

	l := NewSimulated(custodian)
	err := l.Transfer(recipient, asset, big.NewInt(5))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	l.Mint(custodian, asset, big.NewInt(5))
	assert.NoError(t, l.Transfer(recipient, asset, big.NewInt(5)))

	b, err := l.BalanceOf(custodian, asset)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(0), b)
	b, err = l.BalanceOf(recipient, asset)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(5), b)
}

func TestBalanceOfClones(t *testing.T) {
	l := NewSimulated(common.RandEthAddress())
	owner := common.RandEthAddress()
	asset := common.RandEthAddress()
	l.Mint(owner, asset, big.NewInt(7))

	b, err := l.BalanceOf(owner, asset)
	assert.NoError(t, err)
	b.SetInt64(9999)

	again, err := l.BalanceOf(owner, asset)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(7), again)
}
