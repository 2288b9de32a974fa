// Simulated token ledger collaborator. It mirrors the pre-authorization
// semantics the engine expects from the real ledger: an owner must approve
// the custodian before the custodian may debit it. Used in tests and by
// the demo server.

package ledger

import (
	"errors"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/settlenet-io/settle-go/common"
)

var (
	ErrNotApproved         = errors.New("owner has not approved the custodian")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBadAmount           = errors.New("amount must be strictly positive")
)

type Simulated struct {
	lock sync.Mutex

	// the engine account whose custody balance Transfer() spends
	custodian ethcommon.Address

	balances  map[ethcommon.Address]map[ethcommon.Address]*big.Int // owner -> asset -> balance
	approvals map[ethcommon.Address]bool                           // owner -> custodian may debit
}

func NewSimulated(custodian ethcommon.Address) *Simulated {
	return &Simulated{
		custodian: custodian,
		balances:  make(map[ethcommon.Address]map[ethcommon.Address]*big.Int),
		approvals: make(map[ethcommon.Address]bool),
	}
}

func (l *Simulated) Custodian() ethcommon.Address {
	return l.custodian
}

// Mint credits an owner out of thin air. Test/demo setup only.
func (l *Simulated) Mint(owner, asset ethcommon.Address, amount *big.Int) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.credit(owner, asset, amount)
}

// Approve grants (or revokes) the custodian's right to debit the owner.
func (l *Simulated) Approve(owner ethcommon.Address, approved bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.approvals[owner] = approved
}

func (l *Simulated) TransferFrom(owner, recipient ethcommon.Address, asset ethcommon.Address, amount *big.Int) error {
	if !common.IsPositive(amount) {
		return ErrBadAmount
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.approvals[owner] {
		return ErrNotApproved
	}
	if l.balance(owner, asset).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	l.debit(owner, asset, amount)
	l.credit(recipient, asset, amount)
	return nil
}

func (l *Simulated) Transfer(recipient ethcommon.Address, asset ethcommon.Address, amount *big.Int) error {
	if !common.IsPositive(amount) {
		return ErrBadAmount
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.balance(l.custodian, asset).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	l.debit(l.custodian, asset, amount)
	l.credit(recipient, asset, amount)
	return nil
}

func (l *Simulated) BalanceOf(owner ethcommon.Address, asset ethcommon.Address) (*big.Int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return common.BigIntClone(l.balance(owner, asset)), nil
}

// callers hold l.lock

func (l *Simulated) balance(owner, asset ethcommon.Address) *big.Int {
	assets, ok := l.balances[owner]
	if !ok {
		return big.NewInt(0)
	}
	b, ok := assets[asset]
	if !ok {
		return big.NewInt(0)
	}
	return b
}

func (l *Simulated) credit(owner, asset ethcommon.Address, amount *big.Int) {
	assets, ok := l.balances[owner]
	if !ok {
		assets = make(map[ethcommon.Address]*big.Int)
		l.balances[owner] = assets
	}
	b, ok := assets[asset]
	if !ok {
		b = big.NewInt(0)
		assets[asset] = b
	}
	b.Add(b, amount)
}

func (l *Simulated) debit(owner, asset ethcommon.Address, amount *big.Int) {
	l.balances[owner][asset].Sub(l.balances[owner][asset], amount)
}
