// Configuration & authorization registry shared by the settlement and
// transfer engines. All mutators are gated on the operator identity and
// take effect immediately for subsequent calls.

package registry

import (
	"errors"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/settlenet-io/settle-go/agreement"
)

var (
	ErrOperatorEmpty   = errors.New("operator address is empty")
	ErrTimeoutInvalid  = errors.New("timeout must be positive")
	ErrMatcherEmpty    = errors.New("matcher address is empty")
	ErrAssetEmpty      = errors.New("asset address is empty")
	ErrNewOwnerEmpty   = errors.New("new owner address is empty")
	ErrNewRelayerEmpty = errors.New("new relayer address is empty")
)

type Config struct {
	Operator           ethcommon.Address
	Relayer            ethcommon.Address
	SettlementTimeout  time.Duration
	TransferTimeout    time.Duration
	AuthorizedMatchers []ethcommon.Address
	SupportedAssets    []ethcommon.Address

	// Buffer size of the event channels. Zero picks a default.
	ChannelSize int
}

const defaultChannelSize = 16

type Registry struct {
	lock sync.RWMutex

	operator ethcommon.Address
	relayer  ethcommon.Address
	matchers map[ethcommon.Address]bool
	assets   map[ethcommon.Address]bool

	settlementTimeout time.Duration
	transferTimeout   time.Duration
	paused            bool

	matcherEvCh chan *agreement.MatcherAuthorizationChangedEvent
	assetEvCh   chan *agreement.AssetSupportChangedEvent
}

func New(cfg *Config) (*Registry, error) {
	if cfg.Operator == (ethcommon.Address{}) {
		return nil, ErrOperatorEmpty
	}
	if cfg.SettlementTimeout <= 0 || cfg.TransferTimeout <= 0 {
		return nil, ErrTimeoutInvalid
	}

	chSize := cfg.ChannelSize
	if chSize <= 0 {
		chSize = defaultChannelSize
	}

	r := &Registry{
		operator:          cfg.Operator,
		relayer:           cfg.Relayer,
		matchers:          make(map[ethcommon.Address]bool),
		assets:            make(map[ethcommon.Address]bool),
		settlementTimeout: cfg.SettlementTimeout,
		transferTimeout:   cfg.TransferTimeout,
		matcherEvCh:       make(chan *agreement.MatcherAuthorizationChangedEvent, chSize),
		assetEvCh:         make(chan *agreement.AssetSupportChangedEvent, chSize),
	}

	for _, m := range cfg.AuthorizedMatchers {
		r.matchers[m] = true
	}
	for _, a := range cfg.SupportedAssets {
		r.assets[a] = true
	}

	return r, nil
}

// Snapshot is an immutable view of the registry, taken once at the start
// of a multi-step operation so every check sees the same configuration.
type Snapshot struct {
	Operator          ethcommon.Address
	Relayer           ethcommon.Address
	Matchers          map[ethcommon.Address]bool
	Assets            map[ethcommon.Address]bool
	SettlementTimeout time.Duration
	TransferTimeout   time.Duration
	Paused            bool
}

func (s *Snapshot) IsAuthorizedMatcher(id ethcommon.Address) bool {
	return s.Matchers[id]
}

func (s *Snapshot) IsSupportedAsset(id ethcommon.Address) bool {
	return s.Assets[id]
}

func (r *Registry) Snapshot() *Snapshot {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matchers := make(map[ethcommon.Address]bool, len(r.matchers))
	for m := range r.matchers {
		matchers[m] = true
	}
	assets := make(map[ethcommon.Address]bool, len(r.assets))
	for a := range r.assets {
		assets[a] = true
	}

	return &Snapshot{
		Operator:          r.operator,
		Relayer:           r.relayer,
		Matchers:          matchers,
		Assets:            assets,
		SettlementTimeout: r.settlementTimeout,
		TransferTimeout:   r.transferTimeout,
		Paused:            r.paused,
	}
}

func (r *Registry) IsAuthorizedMatcher(id ethcommon.Address) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.matchers[id]
}

func (r *Registry) IsSupportedAsset(id ethcommon.Address) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.assets[id]
}

func (r *Registry) CurrentTimeout() time.Duration {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.settlementTimeout
}

func (r *Registry) CurrentTransferTimeout() time.Duration {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.transferTimeout
}

func (r *Registry) IsPaused() bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.paused
}

func (r *Registry) Operator() ethcommon.Address {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.operator
}

func (r *Registry) Relayer() ethcommon.Address {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.relayer
}

// Event channels for audit consumers. Sends are non-blocking: a slow
// consumer drops events, it never wedges configuration changes.
func (r *Registry) GetMatcherAuthorizationChangedEventChannel() <-chan *agreement.MatcherAuthorizationChangedEvent {
	return r.matcherEvCh
}

func (r *Registry) GetAssetSupportChangedEventChannel() <-chan *agreement.AssetSupportChangedEvent {
	return r.assetEvCh
}

func (r *Registry) requireOperator(caller ethcommon.Address) error {
	if caller != r.operator {
		return agreement.ErrUnauthorized
	}
	return nil
}

func (r *Registry) SetMatcherAuthorization(caller, matcher ethcommon.Address, authorized bool) error {
	if matcher == (ethcommon.Address{}) {
		return ErrMatcherEmpty
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	if authorized {
		r.matchers[matcher] = true
	} else {
		delete(r.matchers, matcher)
	}
	logger.WithFields(logger.Fields{
		"matcher":    matcher.Hex(),
		"authorized": authorized,
	}).Info("matcher authorization changed")

	select {
	case r.matcherEvCh <- &agreement.MatcherAuthorizationChangedEvent{Matcher: matcher, Authorized: authorized}:
	default:
	}

	return nil
}

func (r *Registry) SetAssetSupport(caller, asset ethcommon.Address, supported bool) error {
	if asset == (ethcommon.Address{}) {
		return ErrAssetEmpty
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	if supported {
		r.assets[asset] = true
	} else {
		delete(r.assets, asset)
	}
	logger.WithFields(logger.Fields{
		"asset":     asset.Hex(),
		"supported": supported,
	}).Info("asset support changed")

	select {
	case r.assetEvCh <- &agreement.AssetSupportChangedEvent{Asset: asset, Supported: supported}:
	default:
	}

	return nil
}

func (r *Registry) SetSettlementTimeout(caller ethcommon.Address, d time.Duration) error {
	if d <= 0 {
		return ErrTimeoutInvalid
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	r.settlementTimeout = d
	logger.WithField("timeout", d).Info("settlement timeout changed")
	return nil
}

func (r *Registry) SetTransferTimeout(caller ethcommon.Address, d time.Duration) error {
	if d <= 0 {
		return ErrTimeoutInvalid
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	r.transferTimeout = d
	logger.WithField("timeout", d).Info("transfer timeout changed")
	return nil
}

func (r *Registry) SetPaused(caller ethcommon.Address, paused bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	r.paused = paused
	if paused {
		logger.Warn("system paused, all fund-moving operations disabled")
	} else {
		logger.Info("system unpaused")
	}
	return nil
}

// RotateOperator hands the operator role to a new identity. There is no
// intermediate state: the new operator is active for the very next call.
func (r *Registry) RotateOperator(caller, newOperator ethcommon.Address) error {
	if newOperator == (ethcommon.Address{}) {
		return ErrNewOwnerEmpty
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"old": r.operator.Hex(),
		"new": newOperator.Hex(),
	}).Warn("operator rotated")
	r.operator = newOperator
	return nil
}

func (r *Registry) RotateRelayer(caller, newRelayer ethcommon.Address) error {
	if newRelayer == (ethcommon.Address{}) {
		return ErrNewRelayerEmpty
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.requireOperator(caller); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"old": r.relayer.Hex(),
		"new": newRelayer.Hex(),
	}).Warn("relayer rotated")
	r.relayer = newRelayer
	return nil
}
