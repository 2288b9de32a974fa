// Server = registry + statedb + engines + refund keeper + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/settlenet-io/settle-go/common"
	"github.com/settlenet-io/settle-go/engine"
	"github.com/settlenet-io/settle-go/ledger"
	"github.com/settlenet-io/settle-go/registry"
	"github.com/settlenet-io/settle-go/reporter"
	"github.com/settlenet-io/settle-go/state"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	// refund keeper config
	frequencyToSweepExpiredTransfers = 30 * time.Second

	// event channel config
	CHANNEL_BUFFER_SIZE = 16
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type EngineServerConfig struct {
	// state side
	DbFilePath string // db file path

	// identities (hex addresses)
	OperatorAddr string // privileged operator
	RelayerAddr  string // trusted relayer, accepted by the attestor
	CustodyAddr  string // engine's own account on the token ledger

	// registry side
	SettlementTimeoutSec int64    // seconds until a pending settlement expires
	TransferTimeoutSec   int64    // seconds until a pending transfer becomes refundable
	AuthorizedMatchers   []string // hex addresses on the matcher allow-list
	SupportedAssets      []string // hex addresses on the asset allow-list

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// EngineServer holds the objects that consists of the settlement server.
type EngineServer struct {
	MyRegistry *registry.Registry
	MyStateDb  *state.StateDB
	MyLedger   *ledger.Simulated
	MyEvents   *engine.Events

	MySettlementEngine *engine.SettlementEngine
	MyTransferEngine   *engine.TransferEngine

	MyReporter *reporter.HttpReporter
}

// NewEngineServer creates a new settlement engine server.
// ctx is used for parental context to cancel the operation of the server.
// wg is used to wait for the goroutines inside (keeper, reporter) to finish.
func NewEngineServer(esc *EngineServerConfig, ctx context.Context, wg *sync.WaitGroup) (*EngineServer, error) {
	// 0) Validate the identity addresses.
	for _, addr := range append([]string{esc.OperatorAddr, esc.RelayerAddr, esc.CustodyAddr},
		append(esc.AuthorizedMatchers, esc.SupportedAssets...)...) {
		if !common.EnsureSafeAddressHexString(addr) {
			return nil, fmt.Errorf("invalid hex address in config: %s", addr)
		}
	}

	// 1) Create the configuration & authorization registry.
	matchers := make([]ethcommon.Address, 0, len(esc.AuthorizedMatchers))
	for _, m := range esc.AuthorizedMatchers {
		matchers = append(matchers, ethcommon.HexToAddress(m))
	}
	assets := make([]ethcommon.Address, 0, len(esc.SupportedAssets))
	for _, a := range esc.SupportedAssets {
		assets = append(assets, ethcommon.HexToAddress(a))
	}

	myRegistry, err := registry.New(&registry.Config{
		Operator:           ethcommon.HexToAddress(esc.OperatorAddr),
		Relayer:            ethcommon.HexToAddress(esc.RelayerAddr),
		SettlementTimeout:  time.Duration(esc.SettlementTimeoutSec) * time.Second,
		TransferTimeout:    time.Duration(esc.TransferTimeoutSec) * time.Second,
		AuthorizedMatchers: matchers,
		SupportedAssets:    assets,
		ChannelSize:        CHANNEL_BUFFER_SIZE,
	})
	if err != nil {
		logger.Fatalf("cannot create registry %v", err)
		return nil, err
	}

	// 2) Open the state database.
	sqlDB, err := sql.Open("sqlite3", esc.DbFilePath)
	if err != nil {
		logger.Fatalf("cannot open state db at %s: %v", esc.DbFilePath, err)
		return nil, err
	}
	myStateDb, err := state.NewStateDB(sqlDB)
	if err != nil {
		logger.Fatalf("cannot create state db %v", err)
		return nil, err
	}

	// 3) Create the token ledger collaborator.
	// The simulated ledger is the dev/demo stand-in; a deployment against
	// a real token ledger plugs its client in here instead.
	custody := ethcommon.HexToAddress(esc.CustodyAddr)
	myLedger := ledger.NewSimulated(custody)

	// 4) Events + engines.
	myEvents := engine.NewEvents(CHANNEL_BUFFER_SIZE)
	engineCfg := &engine.Config{
		ChannelSize:   CHANNEL_BUFFER_SIZE,
		SweepInterval: frequencyToSweepExpiredTransfers,
	}

	mySettlementEngine := engine.NewSettlementEngine(myStateDb, myRegistry, myLedger, custody, myEvents, engineCfg)
	myTransferEngine := engine.NewTransferEngine(
		myStateDb,
		myRegistry,
		myLedger,
		engine.NewRelayerAttestor(myRegistry),
		custody,
		myEvents,
		engineCfg,
	)

	// 5) The read-only http reporter.
	myReporter := reporter.NewHttpReporter(esc.HttpIp, esc.HttpPort, myStateDb)

	// 6) Start the refund keeper.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := myTransferEngine.Loop(ctx); err != nil && err != context.Canceled {
			logger.Errorf("refund keeper stopped: err=%v", err)
		}
	}()

	// 7) Start the reporter (it blocks inside gin).
	wg.Add(1)
	go func() {
		defer wg.Done()
		myReporter.Run()
	}()

	logger.WithFields(logger.Fields{
		"operator": esc.OperatorAddr,
		"relayer":  esc.RelayerAddr,
		"http":     esc.HttpIp + ":" + esc.HttpPort,
	}).Info("settlement engine server started")

	return &EngineServer{
		MyRegistry:         myRegistry,
		MyStateDb:          myStateDb,
		MyLedger:           myLedger,
		MyEvents:           myEvents,
		MySettlementEngine: mySettlementEngine,
		MyTransferEngine:   myTransferEngine,
		MyReporter:         myReporter,
	}, nil
}

// Create, then start the engine server and wait.
// Press Ctrl-C to kill the server.
func StartEngineServerAndWait(esc *EngineServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewEngineServer(esc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create engine server: %v", err)
		return
	}

	// wait for all routines to finish (which is forever)
	wg.Wait()
}
