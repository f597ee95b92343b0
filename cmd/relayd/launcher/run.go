package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/accord/genesis"
	"github.com/rony4d/go-relay-accord/api"
	"github.com/rony4d/go-relay-accord/eventlog"
	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
	"github.com/rony4d/go-relay-accord/sweeper"
	"github.com/rony4d/go-relay-accord/utils/ratelimit"
)

const (
	shutdownTimeout = 5 * time.Second
	indexTimeout    = 10 * time.Second
)

// Node is an assembled relayd instance: one database holding the ledger and
// the host state, the HTTP API and the background sweeper.
type Node struct {
	cfg Config
	log logrus.FieldLogger

	db      ethdb.Database
	ledger  *ledger.Ledger
	host    *evmcore.Host
	journal *eventlog.Memory
	index   *eventlog.Postgres

	handler *api.Handler
	sweeper *sweeper.Sweeper
}

// NewNode opens the database, applies genesis and wires every component.
// Ledger metrics are registered with reg.
func NewNode(cfg Config, log *logrus.Logger, reg prometheus.Registerer) (*Node, error) {
	g, err := cfg.Genesis()
	if err != nil {
		return nil, err
	}
	if err := ensureDir(cfg.Node.DataDir); err != nil {
		return nil, err
	}

	n := &Node{
		cfg: cfg,
		log: log.WithField("node", cfg.Node.Name),
	}

	// 1. storage
	n.db, err = rawdb.NewLevelDBDatabase(cfg.ChainDataDir(), cfg.Storage.CacheMB, cfg.Storage.Handles, "relayd/db/", false)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// 2. notification sinks
	n.journal = eventlog.NewMemory(cfg.HTTP.JournalSize)
	sinks := []ledger.Sink{
		n.journal,
		eventlog.NewLogger(n.log),
		eventlog.NewMetrics(reg),
	}
	var history eventlog.History = n.journal
	if cfg.Indexer.DBSource != "" {
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		if n.index, err = eventlog.NewPostgres(ctx, cfg.Indexer.DBSource, n.log); err != nil {
			n.Close()
			return nil, fmt.Errorf("event index: %w", err)
		}
		if err := n.index.EnsureSchema(ctx); err != nil {
			n.Close()
			return nil, fmt.Errorf("event index schema: %w", err)
		}
		sinks = append(sinks, n.index)
		history = n.index
	}

	// 3. host and ledger, sharing one database write per call
	n.host, err = evmcore.NewHost(n.db, accord.ContractAddress, n.log)
	if err != nil {
		n.Close()
		return nil, err
	}
	if err := n.host.Genesis(g.Balances, g.Time); err != nil {
		n.Close()
		return nil, fmt.Errorf("host genesis: %w", err)
	}
	n.ledger, err = ledger.New(n.host.LedgerDB(), g.Rules,
		ledger.WithSink(eventlog.NewMulti(sinks...)),
		ledger.WithLogger(n.log),
	)
	if err != nil {
		n.Close()
		return nil, err
	}
	if err := n.ledger.ApplyGenesis(g); err != nil {
		n.Close()
		return nil, fmt.Errorf("ledger genesis: %w", err)
	}

	// 4. API
	opts := []api.Option{api.WithHistory(history), api.WithLogger(n.log)}
	if limiter := ratelimit.New(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, ratelimit.DefaultIdleTTL); limiter != nil {
		opts = append(opts, api.WithLimiter(limiter))
	}
	n.handler = api.NewHandler(n.ledger, n.host, opts...)

	// 5. sweeper
	if cfg.Sweeper.Enabled {
		sc := sweeper.DefaultConfig(sweepCaller(cfg, g.Owner))
		sc.Interval = cfg.Sweeper.Interval
		n.sweeper = sweeper.New(sc, n.ledger, n.host, nil, n.log)
	}

	n.log.WithFields(logrus.Fields{
		"network": g.Rules.Name,
		"owner":   g.Owner.Hex(),
		"head":    n.host.Head().Number,
		"datadir": cfg.Node.DataDir,
	}).Info("Node initialized")
	return n, nil
}

// Genesis returns the genesis the node starts from: the configured file, or
// a fake genesis for fake networks.
func (c Config) Genesis() (genesis.Genesis, error) {
	if c.Network.Genesis != "" {
		return genesis.ReadFile(c.Network.Genesis)
	}
	if !c.Network.FakeNet {
		return genesis.Genesis{}, fmt.Errorf("network %q needs a genesis file", c.Network.Name)
	}
	balance, err := c.FakeBalance()
	if err != nil {
		return genesis.Genesis{}, err
	}
	return genesis.FakeGenesis(c.Network.FakeNetSize, balance), nil
}

// Ledger returns the node ledger.
func (n *Node) Ledger() *ledger.Ledger { return n.ledger }

// Host returns the node host.
func (n *Node) Host() *evmcore.Host { return n.host }

// Handler returns the HTTP API handler.
func (n *Node) Handler() http.Handler { return n.handler.Router() }

// Run serves the API and runs the sweeper until ctx is done or the server
// fails.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if n.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.sweeper.Run(ctx)
		}()
	}

	var serveErr error
	if n.cfg.HTTP.Enabled {
		serveErr = n.serve(ctx)
	} else {
		<-ctx.Done()
	}

	cancel()
	wg.Wait()
	return serveErr
}

func (n *Node) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(n.cfg.HTTP.Addr, strconv.Itoa(n.cfg.HTTP.Port)),
		Handler:           n.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		n.log.WithField("addr", srv.Addr).Info("HTTP API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	n.log.Info("HTTP API stopped")
	return nil
}

// Close releases the event index and the database.
func (n *Node) Close() {
	if n.index != nil {
		n.index.Close()
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.log.WithError(err).Warn("Failed to close database")
		}
	}
}

// sweepCaller is the account background sweeps are issued as.
func sweepCaller(cfg Config, owner common.Address) common.Address {
	if acc, err := inter.ParseAccount(cfg.Sweeper.Account); err == nil {
		return acc
	}
	return owner
}
