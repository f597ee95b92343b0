// Package sweeper drives the time-based transitions of the ledger: it
// periodically settles expired subscriptions and expires reports that
// outlived the challenge window. Both operations are idempotent, so a pass
// may run at any time and any number of times.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

// DefaultInterval is the time between two passes.
const DefaultInterval = 30 * time.Second

// Config configures a Sweeper.
type Config struct {
	// Interval between passes
	Interval time.Duration
	// Caller is the account the sweep calls are issued as
	Caller common.Address
	// Settle and Expire select the operations a pass runs
	Settle bool
	Expire bool
}

// DefaultConfig runs both operations every DefaultInterval.
func DefaultConfig(caller common.Address) Config {
	return Config{Interval: DefaultInterval, Caller: caller, Settle: true, Expire: true}
}

// Result is the outcome of one pass. A report is nil when its operation was
// disabled or rejected.
type Result struct {
	Settlement *ledger.SettlementReport
	Expiry     *ledger.ExpiryReport
	Head       evmcore.Header
}

// Sweeper runs sweep passes against a ledger hosted by host.
type Sweeper struct {
	cfg    Config
	ledger *ledger.Ledger
	host   *evmcore.Host
	clock  func() time.Time
	log    logrus.FieldLogger
}

// New creates a sweeper. A nil clock uses the wall clock.
func New(cfg Config, l *ledger.Ledger, host *evmcore.Host, clock func() time.Time, log logrus.FieldLogger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{
		cfg:    cfg,
		ledger: l,
		host:   host,
		clock:  clock,
		log:    log.WithField("module", "sweeper"),
	}
}

// Sweep runs one pass. Each operation is its own host call, so a rejected
// settlement does not hold back the expiry sweep.
func (s *Sweeper) Sweep() (Result, error) {
	var (
		res  Result
		errs []error
	)
	s.host.Tick(inter.FromTime(s.clock()))

	if s.cfg.Settle {
		head, err := s.host.Transact(s.cfg.Caller, nil, func(ctx *evmcore.CallContext) error {
			var err error
			res.Settlement, err = s.ledger.SettleExpired(ctx)
			return err
		})
		if err != nil {
			res.Settlement = nil
			errs = append(errs, fmt.Errorf("settle: %w", err))
		}
		res.Head = head
	}

	if s.cfg.Expire {
		head, err := s.host.Transact(s.cfg.Caller, nil, func(ctx *evmcore.CallContext) error {
			var err error
			res.Expiry, err = s.ledger.ExpireUnchallenged(ctx)
			return err
		})
		if err != nil {
			res.Expiry = nil
			errs = append(errs, fmt.Errorf("expire: %w", err))
		}
		res.Head = head
	}

	s.report(res)
	return res, errors.Join(errs...)
}

// Run sweeps every interval until ctx is done. Failed passes are logged and
// retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.cfg.Interval).Info("Sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.log.WithError(err).Error("Sweep failed")
			}
		}
	}
}

func (s *Sweeper) report(res Result) {
	fields := logrus.Fields{"block": res.Head.Number}
	if rep := res.Settlement; rep != nil {
		fields["settled"] = len(rep.Settlements) - len(rep.Failed())
		fields["paid"] = rep.Paid().String()
		for _, f := range rep.Failed() {
			s.log.WithError(f.Err).WithField("relayer", f.Relayer.Hex()).Warn("Settlement held back")
		}
	}
	if rep := res.Expiry; rep != nil {
		fields["expired"] = len(rep.Expired)
		for _, e := range rep.Expired {
			if e.TransferErr != nil {
				s.log.WithError(e.TransferErr).WithField("report", e.ReportID).Warn("Penalty not paid to treasury")
			}
		}
	}
	s.log.WithFields(fields).Debug("Sweep done")
}
