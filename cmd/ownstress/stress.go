package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	uberatomic "go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/ownrt/arc"
	"github.com/kolkov/ownrt/internal/diag"
	"github.com/kolkov/ownrt/refcell"
)

// scenario is one self-checking stress workload. It returns an error when
// a runtime invariant was observed broken.
type scenario func(workers, iters int) error

var scenarios = map[string]scenario{
	"churn":   runChurn,
	"upgrade": runUpgradeStorm,
	"counter": runLockedCounter,
	"refcell": runRefcellWorkload,
}

// scenarioOrder keeps runs reproducible; map iteration order is not.
var scenarioOrder = []string{"churn", "upgrade", "counter", "refcell"}

// runStress is the run command's action.
func runStress(ctx *cli.Context) error {
	p := DefaultProfile()
	if path := ctx.String("config"); path != "" {
		var err error
		if p, err = LoadProfile(path); err != nil {
			return err
		}
	}
	if w := ctx.Int("workers"); w > 0 {
		p.Workers = w
	}
	if i := ctx.Int("iters"); i > 0 {
		p.Iters = i
	}
	if addr := ctx.String("metrics"); addr != "" {
		p.MetricsAddress = addr
	}
	if err := p.Validate(); err != nil {
		return err
	}

	log := diag.L()
	if p.MetricsAddress != "" {
		srv := &http.Server{Addr: p.MetricsAddress, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", zap.String("address", p.MetricsAddress))
	}

	for _, name := range p.selected() {
		run := scenarios[name]
		start := time.Now()
		for round := 0; round < p.Rounds; round++ {
			if err := run(p.Workers, p.Iters); err != nil {
				return errors.Wrapf(err, "scenario %s round %d", name, round)
			}
		}
		log.Info("scenario passed",
			zap.String("scenario", name),
			zap.Int("rounds", p.Rounds),
			zap.Int("workers", p.Workers),
			zap.Int("iters", p.Iters),
			zap.Duration("took", time.Since(start)))
	}
	return nil
}

// runChurn has every worker repeatedly clone a shared arc handle, read
// through the clone and drop it. The original must end up as the sole
// survivor with the payload intact.
func runChurn(workers, iters int) error {
	h := arc.New("payload")

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		seed := h.Clone()
		g.Go(func() error {
			defer seed.Drop()
			for i := 0; i < iters; i++ {
				c := seed.Clone()
				if *c.Value() != "payload" {
					c.Drop()
					return errors.New("churn: read through clone saw a foreign payload")
				}
				c.Drop()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := h.StrongCount(); n != 1 {
		return errors.Errorf("churn: expected 1 surviving handle, got %d", n)
	}
	h.Drop()
	return nil
}

// runUpgradeStorm races weak upgraders against the final strong drop.
// No successful upgrade may observe a finalized payload.
func runUpgradeStorm(workers, iters int) error {
	var finalized uberatomic.Bool
	h := arc.NewWithFinalizer("alive", func(string) { finalized.Store(true) })
	w := h.Downgrade()

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for n := 0; n < iters; n++ {
				u, ok := w.Upgrade()
				if !ok {
					return nil
				}
				if finalized.Load() {
					u.Drop()
					return errors.New("upgrade: resurrected a destroyed payload")
				}
				u.Drop()
			}
			return nil
		})
	}
	h.Drop()
	if err := g.Wait(); err != nil {
		return err
	}

	if _, ok := w.Upgrade(); ok {
		return errors.New("upgrade: succeeded after the strong count hit zero")
	}
	w.Drop()
	return nil
}

// runLockedCounter is the canonical shared-mutation scenario: each worker
// clones the handle, increments the payload counter under the
// caller-supplied lock, and drops the clone. The counter must equal the
// number of workers exactly.
func runLockedCounter(workers, _ int) error {
	type payload struct {
		mu sync.Mutex
		n  int
	}
	h := arc.New(&payload{})

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		clone := h.Clone()
		g.Go(func() error {
			p := *clone.Value()
			p.mu.Lock()
			p.n++
			p.mu.Unlock()
			clone.Drop()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := h.StrongCount(); n != 1 {
		return errors.Errorf("counter: expected 1 surviving handle, got %d", n)
	}
	if got := (*h.Value()).n; got != workers {
		return errors.Errorf("counter: expected %d increments, got %d", workers, got)
	}
	h.Drop()
	return nil
}

// runRefcellWorkload churns guards over a tracked cell on one goroutine
// (the cell's contract) and checks the aliasing state after every phase.
func runRefcellWorkload(_, iters int) error {
	c := refcell.New(0)

	for i := 0; i < iters; i++ {
		r1, err := c.TryBorrow()
		if err != nil {
			return errors.Wrap(err, "refcell: first shared borrow")
		}
		r2, err := c.TryBorrow()
		if err != nil {
			return errors.Wrap(err, "refcell: second shared borrow")
		}
		if _, err := c.TryBorrowMut(); err == nil {
			return errors.New("refcell: exclusive granted alongside shared guards")
		}
		r1.Release()
		r2.Release()

		g, err := c.TryBorrowMut()
		if err != nil {
			return errors.Wrap(err, "refcell: exclusive after all releases")
		}
		g.Set(i + 1)
		if _, err := c.TryBorrow(); err == nil {
			return errors.New("refcell: shared granted alongside exclusive guard")
		}
		g.Release()

		if c.State() != "unshared" {
			return errors.Errorf("refcell: expected unshared after releases, got %s", c.State())
		}
	}

	if got := c.IntoInner(); got != iters {
		return errors.Errorf("refcell: expected final value %d, got %d", iters, got)
	}
	return nil
}
