// Package orchestrator computes the adjusted returns and metrics bundle once per
// (table, filters, policy) version and fans the published bundle out to consumers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trade-edge-lab/internal/adjust"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/filter"
	"trade-edge-lab/internal/idhash"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/observability"
	"trade-edge-lab/internal/storage"
)

// Coordinator errors.
var (
	ErrNoTable  = errors.New("no trade table set")
	ErrNoPolicy = errors.New("no adjustment policy set")
)

// Coordinator owns the current inputs and the published result bundle.
// All methods are safe for concurrent use.
type Coordinator struct {
	store   storage.ResultStore
	filter  filter.Engine
	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	// mu guards the inputs and serializes recomputation.
	mu        sync.Mutex
	table     *domain.Table
	tableFP   string
	filters   []domain.Predicate
	filtersFP string
	policy    domain.AdjustmentPolicy
	policyFP  string
	hasPolicy bool
	key       domain.ResultKey

	subMu   sync.Mutex
	subs    map[int]chan *domain.ResultBundle
	nextSub int
}

// Options for creating a Coordinator.
type Options struct {
	Store   storage.ResultStore // required
	Filter  filter.Engine       // nil selects filter.RangeEngine
	Logger  zerolog.Logger
	Metrics *observability.Metrics // optional
	Now     func() time.Time       // nil selects time.Now
}

// New creates a Coordinator with no inputs. Filters start empty.
func New(opts Options) *Coordinator {
	f := opts.Filter
	if f == nil {
		f = filter.NewRangeEngine()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		store:     opts.Store,
		filter:    f,
		log:       opts.Logger.With().Str("component", "coordinator").Logger(),
		metrics:   opts.Metrics,
		now:       now,
		filtersFP: idhash.FiltersFingerprint(nil),
		subs:      make(map[int]chan *domain.ResultBundle),
	}
}

// SetTable replaces the trade table. Returns false when the table is identical to
// the current one, in which case nothing is invalidated. A change recomputes and
// publishes the bundle once a policy is also set.
func (c *Coordinator) SetTable(ctx context.Context, table *domain.Table) (bool, error) {
	if table == nil {
		return false, fmt.Errorf("%w: nil table", domain.ErrInvalidParameter)
	}
	fp := idhash.TableFingerprint(table)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table != nil && fp == c.tableFP {
		return false, nil
	}
	c.table, c.tableFP = table, fp
	c.key.TableVersion++
	c.log.Info().Uint64("table_version", c.key.TableVersion).Int("rows", table.Len()).Msg("table changed")
	return true, c.refreshLocked(ctx)
}

// SetFilters replaces the active predicates. Returns false when they are equal to
// the current ones.
func (c *Coordinator) SetFilters(ctx context.Context, preds []domain.Predicate) (bool, error) {
	fp := idhash.FiltersFingerprint(preds)

	c.mu.Lock()
	defer c.mu.Unlock()

	if fp == c.filtersFP {
		return false, nil
	}
	c.filters, c.filtersFP = domain.ClonePredicates(preds), fp
	c.key.FilterVersion++
	c.log.Info().Uint64("filter_version", c.key.FilterVersion).Int("filters", len(preds)).Msg("filters changed")
	return true, c.refreshLocked(ctx)
}

// SetPolicy validates and replaces the adjustment policy. Returns false when it is
// equal to the current one.
func (c *Coordinator) SetPolicy(ctx context.Context, policy domain.AdjustmentPolicy) (bool, error) {
	if err := policy.Validate(); err != nil {
		return false, err
	}
	fp := idhash.PolicyFingerprint(policy)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasPolicy && fp == c.policyFP {
		return false, nil
	}
	c.policy, c.policyFP, c.hasPolicy = policy, fp, true
	c.key.PolicyVersion++
	c.log.Info().Uint64("policy_version", c.key.PolicyVersion).
		Float64("stop_pct", policy.StopLossPct).Float64("efficiency_pct", policy.EfficiencyPct).
		Msg("policy changed")
	return true, c.refreshLocked(ctx)
}

// Key returns the version key of the current inputs.
func (c *Coordinator) Key() domain.ResultKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Current returns the bundle for the current inputs. Setters publish eagerly, so
// this normally reads the store; it computes only when the store lost the entry.
func (c *Coordinator) Current(ctx context.Context) (*domain.ResultBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table == nil {
		return nil, ErrNoTable
	}
	if !c.hasPolicy {
		return nil, ErrNoPolicy
	}

	b, err := c.store.Get(ctx, c.key)
	if err == nil {
		c.metrics.RecordCacheHit()
		return b, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read result store: %w", err)
	}

	return c.publishLocked(ctx)
}

// refreshLocked invalidates the published bundle and, when the inputs are
// complete, recomputes and publishes a new one. Caller holds c.mu.
func (c *Coordinator) refreshLocked(ctx context.Context) error {
	if err := c.store.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate result store: %w", err)
	}
	if c.table == nil || !c.hasPolicy {
		return nil
	}
	_, err := c.publishLocked(ctx)
	return err
}

// publishLocked computes, stores and fans out the bundle for the current inputs.
// Caller holds c.mu.
func (c *Coordinator) publishLocked(ctx context.Context) (*domain.ResultBundle, error) {
	b, err := c.compute()
	if err != nil {
		return nil, err
	}
	if err := c.store.Publish(ctx, b); err != nil {
		return nil, fmt.Errorf("publish bundle: %w", err)
	}
	c.metrics.RecordBundleComputed()
	c.log.Info().Uint64("table_version", b.Key.TableVersion).Uint64("filter_version", b.Key.FilterVersion).
		Uint64("policy_version", b.Key.PolicyVersion).Int("trades", b.Metrics.NumTrades).
		Msg("bundle published")

	c.fanOut(b)
	return b, nil
}

// compute builds the bundle for the current inputs. Caller holds c.mu.
func (c *Coordinator) compute() (*domain.ResultBundle, error) {
	subset, err := c.filter.Apply(c.table, c.filters)
	if err != nil {
		return nil, fmt.Errorf("apply filters: %w", err)
	}
	series := adjust.FromTable(subset, c.policy)

	return &domain.ResultBundle{
		Key:             c.key,
		Fingerprint:     idhash.BundleFingerprint(c.tableFP, c.filtersFP, c.policyFP),
		Policy:          c.policy,
		Filters:         domain.ClonePredicates(c.filters),
		Subset:          subset,
		AdjustedReturns: series.Returns,
		Stopped:         series.Stopped,
		Excluded:        series.Excluded,
		Metrics:         metrics.Compute(series, metrics.OptionsFromPolicy(c.policy)),
		ComputedAt:      c.now().UnixMilli(),
	}, nil
}

// Subscribe registers a consumer of newly published bundles. The channel holds
// at most buffer bundles (minimum 1); a slow consumer loses the oldest pending
// bundle, never the newest. Call the returned function to unsubscribe.
func (c *Coordinator) Subscribe(buffer int) (<-chan *domain.ResultBundle, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *domain.ResultBundle, buffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

func (c *Coordinator) fanOut(b *domain.ResultBundle) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- b:
			continue
		default:
		}
		// Full: drop the oldest pending bundle. Only fanOut sends, so a slot is free after.
		select {
		case <-ch:
		default:
		}
		ch <- b
	}
	c.metrics.RecordPublished()
}
