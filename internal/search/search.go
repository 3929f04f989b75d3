// Package search runs one search request across the configured sources and
// streams progress, deduplicated results and completion as events.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/carfinder/internal/adapter"
	"github.com/hyperifyio/carfinder/internal/aggregate"
	"github.com/hyperifyio/carfinder/internal/extract"
	"github.com/hyperifyio/carfinder/internal/filter"
	"github.com/hyperifyio/carfinder/internal/listing"
	"github.com/hyperifyio/carfinder/internal/sources"
)

// AdapterSource picks the adapter for a source.
type AdapterSource interface {
	For(d sources.Descriptor) adapter.Adapter
}

// Pacer pauses between sources.
type Pacer interface {
	Pause(ctx context.Context, r sources.DelayRange) error
}

// Recorder observes per-source outcomes.
type Recorder interface {
	ObserveSource(source string, outcome adapter.Outcome, took time.Duration, results int)
}

// Orchestrator holds the shared, read-only parts of the pipeline. Every call
// to Run owns its own deduplication state.
type Orchestrator struct {
	Catalog   sources.Catalog
	FastCount int
	FullCount int
	Adapters  AdapterSource
	Pacer     Pacer
	Extractor extract.Extractor
	Recorder  Recorder
	// DedupThreshold overrides aggregate.DefaultThreshold when positive.
	DedupThreshold int
}

// Run validates c and starts the search. The returned channel yields
// Progress and Result events and is closed after Complete. Invalid criteria
// produce a single Error event. Cancelling ctx stops the run before the next
// network call and closes the channel without Complete.
func (o *Orchestrator) Run(ctx context.Context, c listing.SearchCriteria) <-chan Event {
	out := make(chan Event)
	if err := c.Validate(); err != nil {
		go func() {
			defer close(out)
			select {
			case out <- Error(err.Error()):
			case <-ctx.Done():
			}
		}()
		return out
	}
	srcs := o.Catalog.Subset(c.EffectiveBreadth(), o.FastCount, o.FullCount)
	r := &run{o: o, c: c, srcs: srcs, out: out, dedup: aggregate.New(o.DedupThreshold), logger: loggerFrom(ctx)}
	go r.loop(ctx)
	return out
}

// Collect drains a run into a slice. It is meant for callers that do not
// stream, such as the CLI and tests.
func (o *Orchestrator) Collect(ctx context.Context, c listing.SearchCriteria) []Event {
	var evs []Event
	for ev := range o.Run(ctx, c) {
		evs = append(evs, ev)
	}
	return evs
}

func loggerFrom(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return log.Logger
}

type run struct {
	o      *Orchestrator
	c      listing.SearchCriteria
	srcs   []sources.Descriptor
	out    chan<- Event
	dedup  *aggregate.Deduplicator
	logger zerolog.Logger
}

func (r *run) emit(ctx context.Context, ev Event) bool {
	select {
	case r.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *run) loop(ctx context.Context) {
	defer close(r.out)
	start := time.Now()
	total := len(r.srcs)
	for i, d := range r.srcs {
		if ctx.Err() != nil {
			r.logger.Debug().Str("source", d.Name).Msg("search cancelled")
			return
		}
		if !r.emit(ctx, Progress(i+1, total, d.Name)) {
			return
		}
		if !r.visit(ctx, d) {
			return
		}
		if i < total-1 && r.o.Pacer != nil {
			if err := r.o.Pacer.Pause(ctx, d.PolitenessRange()); err != nil {
				return
			}
		}
	}
	r.logger.Info().Int("sources", total).Int("results", r.dedup.Len()).Dur("took", time.Since(start)).Msg("search complete")
	r.emit(ctx, Complete())
}

// visit fetches one source and emits its surviving listings. It returns
// false only when the consumer has gone away.
func (r *run) visit(ctx context.Context, d sources.Descriptor) bool {
	began := time.Now()
	res := r.fetch(ctx, d)
	took := time.Since(began)

	emitted := 0
	if res.Outcome == adapter.Unavailable {
		r.logger.Warn().Err(res.Err).Str("source", d.Name).Dur("took", took).Msg("source unavailable")
	}
	for _, item := range res.Items {
		l, ok := r.normalize(d, item)
		if !ok || !filter.Passes(l, r.c) || !r.dedup.Accept(l) {
			continue
		}
		if !r.emit(ctx, Result(l)) {
			return false
		}
		emitted++
	}
	r.logger.Debug().Str("source", d.Name).Str("outcome", res.Outcome.String()).Int("items", len(res.Items)).Int("results", emitted).Dur("took", took).Msg("source done")
	if r.o.Recorder != nil {
		r.o.Recorder.ObserveSource(d.Name, res.Outcome, took, emitted)
	}
	return ctx.Err() == nil
}

// fetch isolates adapter faults: a panic becomes an Unavailable result.
func (r *run) fetch(ctx context.Context, d sources.Descriptor) (res adapter.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = adapter.Result{Outcome: adapter.Unavailable, Err: fmt.Errorf("%s: %w: panic: %v", d.Name, adapter.ErrUnavailable, p)}
		}
	}()
	if r.o.Adapters == nil {
		return adapter.Result{Outcome: adapter.Unavailable, Err: fmt.Errorf("%s: %w: no adapters", d.Name, adapter.ErrUnavailable)}
	}
	return r.o.Adapters.For(d).Fetch(ctx, r.c)
}

func (r *run) normalize(d sources.Descriptor, item extract.RawItem) (l listing.Listing, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn().Str("source", d.Name).Interface("panic", p).Msg("dropping item")
			ok = false
		}
	}()
	return r.o.Extractor.Normalize(item)
}
