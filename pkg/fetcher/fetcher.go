// Package fetcher orchestrates fetch jobs: for each requested date it fans
// out over the 34 endpoint calls, joins the results into one merged record,
// persists it, and reports progress on an ordered event stream.
//
// Ordering contract: terminal events (date_done / date_skipped) are emitted
// in job order even when dates run concurrently; endpoint_done events
// interleave only within their own date's block. Exactly one batch_done
// event ends every stream.
package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/endpoint"
	"github.com/bipard/healthfetch/pkg/fetchclient"
	"github.com/bipard/healthfetch/pkg/healthstore"
	"github.com/bipard/healthfetch/pkg/progress"
	"github.com/bipard/healthfetch/pkg/record"
)

// Store is the storage gateway the orchestrator requires.
type Store interface {
	// ExistingDates returns the subset of dates already persisted,
	// resolved in a single batched query.
	ExistingDates(ctx context.Context, dates []datekey.Key) (map[datekey.Key]bool, error)

	// Upsert persists one record, keyed by its date. Idempotent.
	Upsert(ctx context.Context, rec *record.HealthRecord) error
}

// Client performs one endpoint call for one date.
type Client interface {
	Fetch(ctx context.Context, date datekey.Key, spec endpoint.Spec) fetchclient.Result
}

// Config configures orchestration behavior.
type Config struct {
	// EndpointConcurrency bounds the parallel endpoint calls within one
	// date. Default: 8.
	EndpointConcurrency int

	// DateConcurrency bounds how many dates are in flight at once.
	// Default: 1 (sequential dates). Raising it keeps the terminal-event
	// ordering guarantee via a re-sequencing buffer.
	DateConcurrency int

	// StreamBuffer is the progress stream's channel capacity.
	// Default: progress.DefaultBuffer.
	StreamBuffer int
}

// DefaultConfig returns the default orchestration configuration.
func DefaultConfig() Config {
	return Config{
		EndpointConcurrency: 8,
		DateConcurrency:     1,
		StreamBuffer:        progress.DefaultBuffer,
	}
}

const reasonAlreadyStored = "already stored"

// Fetcher coordinates fetch jobs. Safe for concurrent Run calls: jobs share
// nothing but the client and the store.
type Fetcher struct {
	client Client
	store  Store
	specs  []endpoint.Spec
	cfg    Config
}

// New creates a fetcher over the full endpoint table. Zero config values
// are replaced with defaults.
func New(client Client, store Store, cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.EndpointConcurrency <= 0 {
		cfg.EndpointConcurrency = def.EndpointConcurrency
	}
	if cfg.DateConcurrency <= 0 {
		cfg.DateConcurrency = def.DateConcurrency
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = def.StreamBuffer
	}
	return &Fetcher{client: client, store: store, specs: endpoint.Specs, cfg: cfg}
}

// Endpoints returns the ordered endpoint table for introspection.
func (f *Fetcher) Endpoints() []endpoint.Spec {
	return f.specs
}

// Run starts the job and returns its progress stream. The stream is lazy,
// finite, and non-restartable: it ends with exactly one batch_done event
// and is then closed.
//
// Cancelling ctx stops the job cooperatively: no new dates are submitted,
// in-flight calls for current dates drain naturally, and the final
// batch_done is marked cancelled. Already-persisted records are kept.
func (f *Fetcher) Run(ctx context.Context, job *FetchJob) *progress.Stream {
	stream := progress.NewStream(job.JobID, f.cfg.StreamBuffer)
	go f.run(ctx, job, stream)
	return stream
}

func (f *Fetcher) run(ctx context.Context, job *FetchJob, stream *progress.Stream) {
	defer stream.Close()
	start := time.Now()

	summary := progress.Summary{
		Requested:        len(job.Dates),
		EndpointFailures: make(map[string]int),
	}

	finish := func() {
		summary.Duration = time.Since(start)
		summary.DurationHuman = summary.Duration.Round(time.Millisecond).String()
		if len(summary.EndpointFailures) == 0 {
			summary.EndpointFailures = nil
		}
		_ = stream.EmitBatchDone(summary)
	}

	if len(job.Dates) == 0 {
		finish()
		return
	}

	existing, err := f.store.ExistingDates(ctx, job.Dates)
	if err != nil {
		summary.Error = fmt.Sprintf("existence query: %v", err)
		summary.Cancelled = ctx.Err() != nil
		finish()
		return
	}

	// The duplicate filter decides the work list once, up front. Dates it
	// excludes still get a date_skipped terminal event in their job-order
	// position.
	pending := make(map[datekey.Key]bool, len(job.Dates))
	for _, d := range Pending(job.Dates, existing) {
		pending[d] = true
	}

	// Cancellation is cooperative and checked between dates only: work
	// already submitted finishes or times out naturally, so a cancelled
	// batch never leaves a half-merged date behind.
	callCtx := context.WithoutCancel(ctx)

	if f.cfg.DateConcurrency <= 1 {
		f.runSequential(ctx, callCtx, job, pending, stream, &summary)
	} else {
		f.runConcurrent(ctx, callCtx, job, pending, stream, &summary)
	}
	finish()
}

func (f *Fetcher) runSequential(ctx, callCtx context.Context, job *FetchJob, pending map[datekey.Key]bool, stream *progress.Stream, summary *progress.Summary) {
	sink := &liveSink{stream: stream}
	for i, date := range job.Dates {
		if ctx.Err() != nil {
			summary.Cancelled = true
			return
		}
		if !pending[date] {
			_ = stream.EmitDateSkipped(progress.DateSkipped{Date: date, Reason: reasonAlreadyStored})
			summary.Skipped++
			continue
		}
		done := f.processDate(callCtx, date, i, len(job.Dates), sink)
		tally(summary, done)
	}
}

// dateBlock is one date's complete event sequence plus its outcome, carried
// from a date worker to the re-sequencing stage.
type dateBlock struct {
	idx     int
	events  []progress.Event
	done    *progress.DateDone
	skipped bool
}

func (f *Fetcher) runConcurrent(ctx, callCtx context.Context, job *FetchJob, pending map[datekey.Key]bool, stream *progress.Stream, summary *progress.Summary) {
	blocks := make(chan dateBlock)
	flusherDone := make(chan struct{})

	// Single event-ordering stage: blocks are flushed strictly in job
	// order, buffering out-of-order completions until their predecessors
	// have been emitted.
	go func() {
		defer close(flusherDone)
		next := 0
		pending := make(map[int]dateBlock)
		for blk := range blocks {
			pending[blk.idx] = blk
			for {
				b, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				for _, e := range b.events {
					stream.Forward(e)
				}
				if b.skipped {
					summary.Skipped++
				} else {
					tally(summary, *b.done)
				}
				next++
			}
		}
	}()

	sem := make(chan struct{}, f.cfg.DateConcurrency)
	var wg sync.WaitGroup

	for i, date := range job.Dates {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		if !pending[date] {
			e, err := progress.NewEvent(stream.JobID(), progress.TypeDateSkipped,
				progress.DateSkipped{Date: date, Reason: reasonAlreadyStored})
			if err == nil {
				blocks <- dateBlock{idx: i, events: []progress.Event{e}, skipped: true}
			}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, d datekey.Key) {
			defer wg.Done()
			defer func() { <-sem }()
			buf := &bufferSink{jobID: stream.JobID()}
			done := f.processDate(callCtx, d, idx, len(job.Dates), buf)
			blocks <- dateBlock{idx: idx, events: buf.events, done: &done}
		}(i, date)
	}

	wg.Wait()
	close(blocks)
	<-flusherDone
}

type indexedResult struct {
	idx int
	res fetchclient.Result
}

// processDate runs one date end to end: fan out the endpoint calls into a
// fixed-slot results array, join on all of them, merge, persist, and emit
// the date's terminal event.
func (f *Fetcher) processDate(ctx context.Context, date datekey.Key, idx, total int, sink eventSink) progress.DateDone {
	sink.started(progress.Started{Date: date, DateIndex: idx + 1, TotalDates: total})

	results := make([]fetchclient.Result, len(f.specs))
	resCh := make(chan indexedResult, len(f.specs))
	sem := make(chan struct{}, f.cfg.EndpointConcurrency)

	for i, spec := range f.specs {
		sem <- struct{}{}
		go func(i int, spec endpoint.Spec) {
			defer func() { <-sem }()
			resCh <- indexedResult{idx: i, res: f.client.Fetch(ctx, date, spec)}
		}(i, spec)
	}

	// Join point: every slot fills (success or failure) before merging.
	done := progress.DateDone{Date: date}
	for range f.specs {
		it := <-resCh
		results[it.idx] = it.res

		ep := progress.EndpointDone{Date: date, Endpoint: it.res.Endpoint, OK: it.res.OK()}
		if it.res.Err != nil {
			ep.Error = it.res.Err.Error()
			done.Failed++
		} else {
			done.Succeeded++
		}
		sink.endpointDone(ep)
	}

	rec := record.Merge(date, results, time.Now())

	done.Stored = true
	if err := f.store.Upsert(ctx, rec); err != nil {
		// A persistence failure degrades to an error-flagged date_done;
		// it never aborts the batch.
		done.Stored = false
		done.Error = err.Error()
	}
	sink.dateDone(done)
	return done
}

func tally(summary *progress.Summary, done progress.DateDone) {
	if done.Stored {
		summary.Processed++
	} else {
		summary.Errored++
	}
	if done.Failed > 0 {
		summary.EndpointFailures[done.Date.String()] = done.Failed
	}
}

// eventSink receives one date's events. The live sink streams directly;
// the buffer sink collects the block for ordered flushing.
type eventSink interface {
	started(p progress.Started)
	endpointDone(p progress.EndpointDone)
	dateDone(p progress.DateDone)
}

type liveSink struct {
	stream *progress.Stream
}

func (s *liveSink) started(p progress.Started)           { _ = s.stream.EmitStarted(p) }
func (s *liveSink) endpointDone(p progress.EndpointDone) { _ = s.stream.EmitEndpointDone(p) }
func (s *liveSink) dateDone(p progress.DateDone)         { _ = s.stream.EmitDateDone(p) }

type bufferSink struct {
	jobID  string
	events []progress.Event
}

func (s *bufferSink) add(eventType string, payload any) {
	e, err := progress.NewEvent(s.jobID, eventType, payload)
	if err != nil {
		return
	}
	s.events = append(s.events, e)
}

func (s *bufferSink) started(p progress.Started)           { s.add(progress.TypeStarted, p) }
func (s *bufferSink) endpointDone(p progress.EndpointDone) { s.add(progress.TypeEndpointDone, p) }
func (s *bufferSink) dateDone(p progress.DateDone)         { s.add(progress.TypeDateDone, p) }

// Compile-time check that the SQLite store satisfies the gateway contract.
var _ Store = (*healthstore.Store)(nil)

// Compile-time check that the HTTP client satisfies the call contract.
var _ Client = (*fetchclient.Client)(nil)
