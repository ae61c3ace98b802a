// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow runs the conversion state machine:
//
//	idle -> validating -> uploading -> succeeded | failed -> idle
//
// A Workflow holds exactly one current state. Dropping a file while an
// upload is in flight starts a new attempt; the older attempt is not
// cancelled, and its outcome is discarded when it resolves.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/markitdown-web/internal/admission"
	"github.com/pdiddy/markitdown-web/internal/metrics"
	"github.com/pdiddy/markitdown-web/pkg/types"
)

// unexpectedMessage is shown when the converter panics.
const unexpectedMessage = "An unexpected error occurred during conversion"

// Converter uploads one file and reports the outcome. Implementations must
// classify their own failures.
type Converter interface {
	Convert(ctx context.Context, f types.CandidateFile) types.Outcome
}

// Recorder persists applied outcomes.
type Recorder interface {
	Record(ctx context.Context, source types.CandidateFile, out types.Outcome, at time.Time) error
}

// Observer receives every state transition in order. Observers may call
// State but must not call Drop or NewConversion synchronously.
type Observer func(types.State)

type subscription struct {
	id int
	fn Observer
}

// Workflow is safe for concurrent use.
type Workflow struct {
	conv     Converter
	notifier Notifier
	recorder Recorder
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     types.State
	gen       uint64
	observers []subscription
	nextSubID int
	ticket    uint64

	emitMu    sync.Mutex
	emitCond  *sync.Cond
	delivered uint64

	wg sync.WaitGroup
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithNotifier sets the sink for user-facing progress messages.
func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

// WithRecorder sets where applied outcomes are recorded.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

// WithClock overrides the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// New returns a Workflow in the idle state.
func New(conv Converter, opts ...Option) *Workflow {
	w := &Workflow{
		conv:     conv,
		notifier: nopNotifier{},
		log:      zerolog.Nop(),
		now:      time.Now,
		state:    types.State{Phase: types.PhaseIdle},
	}
	w.emitCond = sync.NewCond(&w.emitMu)
	for _, o := range opts {
		o(w)
	}
	return w
}

// State returns the current state.
func (w *Workflow) State() types.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Busy reports whether an upload is in flight. A UI should disable its
// upload triggers while Busy is true.
func (w *Workflow) Busy() bool {
	return w.State().Phase == types.PhaseUploading
}

// Subscribe registers fn for state transitions and returns a function that
// removes it.
func (w *Workflow) Subscribe(fn Observer) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextSubID
	w.nextSubID++
	w.observers = append(w.observers, subscription{id: id, fn: fn})
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, s := range w.observers {
			if s.id == id {
				w.observers = append(w.observers[:i:i], w.observers[i+1:]...)
				return
			}
		}
	}
}

// Drop starts a conversion of the first file; the rest are ignored. It
// validates synchronously and, when the file is admitted, uploads it in the
// background. It returns false when files is empty.
func (w *Workflow) Drop(ctx context.Context, files ...types.CandidateFile) bool {
	if len(files) == 0 {
		return false
	}
	f := files[0]
	if len(files) > 1 {
		w.log.Debug().Int("ignored", len(files)-1).Msg("only the first dropped file is converted")
	}

	gen := w.begin(f.Name)

	r := admission.Admit(f)
	if !r.Accepted {
		fail := admission.Failure(r, f)
		out := types.Outcome{Failure: &fail}
		if w.advance(gen, types.State{Phase: types.PhaseFailed, File: f.Name, Failure: &fail}) {
			w.applied(ctx, f, out)
		}
		return true
	}

	if !w.advance(gen, types.State{Phase: types.PhaseUploading, File: f.Name}) {
		return true
	}
	w.notifier.Info(fmt.Sprintf("Converting %s...", f.Name))
	metrics.RecordAttempt()

	w.wg.Add(1)
	go w.upload(ctx, gen, f)
	return true
}

// NewConversion discards a finished result and returns to idle. It is a
// no-op unless the workflow has succeeded or failed.
func (w *Workflow) NewConversion() bool {
	w.mu.Lock()
	if w.state.Phase != types.PhaseSucceeded && w.state.Phase != types.PhaseFailed {
		w.mu.Unlock()
		return false
	}
	w.state = types.State{Phase: types.PhaseIdle}
	w.publishLocked()
	return true
}

// Wait blocks until every upload started so far has resolved, including
// superseded ones.
func (w *Workflow) Wait() {
	w.wg.Wait()
}

func (w *Workflow) upload(ctx context.Context, gen uint64, f types.CandidateFile) {
	defer w.wg.Done()

	start := time.Now()
	out := w.convert(ctx, f)
	metrics.ObserveUpload(time.Since(start))

	var next types.State
	if out.OK() {
		next = types.State{
			Phase: types.PhaseSucceeded,
			File:  f.Name,
			Artifact: &types.Artifact{
				Filename:          out.Filename,
				Content:           out.Content,
				ConvertedAt:       w.now(),
				OriginalSizeBytes: f.SizeBytes,
			},
		}
	} else {
		next = types.State{Phase: types.PhaseFailed, File: f.Name, Failure: out.Failure}
	}

	if !w.advance(gen, next) {
		metrics.RecordStale()
		w.log.Debug().Str("file", f.Name).Uint64("generation", gen).Msg("discarding superseded outcome")
		return
	}

	w.notifier.Dismiss()
	if out.OK() {
		w.notifier.Success(fmt.Sprintf("Successfully converted %s to Markdown!", f.Name))
	}
	w.applied(ctx, f, out)
}

// convert calls the converter and turns a panic into a failure.
func (w *Workflow) convert(ctx context.Context, f types.CandidateFile) (out types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Str("file", f.Name).Msg("converter panicked")
			out = types.Failed(types.KindUnknown, unexpectedMessage)
		}
	}()
	return w.conv.Convert(ctx, f)
}

// applied handles side effects of an outcome that reached the state.
func (w *Workflow) applied(ctx context.Context, f types.CandidateFile, out types.Outcome) {
	metrics.RecordOutcome(out.Failure)
	if !out.OK() {
		w.notifier.Error(out.Failure.Message)
		w.log.Info().Str("file", f.Name).Str("kind", string(out.Failure.Kind)).Msg(out.Failure.Message)
	} else {
		w.log.Info().Str("file", f.Name).Str("output", out.Filename).Int("bytes", len(out.Content)).Msg("conversion succeeded")
	}
	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(context.WithoutCancel(ctx), f, out, w.now()); err != nil {
		w.log.Warn().Err(err).Str("file", f.Name).Msg("recording history")
	}
}

// begin starts a new attempt and enters validating.
func (w *Workflow) begin(name string) uint64 {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.state = types.State{Phase: types.PhaseValidating, File: name}
	w.publishLocked()
	return gen
}

// advance applies next when gen is still the current attempt.
func (w *Workflow) advance(gen uint64, next types.State) bool {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return false
	}
	w.state = next
	w.publishLocked()
	return true
}

// notify calls one observer. A panicking observer is logged and skipped so
// later deliveries are not blocked.
func (w *Workflow) notify(fn Observer, st types.State) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Str("phase", string(st.Phase)).Msg("observer panicked")
		}
	}()
	fn(st)
}

// publishLocked delivers the current state to observers. It must be called
// with w.mu held and releases it. Deliveries happen in transition order.
func (w *Workflow) publishLocked() {
	st := w.state
	ticket := w.ticket
	w.ticket++
	subs := make([]Observer, len(w.observers))
	for i, s := range w.observers {
		subs[i] = s.fn
	}
	w.mu.Unlock()

	w.emitMu.Lock()
	for w.delivered != ticket {
		w.emitCond.Wait()
	}
	w.emitMu.Unlock()

	for _, fn := range subs {
		w.notify(fn, st)
	}

	w.emitMu.Lock()
	w.delivered++
	w.emitCond.Broadcast()
	w.emitMu.Unlock()
}
