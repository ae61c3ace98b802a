// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

// fakeConverter returns canned outcomes. When a gate exists for a file
// name, Convert blocks until an outcome is sent on it.
type fakeConverter struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan types.Outcome
	outcome types.Outcome
	panics  bool
}

func (f *fakeConverter) Convert(_ context.Context, file types.CandidateFile) types.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, file.Name)
	gate := f.gates[file.Name]
	f.mu.Unlock()

	if f.panics {
		panic("converter exploded")
	}
	if gate != nil {
		return <-gate
	}
	return f.outcome
}

func (f *fakeConverter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingNotifier captures notifier calls.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, s)
}
func (r *recordingNotifier) Info(m string)    { r.add("info:" + m) }
func (r *recordingNotifier) Success(m string) { r.add("success:" + m) }
func (r *recordingNotifier) Error(m string)   { r.add("error:" + m) }
func (r *recordingNotifier) Dismiss()         { r.add("dismiss") }

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// fakeRecorder captures recorded outcomes.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *fakeRecorder) Record(_ context.Context, src types.CandidateFile, out types.Outcome, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind := "success"
	if !out.OK() {
		kind = string(out.Failure.Kind)
	}
	r.entries = append(r.entries, src.Name+":"+kind)
	return nil
}

// phaseLog subscribes to w and collects the phases it sees.
func phaseLog(w *Workflow) func() []types.Phase {
	var mu sync.Mutex
	var phases []types.Phase
	w.Subscribe(func(s types.State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
	})
	return func() []types.Phase {
		mu.Lock()
		defer mu.Unlock()
		return append([]types.Phase(nil), phases...)
	}
}

func file(name string) types.CandidateFile {
	return types.CandidateFile{Name: name, SizeBytes: 2048, Body: strings.NewReader("data")}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWorkflow_RoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	conv := &fakeConverter{outcome: types.Succeeded([]byte("# Report"), "report.md")}
	w := New(conv, WithClock(func() time.Time { return fixedNow }))
	phases := phaseLog(w)

	assert.Equal(t, types.PhaseIdle, w.State().Phase)
	require.True(t, w.Drop(context.Background(), file("report.docx")))
	w.Wait()

	st := w.State()
	require.Equal(t, types.PhaseSucceeded, st.Phase)
	require.NotNil(t, st.Artifact)
	want := types.Artifact{
		Filename:          "report.md",
		Content:           []byte("# Report"),
		ConvertedAt:       fixedNow,
		OriginalSizeBytes: 2048,
	}
	if diff := cmp.Diff(want, *st.Artifact); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, st.Artifact.Filename)

	require.True(t, w.NewConversion())
	st = w.State()
	assert.Equal(t, types.PhaseIdle, st.Phase)
	assert.Nil(t, st.Artifact)

	assert.Equal(t, []types.Phase{
		types.PhaseValidating,
		types.PhaseUploading,
		types.PhaseSucceeded,
		types.PhaseIdle,
	}, phases())
}

func TestWorkflow_AdmissionRejection(t *testing.T) {
	conv := &fakeConverter{}
	notes := &recordingNotifier{}
	rec := &fakeRecorder{}
	w := New(conv, WithNotifier(notes), WithRecorder(rec))
	phases := phaseLog(w)

	require.True(t, w.Drop(context.Background(), file("data.csv")))
	w.Wait()

	st := w.State()
	require.Equal(t, types.PhaseFailed, st.Phase)
	require.NotNil(t, st.Failure)
	assert.Equal(t, types.KindUnsupportedType, st.Failure.Kind)
	assert.Contains(t, st.Failure.Message, ".pptx, .docx, .xlsx, .xls, .pdf, .md")
	assert.Zero(t, conv.callCount())
	assert.Equal(t, []types.Phase{types.PhaseValidating, types.PhaseFailed}, phases())
	assert.Equal(t, []string{"error:" + st.Failure.Message}, notes.all())
	assert.Equal(t, []string{"data.csv:unsupported_type"}, rec.entries)
}

func TestWorkflow_TooLarge(t *testing.T) {
	w := New(&fakeConverter{})
	f := file("huge.pdf")
	f.SizeBytes = 30*1024*1024 + 1
	w.Drop(context.Background(), f)

	st := w.State()
	require.Equal(t, types.PhaseFailed, st.Phase)
	assert.Equal(t, types.KindTooLarge, st.Failure.Kind)
	assert.Contains(t, st.Failure.Message, "30MB")
}

func TestWorkflow_TransportFailure(t *testing.T) {
	conv := &fakeConverter{outcome: types.Failed(types.KindNetworkError, "Network error")}
	notes := &recordingNotifier{}
	w := New(conv, WithNotifier(notes))

	w.Drop(context.Background(), file("a.pdf"))
	w.Wait()

	st := w.State()
	require.Equal(t, types.PhaseFailed, st.Phase)
	assert.Equal(t, types.KindNetworkError, st.Failure.Kind)
	assert.Nil(t, st.Artifact)
	assert.Equal(t, []string{"info:Converting a.pdf...", "dismiss", "error:Network error"}, notes.all())

	// Failure is terminal for that attempt only.
	conv.outcome = types.Succeeded([]byte("ok"), "b.md")
	w.Drop(context.Background(), file("b.pdf"))
	w.Wait()
	assert.Equal(t, types.PhaseSucceeded, w.State().Phase)
}

func TestWorkflow_SuccessNotifications(t *testing.T) {
	notes := &recordingNotifier{}
	w := New(&fakeConverter{outcome: types.Succeeded([]byte("x"), "a.md")}, WithNotifier(notes))
	w.Drop(context.Background(), file("a.pdf"))
	w.Wait()
	assert.Equal(t, []string{
		"info:Converting a.pdf...",
		"dismiss",
		"success:Successfully converted a.pdf to Markdown!",
	}, notes.all())
}

func TestWorkflow_OnlyFirstFile(t *testing.T) {
	conv := &fakeConverter{outcome: types.Succeeded([]byte("x"), "first.md")}
	w := New(conv)

	w.Drop(context.Background(), file("first.pdf"), file("second.pdf"), file("third.csv"))
	w.Wait()

	assert.Equal(t, []string{"first.pdf"}, conv.calls)
	assert.Equal(t, "first.pdf", w.State().File)
}

func TestWorkflow_EmptyDrop(t *testing.T) {
	w := New(&fakeConverter{})
	assert.False(t, w.Drop(context.Background()))
	assert.Equal(t, types.PhaseIdle, w.State().Phase)
}

func TestWorkflow_LaterResolutionWins(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	conv := &fakeConverter{gates: map[string]chan types.Outcome{
		"old.pdf": make(chan types.Outcome),
		"new.pdf": make(chan types.Outcome),
	}}
	rec := &fakeRecorder{}
	w := New(conv, WithRecorder(rec))

	w.Drop(context.Background(), file("old.pdf"))
	require.True(t, w.Busy())
	w.Drop(context.Background(), file("new.pdf"))
	require.True(t, w.Busy())

	// The newer request resolves first and is applied.
	conv.gates["new.pdf"] <- types.Succeeded([]byte("new"), "new.md")
	require.Eventually(t, func() bool { return w.State().Phase == types.PhaseSucceeded }, time.Second, 5*time.Millisecond)

	// The superseded request resolves later and is discarded.
	conv.gates["old.pdf"] <- types.Succeeded([]byte("old"), "old.md")
	w.Wait()

	st := w.State()
	require.Equal(t, types.PhaseSucceeded, st.Phase)
	assert.Equal(t, "new.md", st.Artifact.Filename)
	assert.Equal(t, []string{"new.pdf:success"}, rec.entries)
	assert.Equal(t, 2, conv.callCount())
}

func TestWorkflow_StaleResolutionFirstIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	conv := &fakeConverter{gates: map[string]chan types.Outcome{
		"old.pdf": make(chan types.Outcome),
		"new.pdf": make(chan types.Outcome),
	}}
	w := New(conv)

	w.Drop(context.Background(), file("old.pdf"))
	w.Drop(context.Background(), file("new.pdf"))

	conv.gates["old.pdf"] <- types.Failed(types.KindServerError, "old failed")
	// Give the stale goroutine time to attempt its transition.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, types.PhaseUploading, w.State().Phase)
	assert.Equal(t, "new.pdf", w.State().File)

	conv.gates["new.pdf"] <- types.Succeeded([]byte("new"), "new.md")
	w.Wait()
	assert.Equal(t, types.PhaseSucceeded, w.State().Phase)
	assert.Equal(t, "new.md", w.State().Artifact.Filename)
}

func TestWorkflow_RejectedDropSupersedesUpload(t *testing.T) {
	conv := &fakeConverter{gates: map[string]chan types.Outcome{"a.pdf": make(chan types.Outcome)}}
	w := New(conv)

	w.Drop(context.Background(), file("a.pdf"))
	w.Drop(context.Background(), file("b.csv"))
	require.Equal(t, types.PhaseFailed, w.State().Phase)

	conv.gates["a.pdf"] <- types.Succeeded([]byte("a"), "a.md")
	w.Wait()

	st := w.State()
	assert.Equal(t, types.PhaseFailed, st.Phase)
	assert.Equal(t, types.KindUnsupportedType, st.Failure.Kind)
}

func TestWorkflow_ConverterPanic(t *testing.T) {
	w := New(&fakeConverter{panics: true})
	w.Drop(context.Background(), file("a.pdf"))
	w.Wait()

	st := w.State()
	require.Equal(t, types.PhaseFailed, st.Phase)
	assert.Equal(t, types.KindUnknown, st.Failure.Kind)
	assert.Equal(t, unexpectedMessage, st.Failure.Message)
}

func TestWorkflow_NewConversionOnlyFromTerminal(t *testing.T) {
	conv := &fakeConverter{gates: map[string]chan types.Outcome{"a.pdf": make(chan types.Outcome)}}
	w := New(conv)

	assert.False(t, w.NewConversion(), "idle")

	w.Drop(context.Background(), file("a.pdf"))
	assert.False(t, w.NewConversion(), "uploading")
	assert.Equal(t, types.PhaseUploading, w.State().Phase)

	conv.gates["a.pdf"] <- types.Failed(types.KindNetworkError, "down")
	w.Wait()
	assert.True(t, w.NewConversion(), "failed")
	assert.Equal(t, types.State{Phase: types.PhaseIdle}, w.State())
}

func TestWorkflow_Unsubscribe(t *testing.T) {
	w := New(&fakeConverter{outcome: types.Succeeded([]byte("x"), "a.md")})
	var count int
	var mu sync.Mutex
	unsubscribe := w.Subscribe(func(types.State) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	other := phaseLog(w)

	w.Drop(context.Background(), file("data.csv"))
	unsubscribe()
	w.NewConversion()

	mu.Lock()
	assert.Equal(t, 2, count)
	mu.Unlock()
	assert.Len(t, other(), 3)
}

func TestWorkflow_ObserverMayReadState(t *testing.T) {
	w := New(&fakeConverter{outcome: types.Succeeded([]byte("x"), "a.md")})
	var seen []types.Phase
	var mu sync.Mutex
	w.Subscribe(func(s types.State) {
		got := w.State()
		mu.Lock()
		seen = append(seen, got.Phase)
		mu.Unlock()
	})
	w.Drop(context.Background(), file("a.pdf"))
	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestWorkflow_PanickingObserver(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w := New(&fakeConverter{outcome: types.Succeeded([]byte("x"), "a.md")})
	w.Subscribe(func(s types.State) {
		if s.Phase == types.PhaseValidating {
			panic("observer failed")
		}
	})
	phases := phaseLog(w)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Drop(context.Background(), file("a.pdf"))
		w.Wait()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workflow blocked after an observer panicked")
	}

	assert.Equal(t, types.PhaseSucceeded, w.State().Phase)
	assert.Equal(t, []types.Phase{types.PhaseValidating, types.PhaseUploading, types.PhaseSucceeded}, phases())
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	n.Info("Converting a.pdf...")
	n.Dismiss()
	n.Success("done")
	n.Error("broken")
	assert.Equal(t, "… Converting a.pdf...\n✓ done\n✗ broken\n", buf.String())
}
