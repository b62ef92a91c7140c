package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/history"
	"github.com/ghc-desk/ghc/internal/testutil"
	"github.com/ghc-desk/ghc/internal/view"
)

type fakeGate struct {
	mu       sync.Mutex
	auth     bool
	hasToken bool
}

func (g *fakeGate) CanSubmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.auth
}

func (g *fakeGate) HasToken() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasToken
}

func (g *fakeGate) set(auth bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auth, g.hasToken = auth, auth
}

type fixture struct {
	backend *testutil.MockBackend
	gate    *fakeGate
	view    *view.State
	log     *history.Log
	coord   *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: testutil.NewMockBackend(true),
		gate:    &fakeGate{auth: true, hasToken: true},
		view:    view.NewState(core.DefaultModel, nil),
		log:     history.NewLog(),
	}
	t.Cleanup(f.view.Close)
	f.coord = NewCoordinator(f.backend, f.gate, f.view, f.log, Options{})
	f.coord.SetTokenPresent(true)
	return f
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(_ context.Context, req core.RunRequest) (core.RunResult, error) {
		return core.RunResult{Output: "# Hi\nDone"}, nil
	}

	res := f.coord.Submit(context.Background(), Request{Prompt: "  explain  "})

	require.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Contains(t, res.Output.String(), "<h1>Hi</h1>")
	require.NotNil(t, res.Entry)
	assert.Equal(t, "explain", res.Entry.Label)
	assert.Equal(t, "# Hi\nDone", res.Entry.Raw)
	assert.Equal(t, core.DefaultModel, res.Entry.Model)
	assert.Equal(t, 1, f.log.Len())

	reqs := f.backend.RunRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "explain", reqs[0].Prompt)
	assert.Equal(t, core.DefaultModel, reqs[0].Model)

	snap := f.view.Snapshot()
	assert.Equal(t, view.OutputRendered, snap.OutputKind)
	assert.True(t, snap.CopyVisible)
	assert.True(t, snap.ControlsEnabled)
	assert.False(t, snap.Running)

	_, pending := f.coord.Pending()
	assert.False(t, pending)
}

func TestSubmit_ScenarioWithFileContext(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(_ context.Context, req core.RunRequest) (core.RunResult, error) {
		return core.RunResult{Output: "# Hi\nDone"}, nil
	}
	f.coord.SelectFile("/tmp/notes.txt")
	assert.Equal(t, "notes.txt", f.view.Snapshot().FileName)

	res := f.coord.Submit(context.Background(), Request{Prompt: "summarize this"})
	require.Equal(t, OutcomeSucceeded, res.Outcome)

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "summarize this ./notes.txt", entries[0].Label)
	assert.Contains(t, entries[0].Output.String(), "<h1>Hi</h1>")

	reqs := f.backend.RunRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/tmp/notes.txt", reqs[0].ContextPath)

	_, ok := f.coord.File()
	assert.False(t, ok)
	assert.Empty(t, f.view.Snapshot().FileName)
}

func TestSubmit_BlankOutput(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		return core.RunResult{Output: "  \n\t"}, nil
	}
	f.coord.SelectFile(`C:\work\a.md`)

	res := f.coord.Submit(context.Background(), Request{Prompt: "x"})

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Equal(t, 0, f.log.Len())
	snap := f.view.Snapshot()
	assert.Equal(t, view.OutputNone, snap.OutputKind)
	assert.False(t, snap.CopyVisible)
	assert.True(t, snap.ControlsEnabled)
	_, ok := f.coord.File()
	assert.False(t, ok)
}

func TestSubmit_Failure(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		return core.RunResult{}, errors.New("copilot exited with status 1")
	}
	f.coord.SelectFile("/tmp/notes.txt")

	res := f.coord.Submit(context.Background(), Request{Prompt: "x"})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, core.HasCode(res.Err, core.CodeAssistantFailed))
	assert.Equal(t, "copilot exited with status 1", res.Error)
	assert.Equal(t, 0, f.log.Len())

	snap := f.view.Snapshot()
	assert.Equal(t, view.OutputError, snap.OutputKind)
	assert.Equal(t, "copilot exited with status 1", snap.OutputText)
	assert.False(t, snap.CopyVisible)
	assert.True(t, snap.ControlsEnabled)
	_, ok := f.coord.File()
	assert.False(t, ok)
}

func TestSubmit_FailureWithBlankMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		return core.RunResult{}, core.ErrAssistant("")
	}

	res := f.coord.Submit(context.Background(), Request{Prompt: "x"})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.NotEmpty(t, f.view.Snapshot().OutputText)
}

func TestSubmit_BackendPanicReleasesRun(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		panic("runner blew up")
	}
	f.coord.SelectFile("/tmp/notes.txt")

	var res Result
	require.NotPanics(t, func() {
		res = f.coord.Submit(context.Background(), Request{Prompt: "x"})
	})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, core.HasCode(res.Err, core.CodeAssistantFailed))
	assert.Contains(t, res.Error, "runner blew up")
	assert.Equal(t, 0, f.log.Len())

	snap := f.view.Snapshot()
	assert.Equal(t, view.OutputError, snap.OutputKind)
	assert.True(t, snap.ControlsEnabled)
	assert.False(t, snap.Running)
	_, pending := f.coord.Pending()
	assert.False(t, pending)
	_, ok := f.coord.File()
	assert.False(t, ok)

	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		return core.RunResult{Output: "ok"}, nil
	}
	res = f.coord.Submit(context.Background(), Request{Prompt: "again"})
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, f.log.Len())
}

func TestSubmit_IgnoredCases(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		auth   bool
		reason IgnoreReason
	}{
		{"empty", "", true, ReasonEmptyPrompt},
		{"whitespace", " \t\n ", true, ReasonEmptyPrompt},
		{"unauthenticated", "hello", false, ReasonUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gate.set(tt.auth)
			f.coord.SetTokenPresent(tt.auth)
			f.coord.SelectFile("/tmp/keep.txt")
			before := f.view.Snapshot()

			res := f.coord.Submit(context.Background(), Request{Prompt: tt.prompt})

			assert.Equal(t, OutcomeIgnored, res.Outcome)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, 0, f.backend.CallCount("RunAssistant"))
			assert.Equal(t, before, f.view.Snapshot())
			_, ok := f.coord.File()
			assert.True(t, ok, "ignored submission must not consume the file")
		})
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	f := newFixture(t)
	blocker := testutil.NewBlocker()
	f.backend.RunAssistantFunc = func(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
		if err := blocker.Wait(ctx); err != nil {
			return core.RunResult{}, err
		}
		return core.RunResult{Output: "done"}, nil
	}

	first := make(chan Result, 1)
	go func() { first <- f.coord.Submit(context.Background(), Request{Prompt: "one"}) }()
	testutil.Recv(t, blocker.Started(), time.Second)

	pending, ok := f.coord.Pending()
	require.True(t, ok)
	assert.Equal(t, "one", pending.Prompt)

	snap := f.view.Snapshot()
	assert.False(t, snap.ControlsEnabled)
	assert.True(t, snap.Running)
	assert.Equal(t, view.OutputPlaceholder, snap.OutputKind)
	assert.Equal(t, core.RunningPlaceholder, snap.OutputText)

	second := f.coord.Submit(context.Background(), Request{Prompt: "two"})
	assert.Equal(t, OutcomeIgnored, second.Outcome)
	assert.Equal(t, ReasonBusy, second.Reason)
	assert.False(t, f.view.Snapshot().ControlsEnabled)

	blocker.Release()
	res := testutil.Recv(t, first, time.Second)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, f.backend.CallCount("RunAssistant"))
	assert.Equal(t, 1, f.coord.Metrics().Totals().Rejected)
}

func TestSubmit_ConcurrentCallersStartOneRun(t *testing.T) {
	f := newFixture(t)
	blocker := testutil.NewBlocker()
	f.backend.RunAssistantFunc = func(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
		_ = blocker.Wait(ctx)
		return core.RunResult{Output: "ok"}, nil
	}

	const callers = 20
	var ignored atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if f.coord.Submit(context.Background(), Request{Prompt: "go"}).Outcome == OutcomeIgnored {
				ignored.Add(1)
			}
		}()
	}
	close(start)

	testutil.Recv(t, blocker.Started(), time.Second)
	testutil.WaitFor(t, time.Second, func() bool { return ignored.Load() == callers-1 })
	blocker.Release()
	wg.Wait()

	assert.Equal(t, 1, f.backend.CallCount("RunAssistant"))
	assert.Equal(t, 1, f.log.Len())
}

func TestSubmit_FileSelectedDuringRunIsKept(t *testing.T) {
	f := newFixture(t)
	blocker := testutil.NewBlocker()
	f.backend.RunAssistantFunc = func(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
		_ = blocker.Wait(ctx)
		return core.RunResult{Output: "ok"}, nil
	}
	f.coord.SelectFile("/a/first.txt")

	done := make(chan Result, 1)
	go func() { done <- f.coord.Submit(context.Background(), Request{Prompt: "p"}) }()
	testutil.Recv(t, blocker.Started(), time.Second)

	f.coord.SelectFile("/a/second.txt")
	blocker.Release()
	res := testutil.Recv(t, done, time.Second)

	assert.Equal(t, "p ./first.txt", res.Label)
	fc, ok := f.coord.File()
	require.True(t, ok)
	assert.Equal(t, "second.txt", fc.DisplayName)
}

func TestSubmit_TokenLostDuringRun(t *testing.T) {
	f := newFixture(t)
	blocker := testutil.NewBlocker()
	f.backend.RunAssistantFunc = func(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
		_ = blocker.Wait(ctx)
		return core.RunResult{Output: "ok"}, nil
	}

	done := make(chan Result, 1)
	go func() { done <- f.coord.Submit(context.Background(), Request{Prompt: "p"}) }()
	testutil.Recv(t, blocker.Started(), time.Second)

	f.gate.set(false)
	f.coord.SetTokenPresent(false)
	f.coord.SetTokenPresent(true) // must not re-enable mid-run
	assert.False(t, f.view.Snapshot().ControlsEnabled)

	blocker.Release()
	testutil.Recv(t, done, time.Second)
	assert.False(t, f.view.Snapshot().ControlsEnabled)
}

func TestSubmit_ExplicitContextOverridesSelection(t *testing.T) {
	f := newFixture(t)
	f.coord.SelectFile("/a/selected.txt")

	res := f.coord.Submit(context.Background(), Request{Prompt: "p", ContextPath: "/b/flag.txt", Model: "gpt-5"})

	assert.Equal(t, "p ./flag.txt", res.Label)
	reqs := f.backend.RunRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/b/flag.txt", reqs[0].ContextPath)
	assert.Equal(t, "gpt-5", reqs[0].Model)
	_, ok := f.coord.File()
	assert.True(t, ok)
}

func TestSubmit_HooksSeeAppendedEntry(t *testing.T) {
	f := newFixture(t)
	var got []history.Entry
	f.coord.OnAppend(func(e history.Entry) { got = append(got, e) })

	f.coord.Submit(context.Background(), Request{Prompt: "a"})
	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		return core.RunResult{}, errors.New("x")
	}
	f.coord.Submit(context.Background(), Request{Prompt: "b"})

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Label)
}

func TestSubmit_ScriptOutputIsSanitized(t *testing.T) {
	f := newFixture(t)
	f.backend.RunAssistantFunc = func(context.Context, core.RunRequest) (core.RunResult, error) {
		return core.RunResult{Output: "hi <script>alert(1)</script>"}, nil
	}

	res := f.coord.Submit(context.Background(), Request{Prompt: "x"})
	assert.NotContains(t, res.Output.String(), "<script")
	assert.NotContains(t, f.view.Snapshot().Output.String(), "<script")
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Record("gpt-5", OutcomeSucceeded, 2*time.Second)
	m.Record("gpt-5", OutcomeFailed, 4*time.Second)
	m.Record("claude-sonnet-4.5", OutcomeEmpty, time.Second)

	totals := m.Totals()
	assert.Equal(t, 3, totals.Runs)
	assert.Equal(t, 1, totals.Succeeded)
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, 1, totals.Empty)

	models := m.Models()
	require.Len(t, models, 2)
	assert.Equal(t, "claude-sonnet-4.5", models[0].Name)
	assert.Equal(t, 2, models[1].Invocations)
	assert.Equal(t, 1, models[1].Errors)
	assert.Equal(t, 3*time.Second, models[1].AvgDuration)

	m.Reset()
	assert.Zero(t, m.Totals().Runs)
}

func TestDisplayNameAndLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/notes.txt", "notes.txt"},
		{`C:\Users\me\doc.md`, "doc.md"},
		{"mixed/path\\file.go", "file.go"},
		{"plain.txt", "plain.txt"},
		{"/trailing/", "/trailing/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.path), tt.path)
	}

	assert.Equal(t, "p", Label("p", ""))
	assert.Equal(t, "p ./a.txt", Label("p", "a.txt"))
}
