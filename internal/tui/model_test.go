package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghc-desk/ghc/internal/app"
	"github.com/ghc-desk/ghc/internal/testutil"
)

func newTestModel(t *testing.T, hasToken bool) (Model, *app.App, *testutil.MockBackend) {
	t.Helper()
	backend := testutil.NewMockBackend(hasToken)
	a, err := app.New(app.Options{Backend: backend, SessionID: "tui-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Start(context.Background()))

	m := New(context.Background(), a)
	t.Cleanup(m.Close)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model), a, backend
}

// drain runs cmd and feeds every resulting message except ticks back into m.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case runDoneMsg, actionDoneMsg:
		updated, next := m.Update(msg)
		m = updated.(Model)
		return drain(t, m, next)
	}
	return m
}

func press(m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

func TestModel_InitialView(t *testing.T) {
	m, _, _ := newTestModel(t, true)

	out := m.View()
	assert.Contains(t, out, "ghc")
	assert.Contains(t, out, "claude-sonnet-4.5")
	assert.Contains(t, out, "copilot 0.0.354")
	assert.True(t, m.snap.ControlsEnabled)
}

func TestModel_SubmitRunsPrompt(t *testing.T) {
	m, a, backend := newTestModel(t, true)
	m.input.SetValue("hello there")

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	m = drain(t, m, cmd)

	reqs := backend.RunRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hello there", reqs[0].Prompt)
	assert.Equal(t, "Mock response for: hello there", m.snap.OutputText)
	assert.True(t, m.snap.CopyVisible)
	assert.Len(t, a.History(), 1)
}

func TestModel_SubmitDisabledWithoutToken(t *testing.T) {
	m, _, backend := newTestModel(t, false)
	m.input.SetValue("hello")

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, backend.CallCount("RunAssistant"))
}

func TestModel_BlankPromptIgnored(t *testing.T) {
	m, _, _ := newTestModel(t, true)
	m.input.SetValue("   ")

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestModel_ModelPicker(t *testing.T) {
	m, a, _ := newTestModel(t, true)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, modeModels, m.mode)
	assert.Contains(t, m.View(), "gpt-4.1")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("mini")})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeMain, m.mode)
	assert.Equal(t, "gpt-5-mini", a.Snapshot().Model)
	assert.Equal(t, "gpt-5-mini", m.snap.Model)
}

func TestModel_ModelPickerEscape(t *testing.T) {
	m, a, _ := newTestModel(t, true)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlP})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, modeMain, m.mode)
	assert.Equal(t, "claude-sonnet-4.5", a.Snapshot().Model)
}

func TestModel_ToggleHistory(t *testing.T) {
	m, a, _ := newTestModel(t, true)
	m.input.SetValue("first")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.True(t, a.Snapshot().HistoryVisible)
	assert.Contains(t, m.View(), "History")
	assert.Contains(t, m.View(), "first")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.False(t, m.snap.HistoryVisible)
}

func TestModel_DetachFile(t *testing.T) {
	m, a, _ := newTestModel(t, true)
	a.SelectFile("/tmp/notes.txt")
	updated, _ := m.Update(StateChangedMsg{Field: "file"})
	m = updated.(Model)
	assert.Contains(t, m.View(), "notes.txt")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Empty(t, a.Snapshot().FilePath)
	assert.NotContains(t, m.View(), "notes.txt")
}

func TestModel_CopyNeedsOutput(t *testing.T) {
	m, _, _ := newTestModel(t, true)
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Nil(t, cmd)
}

func TestModel_LoginShowsUserCode(t *testing.T) {
	m, _, backend := newTestModel(t, false)

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m = drain(t, m, cmd)

	assert.Equal(t, 1, backend.CallCount("StartDeviceLogin"))
	assert.Contains(t, m.View(), "ABCD-1234")
}

func TestModel_ActionErrorShowsNotice(t *testing.T) {
	m, _, _ := newTestModel(t, true)

	// No opener is configured, so the billing link cannot be opened.
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlB})
	m = drain(t, m, cmd)

	assert.Contains(t, m.notice, "Cannot open links here")
}

func TestModel_InstallOnlyWhenMissing(t *testing.T) {
	m, _, backend := newTestModel(t, true)

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyF2})
	assert.Nil(t, cmd)
	assert.Zero(t, backend.CallCount("InstallCLI"))
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t, true)
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
