package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/events"
	"github.com/ghc-desk/ghc/internal/history"
	"github.com/ghc-desk/ghc/internal/service"
	"github.com/ghc-desk/ghc/internal/view"
)

// Controller is the part of the app the terminal front end drives.
type Controller interface {
	Snapshot() view.Snapshot
	History() []history.Entry
	Models() []string
	SessionID() string
	Bus() *events.EventBus

	Submit(ctx context.Context, req service.Request) service.Result
	ToggleAuth(ctx context.Context) error
	OpenVerification() error
	SelectFile(path string) service.FileContext
	SelectModel(model string) error
	Copy() error
	ToggleHistory() bool
	OpenBilling() error
	Install(ctx context.Context) (string, error)
	Reload(ctx context.Context) error
}

// Messages produced by this package.
type (
	StateChangedMsg    struct{ Field string }
	HistoryAppendedMsg struct{ EntryID, Label string }

	runDoneMsg    struct{ Result service.Result }
	actionDoneMsg struct {
		Action string
		Err    error
	}
)

type mode int

const (
	modeMain mode = iota
	modeFiles
	modeModels
)

const (
	headerHeight = 1
	inputHeight  = 3
	footerHeight = 2
)

// Model is the Bubble Tea model of the terminal UI.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	adapter *EventBusAdapter

	keys    keyMap
	help    help.Model
	input   textinput.Model
	output  viewport.Model
	hist    viewport.Model
	spinner spinner.Model
	files   filepicker.Model
	picker  modelPicker
	md      *markdown

	mode   mode
	snap   view.Snapshot
	notice string

	width  int
	height int
	ready  bool

	renderedText string
	renderedKind view.OutputKind
}

// New creates the terminal model. ctx bounds every action the model starts.
func New(ctx context.Context, ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask Copilot..."
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = RunningStyle

	fp := filepicker.New()
	fp.CurrentDirectory = "."
	fp.ShowPermissions = false

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		adapter: NewEventBusAdapter(ctrl.Bus(), ctrl.SessionID()),
		keys:    defaultKeyMap(),
		help:    help.New(),
		input:   ti,
		output:  viewport.New(80, 10),
		hist:    viewport.New(80, 5),
		spinner: sp,
		files:   fp,
		md:      newMarkdown(80),
		snap:    ctrl.Snapshot(),
	}
}

// Close releases the event subscription.
func (m Model) Close() {
	m.adapter.Close()
}

// Init starts listening for state changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEventBusUpdate(m.adapter), m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height, m.ready = msg.Width, msg.Height, true
		m.help.Width = msg.Width
		m.md.resize(msg.Width - 6)
		m.renderedText = ""
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		m.refresh()
		return m, waitForEventBusUpdate(m.adapter)

	case HistoryAppendedMsg:
		m.refresh()
		m.hist.GotoBottom()
		return m, waitForEventBusUpdate(m.adapter)

	case runDoneMsg:
		m.refresh()
		if msg.Result.Outcome == service.OutcomeIgnored {
			m.notice = ignoreNotice(msg.Result.Reason)
		}
		return m, nil

	case actionDoneMsg:
		m.refresh()
		if msg.Err != nil {
			m.notice = core.UserMessage(msg.Err, core.UnknownErrorText)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.snap.Running {
			m.refreshOutput(false)
		}
		return m, cmd
	}

	if m.mode == modeFiles {
		return m.updateFiles(msg)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}
	m.notice = ""

	switch m.mode {
	case modeFiles:
		if key.Matches(msg, m.keys.Cancel) {
			m.mode = modeMain
			return m, nil
		}
		return m.updateFiles(msg)
	case modeModels:
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Auth):
		return m, m.action("auth", func() error { return m.ctrl.ToggleAuth(m.ctx) })
	case key.Matches(msg, m.keys.Verify):
		return m, m.action("verify", m.ctrl.OpenVerification)
	case key.Matches(msg, m.keys.AttachFile):
		if !m.snap.ControlsEnabled {
			return m, nil
		}
		m.mode = modeFiles
		return m, m.files.Init()
	case key.Matches(msg, m.keys.DetachFile):
		m.ctrl.SelectFile("")
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Model):
		if !m.snap.ControlsEnabled {
			return m, nil
		}
		m.picker = newModelPicker(m.ctrl.Models(), m.snap.Model)
		m.mode = modeModels
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if !m.snap.CopyVisible {
			return m, nil
		}
		return m, m.action("copy", m.ctrl.Copy)
	case key.Matches(msg, m.keys.History):
		m.ctrl.ToggleHistory()
		m.refresh()
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Billing):
		return m, m.action("billing", m.ctrl.OpenBilling)
	case key.Matches(msg, m.keys.Install):
		if !m.snap.InstallVisible || m.snap.Installing {
			return m, nil
		}
		return m, m.action("install", func() error {
			_, err := m.ctrl.Install(m.ctx)
			return err
		})
	case key.Matches(msg, m.keys.Reload):
		return m, m.action("reload", func() error { return m.ctrl.Reload(m.ctx) })
	case key.Matches(msg, m.keys.ScrollUp):
		m.output.HalfPageUp()
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.output.HalfPageDown()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeMain
	case key.Matches(msg, m.keys.PickerSelect):
		if model, ok := m.picker.Selected(); ok {
			if err := m.ctrl.SelectModel(model); err != nil {
				m.notice = core.UserMessage(err, core.UnknownErrorText)
			}
		}
		m.mode = modeMain
		m.refresh()
	case key.Matches(msg, m.keys.PickerUp):
		m.picker.up()
	case key.Matches(msg, m.keys.PickerDown):
		m.picker.down()
	case msg.Type == tea.KeyBackspace:
		m.picker.backspace()
	case msg.Type == tea.KeyRunes:
		m.picker.typeRunes(msg.Runes)
	}
	return m, nil
}

func (m Model) updateFiles(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)
	if ok, path := m.files.DidSelectFile(msg); ok {
		m.ctrl.SelectFile(path)
		m.mode = modeMain
		m.refresh()
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" || !m.snap.ControlsEnabled {
		return m, nil
	}
	m.input.Reset()
	ctx, ctrl := m.ctx, m.ctrl
	run := func() tea.Msg {
		return runDoneMsg{Result: ctrl.Submit(ctx, service.Request{Prompt: prompt})}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) action(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Action: name, Err: fn()}
	}
}

func ignoreNotice(reason service.IgnoreReason) string {
	switch reason {
	case service.ReasonUnauthenticated:
		return "Log in first (ctrl+l)."
	case service.ReasonBusy:
		return "Copilot is still running."
	default:
		return ""
	}
}

// refresh re-reads the snapshot and updates the widgets that depend on it.
func (m *Model) refresh() {
	prev := m.snap
	m.snap = m.ctrl.Snapshot()
	if m.snap.ControlsEnabled {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if prev.HistoryVisible != m.snap.HistoryVisible {
		m.layout()
	}
	m.refreshOutput(true)
	m.refreshHistory()
}

func (m *Model) refreshOutput(resetScroll bool) {
	s := m.snap
	if s.OutputKind == view.OutputPlaceholder {
		m.output.SetContent(m.spinner.View() + " " + RunningStyle.Render(s.OutputText))
		m.renderedText, m.renderedKind = "", s.OutputKind
		return
	}
	if s.OutputText == m.renderedText && s.OutputKind == m.renderedKind {
		return
	}
	m.renderedText, m.renderedKind = s.OutputText, s.OutputKind

	switch s.OutputKind {
	case view.OutputRendered:
		m.output.SetContent(m.md.Render(s.OutputText))
	case view.OutputError:
		m.output.SetContent(ErrorStyle.Render(s.OutputText))
	default:
		m.output.SetContent(SubtleStyle.Render("Ask Copilot something. Attach a file with ctrl+o."))
	}
	if resetScroll {
		m.output.GotoTop()
	}
}

func (m *Model) refreshHistory() {
	if !m.snap.HistoryVisible {
		return
	}
	entries := m.ctrl.History()
	if len(entries) == 0 {
		m.hist.SetContent(SubtleStyle.Render("No history yet."))
		return
	}
	width := max(m.hist.Width-2, 10)
	var sb strings.Builder
	for i, e := range entries {
		ts := SubtleStyle.Render(e.CreatedAt.Format("15:04"))
		sb.WriteString(fmt.Sprintf("%s %s", ts, TitleStyle.Render(Truncate(e.Label, width-6))))
		if e.Raw != "" {
			sb.WriteString("\n" + m.md.Render(e.Raw))
		}
		if i < len(entries)-1 {
			sb.WriteString("\n" + Divider(width) + "\n")
		}
	}
	m.hist.SetContent(sb.String())
}

// layout sizes the viewports for the window and the panels shown.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	helpLines := 1
	if m.help.ShowAll {
		helpLines = 4
	}
	body := m.height - headerHeight - inputHeight - footerHeight - helpLines - 4
	body = max(body, 3)

	m.output.Width = max(m.width-4, 10)
	m.hist.Width = max(m.width-4, 10)
	m.input.Width = max(m.width-8, 10)
	m.files.SetHeight(max(body, 5))

	if m.snap.HistoryVisible {
		m.hist.Height = max(body/2, 2)
		m.output.Height = max(body-m.hist.Height-3, 2)
		return
	}
	m.output.Height = body
}

// View renders the UI.
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Starting..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	switch m.mode {
	case modeFiles:
		sb.WriteString(Box("Attach file (esc to cancel)", m.files.View(), m.width))
	case modeModels:
		sb.WriteString(m.picker.View(m.width))
	default:
		sb.WriteString(Box("", m.output.View(), m.width))
		if m.snap.HistoryVisible {
			sb.WriteString("\n")
			sb.WriteString(Box("History", m.hist.View(), m.width))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderInput())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(FooterStyle.Render(m.help.View(m.keys)))
	return sb.String()
}

func (m Model) renderHeader() string {
	s := m.snap
	left := HeaderStyle.Render("ghc") + " " + SubtleStyle.Render(s.Model)

	var right []string
	capLabel := SubtleStyle.Render(s.CapabilityLabel)
	if s.InstallVisible {
		capLabel = WarningStyle.Render(s.CapabilityLabel)
		if !s.Installing {
			capLabel += SubtleStyle.Render(" (f2 to install)")
		}
	}
	right = append(right, capLabel)
	if s.ReloadVisible {
		right = append(right, BadgeStyle.Render("f5 reload"))
	}
	switch {
	case s.Authenticated && s.TokenTail != "":
		right = append(right, SuccessStyle.Render("signed in ..."+s.TokenTail))
	case s.Authenticated:
		right = append(right, SuccessStyle.Render("signed in"))
	case s.UserCode != "":
		right = append(right, "code "+UserCodeStyle.Render(s.UserCode))
	default:
		right = append(right, SubtleStyle.Render("signed out"))
	}
	return Spread(left, strings.Join(right, "  "), m.width)
}

func (m Model) renderInput() string {
	style := InputBoxStyle
	if !m.snap.ControlsEnabled {
		style = InputDisabledStyle
	}
	content := m.input.View()
	if m.snap.FileName != "" {
		content += "\n" + SubtleStyle.Render("file: ./"+Truncate(m.snap.FileName, max(m.width-16, 8))+"  (ctrl+x to detach)")
	}
	return style.Width(max(m.width-4, 10)).Render(content)
}

func (m Model) renderStatus() string {
	var parts []string
	if m.snap.Copied {
		parts = append(parts, SuccessStyle.Render("✓ copied"))
	}
	if m.snap.Status != "" {
		parts = append(parts, StatusStyle.Render(m.snap.Status))
	}
	if m.notice != "" {
		parts = append(parts, WarningStyle.Render(m.notice))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(parts, "  "))
}
