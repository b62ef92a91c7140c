// Package view holds the presentation state shared by the terminal and web
// front ends. Mutations come from the app layer; front ends read Snapshots
// and redraw when notified.
package view

import (
	"sync"
	"time"

	"github.com/ghc-desk/ghc/internal/render"
)

// Fields named in change notifications.
const (
	FieldControls   = "controls"
	FieldOutput     = "output"
	FieldCopy       = "copy"
	FieldStatus     = "status"
	FieldAuth       = "auth"
	FieldFile       = "file"
	FieldCapability = "capability"
	FieldHistory    = "history"
	FieldModel      = "model"
)

// OutputKind tells front ends how to present the output area.
type OutputKind string

const (
	OutputNone        OutputKind = "none"
	OutputPlaceholder OutputKind = "placeholder"
	OutputRendered    OutputKind = "rendered"
	OutputError       OutputKind = "error"
)

// Snapshot is an immutable copy of the view state.
type Snapshot struct {
	ControlsEnabled bool                 `json:"controls_enabled"`
	Running         bool                 `json:"running"`
	Model           string               `json:"model"`
	OutputKind      OutputKind           `json:"output_kind"`
	Output          render.SanitizedHTML `json:"output"`
	OutputText      string               `json:"output_text"`
	CopyVisible     bool                 `json:"copy_visible"`
	Copied          bool                 `json:"copied"`
	Status          string               `json:"status"`
	Authenticated   bool                 `json:"authenticated"`
	AuthLabel       string               `json:"auth_label"`
	TokenTail       string               `json:"token_tail,omitempty"`
	UserCode        string               `json:"user_code,omitempty"`
	VerificationURL string               `json:"verification_url,omitempty"`
	FileName        string               `json:"file_name,omitempty"`
	FilePath        string               `json:"file_path,omitempty"`
	CapabilityLabel string               `json:"capability_label"`
	InstallVisible  bool                 `json:"install_visible"`
	Installing      bool                 `json:"installing"`
	ReloadVisible   bool                 `json:"reload_visible"`
	HistoryVisible  bool                 `json:"history_visible"`
}

// State is the mutable view-model. All methods are safe for concurrent use.
// Notify is called outside the lock after every change.
type State struct {
	mu   sync.Mutex
	snap Snapshot

	status       Slot
	copyFeedback Slot

	notify func(field string)
}

// NewState returns the initial view: controls disabled until the first
// token reconciliation, nothing shown.
func NewState(model string, notify func(field string)) *State {
	if notify == nil {
		notify = func(string) {}
	}
	return &State{
		snap: Snapshot{
			Model:           model,
			OutputKind:      OutputNone,
			AuthLabel:       "Login",
			CapabilityLabel: "copilot",
		},
		notify: notify,
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *State) update(field string, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.mu.Unlock()
	s.notify(field)
}

// SetControlsEnabled enables or disables the prompt, model selector,
// file picker and submit controls.
func (s *State) SetControlsEnabled(enabled bool) {
	s.update(FieldControls, func(v *Snapshot) { v.ControlsEnabled = enabled })
}

// SetModel records the selected model.
func (s *State) SetModel(model string) {
	s.update(FieldModel, func(v *Snapshot) { v.Model = model })
}

// BeginRun disables controls, shows the running placeholder and hides the
// copy affordance.
func (s *State) BeginRun(placeholder string) {
	s.copyFeedback.Cancel()
	s.update(FieldOutput, func(v *Snapshot) {
		v.Running = true
		v.ControlsEnabled = false
		v.OutputKind = OutputPlaceholder
		v.Output = ""
		v.OutputText = placeholder
		v.CopyVisible = false
		v.Copied = false
	})
}

// ShowRendered displays rendered output with the copy affordance.
func (s *State) ShowRendered(html render.SanitizedHTML, raw string) {
	s.update(FieldOutput, func(v *Snapshot) {
		v.OutputKind = OutputRendered
		v.Output = html
		v.OutputText = raw
		v.CopyVisible = true
	})
}

// ClearOutput empties the output area and hides the copy affordance.
func (s *State) ClearOutput() {
	s.update(FieldOutput, func(v *Snapshot) {
		v.OutputKind = OutputNone
		v.Output = ""
		v.OutputText = ""
		v.CopyVisible = false
	})
}

// ShowError displays msg as plain text in the output area.
func (s *State) ShowError(msg string) {
	s.update(FieldOutput, func(v *Snapshot) {
		v.OutputKind = OutputError
		v.Output = ""
		v.OutputText = msg
		v.CopyVisible = false
	})
}

// EndRun clears the running flag and sets controls per hasToken.
func (s *State) EndRun(hasToken bool) {
	s.update(FieldControls, func(v *Snapshot) {
		v.Running = false
		v.ControlsEnabled = hasToken
	})
}

// SetStatus shows msg until the next status change.
func (s *State) SetStatus(msg string) {
	s.mu.Lock()
	s.status.Cancel()
	s.snap.Status = msg
	s.mu.Unlock()
	s.notify(FieldStatus)
}

// FlashStatus shows msg and clears it after ttl unless another status
// message replaced it in the meantime.
func (s *State) FlashStatus(msg string, ttl time.Duration) {
	s.mu.Lock()
	s.snap.Status = msg
	s.status.Schedule(ttl, func(gen uint64) {
		s.mu.Lock()
		if !s.status.Current(gen) {
			s.mu.Unlock()
			return
		}
		s.snap.Status = ""
		s.mu.Unlock()
		s.notify(FieldStatus)
	})
	s.mu.Unlock()
	s.notify(FieldStatus)
}

// MarkCopied turns on the copy feedback for ttl.
func (s *State) MarkCopied(ttl time.Duration) {
	s.mu.Lock()
	s.snap.Copied = true
	s.copyFeedback.Schedule(ttl, func(gen uint64) {
		s.mu.Lock()
		if !s.copyFeedback.Current(gen) {
			s.mu.Unlock()
			return
		}
		s.snap.Copied = false
		s.mu.Unlock()
		s.notify(FieldCopy)
	})
	s.mu.Unlock()
	s.notify(FieldCopy)
}

// AuthView is the auth-related part of the view.
type AuthView struct {
	Authenticated   bool
	TokenTail       string
	UserCode        string
	VerificationURL string
}

// SetAuth updates the auth button and device-code display.
func (s *State) SetAuth(a AuthView) {
	s.update(FieldAuth, func(v *Snapshot) {
		v.Authenticated = a.Authenticated
		v.TokenTail = a.TokenTail
		v.UserCode = a.UserCode
		v.VerificationURL = a.VerificationURL
		if a.Authenticated {
			v.AuthLabel = "Logout"
		} else {
			v.AuthLabel = "Login"
		}
	})
}

// SetFile shows or clears the selected context file.
func (s *State) SetFile(path, name string) {
	s.update(FieldFile, func(v *Snapshot) {
		v.FilePath = path
		v.FileName = name
	})
}

// SetCapability updates the CLI version label and install button.
func (s *State) SetCapability(label string, installVisible bool) {
	s.update(FieldCapability, func(v *Snapshot) {
		v.CapabilityLabel = label
		v.InstallVisible = installVisible
	})
}

// SetInstalling disables the install button while an install runs.
func (s *State) SetInstalling(installing bool) {
	s.update(FieldCapability, func(v *Snapshot) { v.Installing = installing })
}

// SetReloadVisible shows or hides the reload hint.
func (s *State) SetReloadVisible(visible bool) {
	s.update(FieldCapability, func(v *Snapshot) { v.ReloadVisible = visible })
}

// SetHistoryVisible mirrors the history panel visibility.
func (s *State) SetHistoryVisible(visible bool) {
	s.update(FieldHistory, func(v *Snapshot) { v.HistoryVisible = visible })
}

// HistoryChanged notifies front ends that an entry was appended.
func (s *State) HistoryChanged() {
	s.notify(FieldHistory)
}

// Close stops pending timers.
func (s *State) Close() {
	s.status.Cancel()
	s.copyFeedback.Cancel()
}
