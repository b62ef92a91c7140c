package events

// Session event type constants.
const (
	TypeLoginComplete    = "login_complete"
	TypeStateChanged     = "state_changed"
	TypeHistoryAppended  = "history_appended"
	TypeCapabilityUpdate = "capability_updated"
	TypeTokenChanged     = "token_changed"
)

// LoginCompleteEvent is pushed by the backend once a device flow resolves.
type LoginCompleteEvent struct {
	BaseEvent
	Status  string `json:"status"` // "ok" or "error"
	Message string `json:"message"`
}

// NewLoginCompleteEvent creates a new login completion event.
func NewLoginCompleteEvent(sessionID, status, message string) LoginCompleteEvent {
	return LoginCompleteEvent{
		BaseEvent: NewBaseEvent(TypeLoginComplete, sessionID),
		Status:    status,
		Message:   message,
	}
}

// StateChangedEvent signals that a part of the view state changed.
// Field names the changed part ("controls", "output", "status", ...).
type StateChangedEvent struct {
	BaseEvent
	Field string `json:"field"`
}

// NewStateChangedEvent creates a new state change event.
func NewStateChangedEvent(sessionID, field string) StateChangedEvent {
	return StateChangedEvent{
		BaseEvent: NewBaseEvent(TypeStateChanged, sessionID),
		Field:     field,
	}
}

// HistoryAppendedEvent is emitted after an entry is appended to the history log.
type HistoryAppendedEvent struct {
	BaseEvent
	EntryID string `json:"entry_id"`
	Label   string `json:"label"`
	Index   int    `json:"index"`
}

// NewHistoryAppendedEvent creates a new history append event.
func NewHistoryAppendedEvent(sessionID, entryID, label string, index int) HistoryAppendedEvent {
	return HistoryAppendedEvent{
		BaseEvent: NewBaseEvent(TypeHistoryAppended, sessionID),
		EntryID:   entryID,
		Label:     label,
		Index:     index,
	}
}

// CapabilityUpdatedEvent carries the result of a capability probe.
type CapabilityUpdatedEvent struct {
	BaseEvent
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
}

// NewCapabilityUpdatedEvent creates a new capability event.
func NewCapabilityUpdatedEvent(sessionID string, installed bool, version string) CapabilityUpdatedEvent {
	return CapabilityUpdatedEvent{
		BaseEvent: NewBaseEvent(TypeCapabilityUpdate, sessionID),
		Installed: installed,
		Version:   version,
	}
}

// TokenChangedEvent is emitted when the credential file changes on disk.
type TokenChangedEvent struct {
	BaseEvent
	Path string `json:"path"`
}

// NewTokenChangedEvent creates a new token file change event.
func NewTokenChangedEvent(sessionID, path string) TokenChangedEvent {
	return TokenChangedEvent{
		BaseEvent: NewBaseEvent(TypeTokenChanged, sessionID),
		Path:      path,
	}
}
