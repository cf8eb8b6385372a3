package websocket

// ─── Events (Server → Monitor) ──────────────────────────────────────

type Event string

const (
	EventParticipantJoined Event = "participant_joined"
	EventTick              Event = "tick"
	EventSessionExpired    Event = "session_expired"
)

// ParticipantJoinedEvent announces a participant to session monitors.
// It is published to the session's Redis channel at join time and
// relayed to every connected monitor.
type ParticipantJoinedEvent struct {
	Event            Event  `json:"event"`
	DisplayName      string `json:"display_name"`
	ParticipantCount int64  `json:"participant_count"`
}

// TickEvent is a periodic snapshot of session state.
type TickEvent struct {
	Event            Event `json:"event"`
	ParticipantCount int64 `json:"participant_count"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SessionExpiredEvent signals that the session window has closed.
type SessionExpiredEvent struct {
	Event Event `json:"event"`
}
