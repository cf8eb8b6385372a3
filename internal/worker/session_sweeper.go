package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/service"
)

// SessionSweeper deactivates sessions whose windows have closed.
// The join flow rejects stale sessions on the spot by comparing
// end_time against the wall clock, so the sweep only has to keep
// listings honest and release join codes back into circulation.
type SessionSweeper struct {
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewSessionSweeper creates a new SessionSweeper.
func NewSessionSweeper(sessions *service.SessionService, log zerolog.Logger) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		log:      log.With().Str("component", "session_sweeper").Logger(),
	}
}

// Run executes a single sweep. Scheduled via cron.
func (w *SessionSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := w.sessions.DeactivateExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed")
		return
	}
	if swept > 0 {
		w.log.Info().Int64("count", swept).Msg("Deactivated expired sessions")
	}
}
