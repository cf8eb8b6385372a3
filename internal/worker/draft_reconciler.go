package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/repository"
)

// abandonedAfter is how long a generated quiz may sit in draft before
// the reconciler treats it as a failed pipeline leftover.
const abandonedAfter = time.Hour

// DraftReconciler removes generated quizzes that never reached the
// published state. The generation pipeline has no synchronous rollback:
// a failure after draft creation leaves the draft (and any questions)
// behind, and this job is the cleanup path. Manually authored drafts
// are never touched.
type DraftReconciler struct {
	quizzes *repository.QuizRepository
	log     zerolog.Logger
}

// NewDraftReconciler creates a new DraftReconciler.
func NewDraftReconciler(quizzes *repository.QuizRepository, log zerolog.Logger) *DraftReconciler {
	return &DraftReconciler{
		quizzes: quizzes,
		log:     log.With().Str("component", "draft_reconciler").Logger(),
	}
}

// Run executes a single reconcile pass. Scheduled via cron.
func (w *DraftReconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-abandonedAfter)
	removed, err := w.quizzes.DeleteAbandonedGenerated(ctx, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("Reconcile failed")
		return
	}
	if removed > 0 {
		w.log.Info().Int64("count", removed).Msg("Removed abandoned generated drafts")
	}
}
