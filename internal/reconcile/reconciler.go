// Package reconcile replays a deferred quiz submission once an
// authenticated identity exists. It runs on the first authenticated
// visit after login, signup, or an OAuth callback landing on the
// dashboard.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/abbosc/imajor-quiz-sub001/internal/events"
	"github.com/abbosc/imajor-quiz-sub001/internal/outbox"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
)

// ErrAbandoned reports that the pending quiz could not be submitted and
// was dropped so the next login does not retry a broken payload. The
// caller falls back to the generic dashboard view.
var ErrAbandoned = errors.New("pending quiz abandoned")

type Identity struct {
	ID    string
	Email string
	Name  string
}

type Result struct {
	// UniqueID keys the result view of the submission this pending
	// quiz resolved to, whether created now or by an earlier attempt.
	UniqueID string
	Replayed bool // an earlier reconciliation already created it
	Skipped  bool // nothing was pending
}

// Store is the slice of the quiz datastore the reconciler needs.
// *quiz.SQLStore satisfies it.
type Store interface {
	ActiveQuestions(ctx context.Context) ([]quiz.Question, error)
	CreateSubmission(ctx context.Context, s quiz.Submission) error
	InsertAnswers(ctx context.Context, submissionID string, answers []quiz.SubmissionAnswer) error
	GetSubmissionByToken(ctx context.Context, token string) (quiz.Submission, error)
}

type Reconciler struct {
	box    outbox.Outbox
	store  Store
	events *events.Log // optional
}

func New(box outbox.Outbox, store Store, ev *events.Log) *Reconciler {
	return &Reconciler{box: box, store: store, events: ev}
}

// Run consumes the caller's pending quiz, if any. It is safe to invoke
// twice for the same deferred submission: the session token's uniqueness
// constraint collapses the second run onto the first one's submission.
func (r *Reconciler) Run(ctx context.Context, user Identity) (Result, error) {
	entry, ok, err := r.box.Peek(ctx, user.ID)
	if err != nil {
		// Could not read the outbox at all; leave the entry for the
		// next visit rather than guessing.
		return Result{}, err
	}
	if !ok {
		return Result{Skipped: true}, nil
	}

	pending, err := quiz.DecodePending(entry.Payload)
	if err != nil {
		return r.abandon(ctx, user, "", err)
	}

	// Never trust a cached max_score: the rubric is whatever the
	// active question set is right now.
	active, err := r.store.ActiveQuestions(ctx)
	if err != nil {
		return r.abandon(ctx, user, pending.SessionToken, err)
	}
	total, max := quiz.Score(pending.Answers, active)

	sub := quiz.Submission{
		ID:           uuid.NewString(),
		UniqueID:     uuid.NewString(),
		SessionToken: pending.SessionToken,
		UserName:     user.Name,
		UserEmail:    user.Email,
		UserID:       user.ID,
		TotalScore:   total,
		MaxScore:     max,
		CreatedAt:    time.Now().Unix(),
	}

	err = r.store.CreateSubmission(ctx, sub)
	if errors.Is(err, quiz.ErrDuplicateToken) {
		// A previous attempt (double effect run, double mount) already
		// made it through. Resolve to that submission; not an error.
		existing, lookupErr := r.store.GetSubmissionByToken(ctx, pending.SessionToken)
		if lookupErr != nil {
			return r.abandon(ctx, user, pending.SessionToken, lookupErr)
		}
		_ = r.box.Ack(ctx, user.ID)
		r.append(ctx, events.TypeReconcileReplayed, existing.UniqueID, "")
		return Result{UniqueID: existing.UniqueID, Replayed: true}, nil
	}
	if err != nil {
		return r.abandon(ctx, user, pending.SessionToken, err)
	}

	answers := make([]quiz.SubmissionAnswer, 0, len(pending.Answers))
	for _, a := range pending.Answers {
		answers = append(answers, quiz.SubmissionAnswer{
			SubmissionID: sub.ID,
			QuestionID:   a.QuestionID,
			ChoiceID:     a.ChoiceID,
			PointsEarned: a.Points,
		})
	}
	if err := r.store.InsertAnswers(ctx, sub.ID, answers); err != nil {
		// The submission row exists but its detail rows do not. This
		// inconsistency is tolerated, logged, and left for the orphan
		// sweep; the scored result itself is intact.
		log.Printf("reconcile: submission %s created but answers failed: %v", sub.UniqueID, err)
		r.append(ctx, events.TypeAnswersOrphaned, sub.UniqueID, "")
	}

	_ = r.box.Ack(ctx, user.ID)
	r.append(ctx, events.TypeSubmissionCreated, sub.UniqueID, "")
	return Result{UniqueID: sub.UniqueID}, nil
}

// abandon clears the pending entry so a permanently broken payload
// cannot wedge every future login, then reports the failure.
func (r *Reconciler) abandon(ctx context.Context, user Identity, token string, cause error) (Result, error) {
	if ackErr := r.box.Ack(ctx, user.ID); ackErr != nil {
		log.Printf("reconcile: ack after failure: %v", ackErr)
	}
	log.Printf("reconcile: abandoning pending quiz for %s: %v", user.ID, cause)
	r.append(ctx, events.TypeReconcileFailed, token, cause.Error())
	return Result{}, fmt.Errorf("%w: %v", ErrAbandoned, cause)
}

func (r *Reconciler) append(ctx context.Context, typ, key, detail string) {
	if r.events == nil {
		return
	}
	data := "{}"
	if detail != "" {
		b, err := json.Marshal(map[string]string{"error": detail})
		if err == nil {
			data = string(b)
		}
	}
	if err := r.events.Append(ctx, events.Event{Type: typ, Key: key, DataJSON: data}); err != nil {
		log.Printf("reconcile: event append: %v", err)
	}
}
