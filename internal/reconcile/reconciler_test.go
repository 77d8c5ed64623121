package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/abbosc/imajor-quiz-sub001/internal/outbox"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
	"github.com/abbosc/imajor-quiz-sub001/internal/reconcile"
)

/* ---- In-memory fake satisfying reconcile.Store ---- */

type fakeStore struct {
	active      []quiz.Question
	byToken     map[string]quiz.Submission
	answers     map[string][]quiz.SubmissionAnswer
	failCreate  error
	failAnswers error
	creates     int
}

func newFakeStore(active ...quiz.Question) *fakeStore {
	return &fakeStore{
		active:  active,
		byToken: map[string]quiz.Submission{},
		answers: map[string][]quiz.SubmissionAnswer{},
	}
}

func (s *fakeStore) ActiveQuestions(context.Context) ([]quiz.Question, error) {
	return s.active, nil
}

func (s *fakeStore) CreateSubmission(_ context.Context, sub quiz.Submission) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	if _, dup := s.byToken[sub.SessionToken]; dup {
		return quiz.ErrDuplicateToken
	}
	s.byToken[sub.SessionToken] = sub
	s.creates++
	return nil
}

func (s *fakeStore) InsertAnswers(_ context.Context, id string, answers []quiz.SubmissionAnswer) error {
	if s.failAnswers != nil {
		return s.failAnswers
	}
	s.answers[id] = answers
	return nil
}

func (s *fakeStore) GetSubmissionByToken(_ context.Context, token string) (quiz.Submission, error) {
	sub, ok := s.byToken[token]
	if !ok {
		return quiz.Submission{}, quiz.ErrNotFound
	}
	return sub, nil
}

/* ---- helpers ---- */

func activeSet() []quiz.Question {
	return []quiz.Question{
		{ID: "q1", Active: true, Choices: []quiz.Choice{{ID: "q1a", Points: 0}, {ID: "q1b", Points: 10}}},
		{ID: "q2", Active: true, Choices: []quiz.Choice{{ID: "q2a", Points: 0}, {ID: "q2b", Points: 5}, {ID: "q2c", Points: 15}}},
	}
}

func enqueuePending(t *testing.T, box outbox.Outbox, owner, token string) {
	t.Helper()
	payload, err := quiz.EncodePending(quiz.Pending{
		SessionToken: token,
		Answers: []quiz.Answer{
			{QuestionID: "q1", ChoiceID: "q1b", Points: 10},
			{QuestionID: "q2", ChoiceID: "q2b", Points: 5},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := box.Enqueue(context.Background(), owner, outbox.Entry{Token: token, Payload: payload}); err != nil {
		t.Fatal(err)
	}
}

var alice = reconcile.Identity{ID: "user-alice", Email: "alice@example.com", Name: "Alice"}

/* ---- tests ---- */

func TestRun_NothingPending(t *testing.T) {
	r := reconcile.New(outbox.NewMemOutbox(), newFakeStore(activeSet()...), nil)
	res, err := r.Run(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatalf("want Skipped, got %+v", res)
	}
}

func TestRun_CreatesSubmissionAndAnswers(t *testing.T) {
	ctx := context.Background()
	box := outbox.NewMemOutbox()
	store := newFakeStore(activeSet()...)
	enqueuePending(t, box, alice.ID, "tok-1")

	res, err := reconcile.New(box, store, nil).Run(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if res.UniqueID == "" || res.Replayed || res.Skipped {
		t.Fatalf("unexpected result: %+v", res)
	}

	sub := store.byToken["tok-1"]
	if sub.TotalScore != 15 || sub.MaxScore != 25 {
		t.Fatalf("score = %d/%d, want 15/25", sub.TotalScore, sub.MaxScore)
	}
	if sub.UserID != alice.ID || sub.UserEmail != alice.Email {
		t.Fatalf("submission not attached to identity: %+v", sub)
	}
	if len(store.answers[sub.ID]) != 2 {
		t.Fatalf("want 2 answer rows, got %d", len(store.answers[sub.ID]))
	}
	if _, ok, _ := box.Peek(ctx, alice.ID); ok {
		t.Fatal("outbox must be acked after success")
	}
}

func TestRun_IdempotentOnDuplicateToken(t *testing.T) {
	ctx := context.Background()
	box := outbox.NewMemOutbox()
	store := newFakeStore(activeSet()...)

	enqueuePending(t, box, alice.ID, "tok-1")
	first, err := reconcile.New(box, store, nil).Run(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}

	// Same deferred submission lands again (double mount / stale tab).
	enqueuePending(t, box, alice.ID, "tok-1")
	second, err := reconcile.New(box, store, nil).Run(ctx, alice)
	if err != nil {
		t.Fatalf("idempotent path must not surface an error: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("want Replayed, got %+v", second)
	}
	if second.UniqueID != first.UniqueID {
		t.Fatalf("second run resolved %q, want %q", second.UniqueID, first.UniqueID)
	}
	if store.creates != 1 {
		t.Fatalf("exactly one submission row expected, got %d", store.creates)
	}
	if _, ok, _ := box.Peek(ctx, alice.ID); ok {
		t.Fatal("outbox must be acked on the idempotent path too")
	}
}

func TestRun_MaxScoreRecomputedFromCurrentActiveSet(t *testing.T) {
	ctx := context.Background()
	box := outbox.NewMemOutbox()
	// q2 was deactivated between answering and reconciling.
	store := newFakeStore(activeSet()[0])
	enqueuePending(t, box, alice.ID, "tok-1")

	if _, err := reconcile.New(box, store, nil).Run(ctx, alice); err != nil {
		t.Fatal(err)
	}
	sub := store.byToken["tok-1"]
	// Answers are never invalidated retroactively, but max reflects
	// only what is active now.
	if sub.TotalScore != 15 || sub.MaxScore != 10 {
		t.Fatalf("score = %d/%d, want 15/10", sub.TotalScore, sub.MaxScore)
	}
}

func TestRun_CorruptPayloadAbandoned(t *testing.T) {
	ctx := context.Background()
	box := outbox.NewMemOutbox()
	store := newFakeStore(activeSet()...)
	_ = box.Enqueue(ctx, alice.ID, outbox.Entry{Token: "tok-bad", Payload: []byte(`{broken`)})

	_, err := reconcile.New(box, store, nil).Run(ctx, alice)
	if !errors.Is(err, reconcile.ErrAbandoned) {
		t.Fatalf("want ErrAbandoned, got %v", err)
	}
	if _, ok, _ := box.Peek(ctx, alice.ID); ok {
		t.Fatal("broken payload must be cleared so the next login is not wedged")
	}
	if store.creates != 0 {
		t.Fatal("no submission should exist for a broken payload")
	}
}

func TestRun_DatastoreFailureAbandons(t *testing.T) {
	ctx := context.Background()
	box := outbox.NewMemOutbox()
	store := newFakeStore(activeSet()...)
	store.failCreate = errors.New("datastore down")
	enqueuePending(t, box, alice.ID, "tok-1")

	_, err := reconcile.New(box, store, nil).Run(ctx, alice)
	if !errors.Is(err, reconcile.ErrAbandoned) {
		t.Fatalf("want ErrAbandoned, got %v", err)
	}
	if _, ok, _ := box.Peek(ctx, alice.ID); ok {
		t.Fatal("entry must be cleared after permanent failure")
	}
}

func TestRun_AnswerInsertFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	box := outbox.NewMemOutbox()
	store := newFakeStore(activeSet()...)
	store.failAnswers = errors.New("second write failed")
	enqueuePending(t, box, alice.ID, "tok-1")

	res, err := reconcile.New(box, store, nil).Run(ctx, alice)
	if err != nil {
		t.Fatalf("partial write is tolerated, not an error: %v", err)
	}
	if res.UniqueID == "" {
		t.Fatalf("result must still key the created submission: %+v", res)
	}
	if store.creates != 1 {
		t.Fatal("submission row should exist despite the failed answers")
	}
	if _, ok, _ := box.Peek(ctx, alice.ID); ok {
		t.Fatal("outbox must still be acked")
	}
}
