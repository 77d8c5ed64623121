package quiz

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateToken marks a unique violation on the session token:
	// a previous reconciliation attempt already created the submission.
	ErrDuplicateToken = errors.New("duplicate session token")
)

type ListOpts struct {
	Email     string // filter by submitter email
	UserID    string // filter by owning user
	GuestOnly bool   // only submissions with no user_id
	Limit     int
	Offset    int
}

type Store interface {
	// Question catalog
	PutQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	SetQuestionActive(ctx context.Context, id string, active bool) error
	// ActiveQuestions returns the currently active set ordered by
	// order_index, choices included. This is what max_score derives from.
	ActiveQuestions(ctx context.Context) ([]Question, error)
	ListQuestions(ctx context.Context, includeInactive bool) ([]Question, error)

	// Submissions
	CreateSubmission(ctx context.Context, s Submission) error
	InsertAnswers(ctx context.Context, submissionID string, answers []SubmissionAnswer) error
	GetSubmissionByUniqueID(ctx context.Context, uniqueID string) (Submission, error)
	GetSubmissionByToken(ctx context.Context, token string) (Submission, error)
	ListSubmissions(ctx context.Context, opts ListOpts) ([]Submission, error)
	// SweepOrphans lists submissions that have no answer rows: the
	// tolerated partial-write case, surfaced for operators rather than
	// auto-repaired.
	SweepOrphans(ctx context.Context) ([]Submission, error)
}
