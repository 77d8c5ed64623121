package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authmw "github.com/abbosc/imajor-quiz-sub001/internal/auth/middleware"
	"github.com/abbosc/imajor-quiz-sub001/internal/events"
	"github.com/abbosc/imajor-quiz-sub001/internal/outbox"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
	"github.com/abbosc/imajor-quiz-sub001/internal/reconcile"
)

// GET /quiz/questions — the active question set, in order, for the quiz page.
func ListActiveQuestionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := store.ActiveQuestions(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if qs == nil {
			qs = []quiz.Question{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(qs)
	}
}

type submitResult struct {
	UniqueID   string `json:"unique_id"`
	TotalScore int    `json:"total_score"`
	MaxScore   int    `json:"max_score"`
	Percent    int    `json:"percent"`
	Replayed   bool   `json:"replayed,omitempty"`
}

// POST /quiz/submissions — finalize a completed quiz, guest or signed-in.
// The route is public (guests submit too), so the bearer token is parsed
// opportunistically rather than enforced. The optional session_token
// makes retries idempotent: a duplicate token resolves to the submission
// the first attempt created.
func SubmitQuizHandler(store quiz.Store, authSvc *authmw.AuthService, ev *events.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserName     string        `json:"user_name"`
			UserEmail    string        `json:"user_email"`
			SessionToken string        `json:"session_token"`
			Answers      []quiz.Answer `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if len(req.Answers) == 0 {
			http.Error(w, "answers required", 400)
			return
		}

		sub := quiz.Submission{
			ID:           uuid.NewString(),
			UniqueID:     uuid.NewString(),
			SessionToken: req.SessionToken,
			UserName:     req.UserName,
			UserEmail:    req.UserEmail,
			CreatedAt:    time.Now().Unix(),
		}
		// A signed-in identity overrides whatever the form carried.
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if claims, err := authSvc.Parse(strings.TrimPrefix(h, "Bearer ")); err == nil && claims != nil {
				sub.UserID = claims.Sub
				if claims.Email != "" {
					sub.UserEmail = claims.Email
				}
				if claims.Name != "" {
					sub.UserName = claims.Name
				}
			}
		}

		active, err := store.ActiveQuestions(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		sub.TotalScore, sub.MaxScore = quiz.Score(req.Answers, active)

		err = store.CreateSubmission(r.Context(), sub)
		if errors.Is(err, quiz.ErrDuplicateToken) {
			existing, lookupErr := store.GetSubmissionByToken(r.Context(), req.SessionToken)
			if lookupErr != nil {
				http.Error(w, lookupErr.Error(), 500)
				return
			}
			writeSubmitResult(w, existing, true)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		answers := make([]quiz.SubmissionAnswer, 0, len(req.Answers))
		for _, a := range req.Answers {
			answers = append(answers, quiz.SubmissionAnswer{
				SubmissionID: sub.ID,
				QuestionID:   a.QuestionID,
				ChoiceID:     a.ChoiceID,
				PointsEarned: a.Points,
			})
		}
		if err := store.InsertAnswers(r.Context(), sub.ID, answers); err != nil {
			// tolerated partial write; the orphan sweep surfaces it
			log.Printf("submit: submission %s created but answers failed: %v", sub.UniqueID, err)
			appendEvent(r, ev, events.TypeAnswersOrphaned, sub.UniqueID)
		}
		appendEvent(r, ev, events.TypeSubmissionCreated, sub.UniqueID)
		writeSubmitResult(w, sub, false)
	}
}

func writeSubmitResult(w http.ResponseWriter, sub quiz.Submission, replayed bool) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(submitResult{
		UniqueID:   sub.UniqueID,
		TotalScore: sub.TotalScore,
		MaxScore:   sub.MaxScore,
		Percent:    quiz.Percent(sub.TotalScore, sub.MaxScore),
		Replayed:   replayed,
	})
}

// GET /quiz/results/{uniqueID} — the result view, keyed by the
// external-facing correlation id.
func GetResultHandler(store quiz.Store) http.HandlerFunc {
	type out struct {
		quiz.Submission
		Percent int `json:"percent"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uniqueID")
		sub, err := store.GetSubmissionByUniqueID(r.Context(), id)
		if errors.Is(err, quiz.ErrNotFound) {
			http.Error(w, "result not found", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		sub.SessionToken = "" // internal key, not part of the result view
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out{Submission: sub, Percent: quiz.Percent(sub.TotalScore, sub.MaxScore)})
	}
}

// GET /me/submissions — the caller's own submissions, newest first.
// Guests see theirs too: guest tokens carry a stable subject, and guest
// submissions record it as user_id like any other.
func MySubmissionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := authmw.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		list, err := store.ListSubmissions(r.Context(), quiz.ListOpts{
			UserID: id.ID,
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if list == nil {
			list = []quiz.Submission{}
		}
		for i := range list {
			list[i].SessionToken = "" // internal key, not part of the view
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// POST /quiz/reconcile — replay a quiz that was completed before the
// user had an account. The body is the payload the client persisted at
// completion time; an empty body retries whatever is already queued for
// this user. Never a user-visible error for the duplicate-token case.
func ReconcileHandler(box outbox.Outbox, rec *reconcile.Reconciler) http.HandlerFunc {
	type out struct {
		Status   string `json:"status"` // submitted|replayed|none|abandoned
		UniqueID string `json:"unique_id,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := authmw.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read body", 400)
			return
		}
		if len(body) > 0 && string(body) != "null" && string(body) != "{}" {
			pending, err := quiz.DecodePending(body)
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			e := outbox.Entry{Token: pending.SessionToken, Payload: body, SavedAt: pending.SavedAt}
			if err := box.Enqueue(r.Context(), id.ID, e); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
		}

		res, err := rec.Run(r.Context(), reconcile.Identity{ID: id.ID, Email: id.Email, Name: id.Name})
		w.Header().Set("Content-Type", "application/json")
		switch {
		case errors.Is(err, reconcile.ErrAbandoned):
			// the caller falls back to the plain dashboard
			_ = json.NewEncoder(w).Encode(out{Status: "abandoned"})
		case err != nil:
			http.Error(w, err.Error(), 500)
		case res.Skipped:
			_ = json.NewEncoder(w).Encode(out{Status: "none"})
		case res.Replayed:
			_ = json.NewEncoder(w).Encode(out{Status: "replayed", UniqueID: res.UniqueID})
		default:
			_ = json.NewEncoder(w).Encode(out{Status: "submitted", UniqueID: res.UniqueID})
		}
	}
}

func appendEvent(r *http.Request, ev *events.Log, typ, key string) {
	if ev == nil {
		return
	}
	if err := ev.Append(r.Context(), events.Event{Type: typ, Key: key, DataJSON: "{}"}); err != nil {
		log.Printf("event append: %v", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
