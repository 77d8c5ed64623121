package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
)

// Admin question management. The quiz runtime only ever reads the
// active set; everything here is behind the admin role.

func ListQuestionsAdminHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := store.ListQuestions(r.Context(), true)
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

// POST /admin/questions (create) and PUT /admin/questions/{questionID}
// (update) share a body: question fields plus its full choice list.
func UpsertQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if id := chi.URLParam(r, "questionID"); id != "" {
			q.ID = id
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Text == "" {
			http.Error(w, "text required", 400)
			return
		}
		for i := range q.Choices {
			if q.Choices[i].ID == "" {
				q.Choices[i].ID = uuid.NewString()
			}
			q.Choices[i].QuestionID = q.ID
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(q)
	}
}

// PATCH /admin/questions/{questionID}/active {"active": false}
func SetQuestionActiveHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "questionID")
		var req struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		err := store.SetQuestionActive(r.Context(), id, req.Active)
		if errors.Is(err, quiz.ErrNotFound) {
			http.Error(w, "question not found", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "questionID")
		err := store.DeleteQuestion(r.Context(), id)
		if errors.Is(err, quiz.ErrNotFound) {
			http.Error(w, "question not found", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
