package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/abbosc/imajor-quiz-sub001/internal/events"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
)

// GET /admin/submissions?email=...&guests=1&limit=50&offset=0
func ListSubmissionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := quiz.ListOpts{
			Email:     strings.TrimSpace(r.URL.Query().Get("email")),
			GuestOnly: r.URL.Query().Get("guests") == "1",
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		list, err := store.ListSubmissions(r.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if list == nil {
			list = []quiz.Submission{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// GET /admin/submissions/orphans — submissions whose answer rows never
// landed. Surfaced for manual reconciliation, never auto-repaired.
func OrphanSubmissionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.SweepOrphans(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if list == nil {
			list = []quiz.Submission{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

// GET /admin/events?limit=100
func RecentEventsHandler(ev *events.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ev.Recent(r.Context(), parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if list == nil {
			list = []events.Event{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}
