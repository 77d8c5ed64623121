package http

import (
	"encoding/json"
	"net/http"

	"github.com/abbosc/imajor-quiz-sub001/internal/bulkimport"
)

// Bulk content import. Each endpoint takes a JSON array, validates
// per-row, and answers {imported, total, errors[]} — bad rows are
// skipped, not fatal to the batch.

func ImportQuestionsHandler(im *bulkimport.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []bulkimport.QuestionRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", 400)
			return
		}
		rep, err := im.ImportQuestions(r.Context(), rows)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeReport(w, rep)
	}
}

func ImportMajorsHandler(im *bulkimport.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []bulkimport.MajorRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", 400)
			return
		}
		rep, err := im.ImportMajors(r.Context(), rows)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeReport(w, rep)
	}
}

func ImportCareersHandler(im *bulkimport.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []bulkimport.CareerRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", 400)
			return
		}
		rep, err := im.ImportCareers(r.Context(), rows)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeReport(w, rep)
	}
}

func writeReport(w http.ResponseWriter, rep bulkimport.Report) {
	if rep.Errors == nil {
		rep.Errors = []bulkimport.RowError{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rep)
}
