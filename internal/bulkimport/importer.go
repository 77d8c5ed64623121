package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/abbosc/imajor-quiz-sub001/internal/catalog"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
)

// QuestionStore is the batch slice of the quiz store the importer
// needs. *quiz.SQLStore satisfies it.
type QuestionStore interface {
	InsertQuestions(ctx context.Context, qs []quiz.Question) error
	InsertChoices(ctx context.Context, cs []quiz.Choice) error
	DeleteQuestionsByID(ctx context.Context, ids []string) error
}

// CatalogStore covers majors/careers/tags. *catalog.SQLStore satisfies it.
type CatalogStore interface {
	PutMajor(ctx context.Context, m catalog.Major) error
	GetMajorBySlug(ctx context.Context, slug string) (catalog.Major, error)
	PutCareer(ctx context.Context, c catalog.Career) error
}

type Importer struct {
	validate  *validator.Validate
	questions QuestionStore
	catalog   CatalogStore
}

func New(questions QuestionStore, cat CatalogStore) *Importer {
	return &Importer{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		questions: questions,
		catalog:   cat,
	}
}

// ImportQuestions validates every row, batch-inserts the questions that
// passed, then batch-inserts their choices. If the choice batch fails
// after the question batch landed, the inserted questions are deleted
// by id so the import never leaves choice-less questions behind.
func (im *Importer) ImportQuestions(ctx context.Context, rows []QuestionRow) (Report, error) {
	rep := Report{Total: len(rows)}

	var qs []quiz.Question
	var cs []quiz.Choice
	for i, row := range rows {
		if msg, ok := im.check(row); !ok {
			rep.Errors = append(rep.Errors, RowError{Row: i + 1, Message: msg})
			continue
		}
		q := quiz.Question{
			ID:          uuid.NewString(),
			Text:        row.Text,
			Explanation: row.Explanation,
			OrderIndex:  row.Order,
			Active:      row.Active == nil || *row.Active,
		}
		for j, c := range row.Choices {
			order := c.Order
			if order == 0 {
				order = j + 1
			}
			cs = append(cs, quiz.Choice{
				ID:         uuid.NewString(),
				QuestionID: q.ID,
				Text:       c.Text,
				Points:     *c.Points,
				OrderIndex: order,
			})
		}
		qs = append(qs, q)
	}

	if len(qs) == 0 {
		return rep, nil
	}
	if err := im.questions.InsertQuestions(ctx, qs); err != nil {
		return rep, err
	}
	if err := im.questions.InsertChoices(ctx, cs); err != nil {
		ids := make([]string, len(qs))
		for i, q := range qs {
			ids[i] = q.ID
		}
		if delErr := im.questions.DeleteQuestionsByID(ctx, ids); delErr != nil {
			log.Printf("bulkimport: compensating delete failed, %d orphan questions remain: %v", len(ids), delErr)
		}
		return rep, fmt.Errorf("choice batch failed: %w", err)
	}
	rep.Imported = len(qs)
	return rep, nil
}

func (im *Importer) ImportMajors(ctx context.Context, rows []MajorRow) (Report, error) {
	rep := Report{Total: len(rows)}
	for i, row := range rows {
		if msg, ok := im.check(row); !ok {
			rep.Errors = append(rep.Errors, RowError{Row: i + 1, Message: msg})
			continue
		}
		if err := im.catalog.PutMajor(ctx, catalog.Major{
			Slug:        strings.TrimSpace(row.Slug),
			Name:        row.Name,
			Description: row.Description,
		}); err != nil {
			return rep, err
		}
		rep.Imported++
	}
	return rep, nil
}

func (im *Importer) ImportCareers(ctx context.Context, rows []CareerRow) (Report, error) {
	rep := Report{Total: len(rows)}
	for i, row := range rows {
		if msg, ok := im.check(row); !ok {
			rep.Errors = append(rep.Errors, RowError{Row: i + 1, Message: msg})
			continue
		}
		var majorID string
		if row.MajorSlug != "" {
			m, err := im.catalog.GetMajorBySlug(ctx, row.MajorSlug)
			if errors.Is(err, catalog.ErrNotFound) {
				rep.Errors = append(rep.Errors, RowError{Row: i + 1,
					Message: fmt.Sprintf("unknown major slug %q", row.MajorSlug)})
				continue
			}
			if err != nil {
				return rep, err
			}
			majorID = m.ID
		}
		if err := im.catalog.PutCareer(ctx, catalog.Career{
			Slug:        strings.TrimSpace(row.Slug),
			Title:       row.Title,
			Description: row.Description,
			MajorID:     majorID,
			Tags:        row.Tags,
		}); err != nil {
			return rep, err
		}
		rep.Imported++
	}
	return rep, nil
}

// check validates one row and flattens the error into a single message.
func (im *Importer) check(row any) (string, bool) {
	err := im.validate.Struct(row)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				parts = append(parts, fmt.Sprintf("missing %s", strings.ToLower(fe.Field())))
			case "min":
				parts = append(parts, fmt.Sprintf("%s needs at least %s entries", strings.ToLower(fe.Field()), fe.Param()))
			default:
				parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
		}
		return strings.Join(parts, "; "), false
	}
	return err.Error(), false
}
