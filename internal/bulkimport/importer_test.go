package bulkimport

import (
	"context"
	"errors"
	"testing"

	"github.com/abbosc/imajor-quiz-sub001/internal/catalog"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
)

/* ---- fakes ---- */

type fakeQuestionStore struct {
	questions   []quiz.Question
	choices     []quiz.Choice
	deleted     []string
	failChoices error
}

func (f *fakeQuestionStore) InsertQuestions(_ context.Context, qs []quiz.Question) error {
	f.questions = append(f.questions, qs...)
	return nil
}

func (f *fakeQuestionStore) InsertChoices(_ context.Context, cs []quiz.Choice) error {
	if f.failChoices != nil {
		return f.failChoices
	}
	f.choices = append(f.choices, cs...)
	return nil
}

func (f *fakeQuestionStore) DeleteQuestionsByID(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeCatalog struct {
	majors  map[string]catalog.Major
	careers []catalog.Career
}

func newFakeCatalog(slugs ...string) *fakeCatalog {
	fc := &fakeCatalog{majors: map[string]catalog.Major{}}
	for _, s := range slugs {
		fc.majors[s] = catalog.Major{ID: "major-" + s, Slug: s, Name: s}
	}
	return fc
}

func (f *fakeCatalog) PutMajor(_ context.Context, m catalog.Major) error {
	f.majors[m.Slug] = m
	return nil
}

func (f *fakeCatalog) GetMajorBySlug(_ context.Context, slug string) (catalog.Major, error) {
	m, ok := f.majors[slug]
	if !ok {
		return catalog.Major{}, catalog.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) PutCareer(_ context.Context, c catalog.Career) error {
	f.careers = append(f.careers, c)
	return nil
}

func intp(n int) *int { return &n }

/* ---- tests ---- */

func TestImportQuestions_PartialSuccess(t *testing.T) {
	store := &fakeQuestionStore{}
	im := New(store, newFakeCatalog())

	rows := []QuestionRow{
		{Text: "Q one", Choices: []ChoiceRow{{Text: "A", Points: intp(0)}, {Text: "B", Points: intp(10)}}},
		{Text: "", Choices: []ChoiceRow{{Text: "A", Points: intp(1)}}},           // row 2: missing text
		{Text: "Q three", Choices: nil},                                          // row 3: no choices
		{Text: "Q four", Choices: []ChoiceRow{{Text: "A", Points: nil}}},         // row 4: missing points
		{Text: "Q five", Choices: []ChoiceRow{{Text: "Yes", Points: intp(5)}}},   // ok
	}
	rep, err := im.ImportQuestions(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	if rep.Total != 5 || rep.Imported != 2 {
		t.Fatalf("report = %+v, want total 5 imported 2", rep)
	}
	if len(rep.Errors) != 3 {
		t.Fatalf("want 3 row errors, got %+v", rep.Errors)
	}
	wantRows := []int{2, 3, 4}
	for i, re := range rep.Errors {
		if re.Row != wantRows[i] {
			t.Errorf("error %d reported row %d, want %d (%s)", i, re.Row, wantRows[i], re.Message)
		}
	}
	if len(store.questions) != 2 {
		t.Fatalf("batch must contain exactly the valid rows, got %d", len(store.questions))
	}
	// explicit 0-point choice survives validation
	if store.choices[0].Points != 0 {
		t.Fatalf("0-point choice mangled: %+v", store.choices[0])
	}
}

func TestImportQuestions_CompensatingDelete(t *testing.T) {
	store := &fakeQuestionStore{failChoices: errors.New("disk full")}
	im := New(store, newFakeCatalog())

	rows := []QuestionRow{
		{Text: "Q one", Choices: []ChoiceRow{{Text: "A", Points: intp(1)}}},
		{Text: "Q two", Choices: []ChoiceRow{{Text: "B", Points: intp(2)}}},
	}
	_, err := im.ImportQuestions(context.Background(), rows)
	if err == nil {
		t.Fatal("want error when the choice batch fails")
	}
	if len(store.deleted) != 2 {
		t.Fatalf("question batch must be backed out, deleted %d of 2", len(store.deleted))
	}
	for i, q := range store.questions {
		if store.deleted[i] != q.ID {
			t.Fatalf("deleted ids %v do not match inserted %v", store.deleted, store.questions)
		}
	}
}

func TestImportCareers_SlugResolution(t *testing.T) {
	fc := newFakeCatalog("computer-science")
	im := New(&fakeQuestionStore{}, fc)

	rows := []CareerRow{
		{Slug: "software-engineer", Title: "Software Engineer", MajorSlug: "computer-science"},
		{Slug: "mystery", Title: "Mystery Job", MajorSlug: "no-such-major"}, // row 2
		{Slug: "", Title: "Untitled"},                                       // row 3
		{Slug: "barista", Title: "Barista"},                                 // ok, no major
	}
	rep, err := im.ImportCareers(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 2 || rep.Total != 4 || len(rep.Errors) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Errors[0].Row != 2 || rep.Errors[1].Row != 3 {
		t.Fatalf("row numbers wrong: %+v", rep.Errors)
	}
	if fc.careers[0].MajorID != "major-computer-science" {
		t.Fatalf("major slug not resolved: %+v", fc.careers[0])
	}
}

func TestImportMajors(t *testing.T) {
	fc := newFakeCatalog()
	im := New(&fakeQuestionStore{}, fc)

	rep, err := im.ImportMajors(context.Background(), []MajorRow{
		{Slug: "biology", Name: "Biology"},
		{Slug: "", Name: "Nameless"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 1 || len(rep.Errors) != 1 || rep.Errors[0].Row != 2 {
		t.Fatalf("report = %+v", rep)
	}
}
