package catalog_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/abbosc/imajor-quiz-sub001/internal/catalog"
	"github.com/abbosc/imajor-quiz-sub001/internal/db"

	_ "modernc.org/sqlite" // driver for "sqlite"
)

func newTestStore(t *testing.T) *catalog.SQLStore {
	t.Helper()
	h, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	h.SetMaxIdleConns(1)
	if err := db.EnsureSchema(context.Background(), h, db.DriverSQLite); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return catalog.NewSQLStore(h, "sqlite")
}

func TestInsertOrGetTag_ConflictFallsBackToLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.InsertOrGetTag(ctx, "stem")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.InsertOrGetTag(ctx, "stem")
	if err != nil {
		t.Fatalf("duplicate tag name must be recoverable: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate insert resolved to %q, want existing %q", second.ID, first.ID)
	}

	other, err := s.InsertOrGetTag(ctx, "healthcare")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == first.ID {
		t.Fatal("distinct names must get distinct tags")
	}
}

func TestCareers_SlugResolutionAndListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutMajor(ctx, catalog.Major{Slug: "computer-science", Name: "Computer Science"}); err != nil {
		t.Fatal(err)
	}
	m, err := s.GetMajorBySlug(ctx, "computer-science")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutCareer(ctx, catalog.Career{
		Slug: "software-engineer", Title: "Software Engineer", MajorID: m.ID,
		Tags: []string{"stem", "stem", "tech"},
	}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListCareers(ctx, "computer-science")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Slug != "software-engineer" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	if _, err := s.GetMajorBySlug(ctx, "underwater-basket-weaving"); err != catalog.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSavedCareers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutCareer(ctx, catalog.Career{Slug: "nurse", Title: "Nurse"}); err != nil {
		t.Fatal(err)
	}
	c, err := s.GetCareerBySlug(ctx, "nurse")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SaveCareer(ctx, "user-1", c.ID); err != nil {
		t.Fatal(err)
	}
	// saving twice is a no-op, not a conflict error
	if err := s.SaveCareer(ctx, "user-1", c.ID); err != nil {
		t.Fatal(err)
	}
	saved, err := s.ListSavedCareers(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Fatalf("want 1 saved career, got %d", len(saved))
	}

	if err := s.UnsaveCareer(ctx, "user-1", c.ID); err != nil {
		t.Fatal(err)
	}
	saved, _ = s.ListSavedCareers(ctx, "user-1")
	if len(saved) != 0 {
		t.Fatalf("want empty after unsave, got %+v", saved)
	}
}
