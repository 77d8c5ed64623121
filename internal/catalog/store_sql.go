package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutMajor(ctx context.Context, m Major) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO majors (id,slug,name,description,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (slug) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description`,
		m.ID, m.Slug, m.Name, m.Description, time.Now().Unix())
	return err
}

func (s *SQLStore) GetMajorBySlug(ctx context.Context, slug string) (Major, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,slug,name,description,created_at FROM majors WHERE slug=$1`, slug)
	var m Major
	if err := row.Scan(&m.ID, &m.Slug, &m.Name, &m.Description, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Major{}, ErrNotFound
		}
		return Major{}, err
	}
	return m, nil
}

func (s *SQLStore) ListMajors(ctx context.Context) ([]Major, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,slug,name,description,created_at FROM majors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Major
	for rows.Next() {
		var m Major
		if err := rows.Scan(&m.ID, &m.Slug, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutCareer(ctx context.Context, c Career) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var majorID any
	if c.MajorID != "" {
		majorID = c.MajorID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO careers (id,slug,title,description,major_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (slug) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description, major_id=EXCLUDED.major_id`,
		c.ID, c.Slug, c.Title, c.Description, majorID, time.Now().Unix())
	if err != nil {
		return err
	}
	if len(c.Tags) == 0 {
		return nil
	}
	// Resolve the id the upsert actually landed on before tagging.
	existing, err := s.GetCareerBySlug(ctx, c.Slug)
	if err != nil {
		return err
	}
	for _, name := range c.Tags {
		tag, err := s.InsertOrGetTag(ctx, name)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO career_tags (career_id,tag_id) VALUES ($1,$2)
			ON CONFLICT (career_id,tag_id) DO NOTHING`, existing.ID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetCareerBySlug(ctx context.Context, slug string) (Career, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,slug,title,description,major_id,created_at FROM careers WHERE slug=$1`, slug)
	c, err := scanCareer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Career{}, ErrNotFound
		}
		return Career{}, err
	}
	return c, nil
}

func (s *SQLStore) ListCareers(ctx context.Context, majorSlug string) ([]Career, error) {
	q := `SELECT c.id,c.slug,c.title,c.description,c.major_id,c.created_at FROM careers c`
	args := []any{}
	if majorSlug != "" {
		q += ` JOIN majors m ON m.id = c.major_id WHERE m.slug=$1`
		args = append(args, majorSlug)
	}
	q += ` ORDER BY c.title`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Career
	for rows.Next() {
		c, err := scanCareer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertOrGetTag inserts a tag and, on a name-uniqueness conflict, falls
// back to looking the existing row up. The conflict is an expected path,
// not a failure.
func (s *SQLStore) InsertOrGetTag(ctx context.Context, name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, errors.New("empty tag name")
	}
	t := Tag{ID: uuid.NewString(), Name: name}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tags (id,name) VALUES ($1,$2)`, t.ID, t.Name)
	if err == nil {
		return t, nil
	}
	if !isUniqueViolation(err) {
		return Tag{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id,name FROM tags WHERE name=$1`, name)
	var got Tag
	if err := row.Scan(&got.ID, &got.Name); err != nil {
		return Tag{}, err
	}
	return got, nil
}

func (s *SQLStore) SaveCareer(ctx context.Context, userID, careerID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO saved_careers (user_id,career_id,created_at)
		VALUES ($1,$2,$3) ON CONFLICT (user_id,career_id) DO NOTHING`,
		userID, careerID, time.Now().Unix())
	return err
}

func (s *SQLStore) UnsaveCareer(ctx context.Context, userID, careerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_careers WHERE user_id=$1 AND career_id=$2`, userID, careerID)
	return err
}

func (s *SQLStore) ListSavedCareers(ctx context.Context, userID string) ([]Career, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id,c.slug,c.title,c.description,c.major_id,c.created_at
		FROM careers c JOIN saved_careers sc ON sc.career_id = c.id
		WHERE sc.user_id=$1 ORDER BY sc.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Career
	for rows.Next() {
		c, err := scanCareer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCareersByID backs out a batch insert whose dependent batch
// failed; see bulkimport.
func (s *SQLStore) DeleteCareersByID(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM careers WHERE id=$1`, id); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCareer(r rowScanner) (Career, error) {
	var c Career
	var majorID sql.NullString
	if err := r.Scan(&c.ID, &c.Slug, &c.Title, &c.Description, &majorID, &c.CreatedAt); err != nil {
		return Career{}, err
	}
	c.MajorID = majorID.String
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
