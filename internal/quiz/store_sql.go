package quiz

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO questions (id,text,explanation,order_index,active,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text, explanation=EXCLUDED.explanation,
		  order_index=EXCLUDED.order_index, active=EXCLUDED.active`,
		q.ID, q.Text, q.Explanation, q.OrderIndex, q.Active, time.Now().Unix())
	if err != nil {
		return err
	}
	// Choices are replaced wholesale; they are immutable during a quiz
	// session but editable between sessions by admins.
	if _, err = tx.ExecContext(ctx, `DELETE FROM answer_choices WHERE question_id=$1`, q.ID); err != nil {
		return err
	}
	for _, c := range q.Choices {
		if _, err = tx.ExecContext(ctx, `INSERT INTO answer_choices (id,question_id,text,points,order_index)
			VALUES ($1,$2,$3,$4,$5)`,
			c.ID, q.ID, c.Text, c.Points, c.OrderIndex); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertQuestions batch-inserts bare question rows (no choices). Used by
// the admin bulk import, which inserts choices as a second batch.
func (s *SQLStore) InsertQuestions(ctx context.Context, qs []Question) error {
	if len(qs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, q := range qs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id,text,explanation,order_index,active,created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			q.ID, q.Text, q.Explanation, q.OrderIndex, q.Active, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) InsertChoices(ctx context.Context, cs []Choice) error {
	if len(cs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range cs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO answer_choices (id,question_id,text,points,order_index)
			VALUES ($1,$2,$3,$4,$5)`,
			c.ID, c.QuestionID, c.Text, c.Points, c.OrderIndex); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteQuestionsByID is the compensating action for a failed two-phase
// import: back out the question batch so no choice-less orphans remain.
func (s *SQLStore) DeleteQuestionsByID(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,text,explanation,order_index,active,created_at
		FROM questions WHERE id=$1`, id)
	var q Question
	if err := row.Scan(&q.ID, &q.Text, &q.Explanation, &q.OrderIndex, &q.Active, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	choices, err := s.choicesFor(ctx, q.ID)
	if err != nil {
		return Question{}, err
	}
	q.Choices = choices
	return q, nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) SetQuestionActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ActiveQuestions(ctx context.Context) ([]Question, error) {
	return s.listQuestions(ctx, `WHERE active=TRUE`)
}

func (s *SQLStore) ListQuestions(ctx context.Context, includeInactive bool) ([]Question, error) {
	if includeInactive {
		return s.listQuestions(ctx, ``)
	}
	return s.ActiveQuestions(ctx)
}

func (s *SQLStore) listQuestions(ctx context.Context, where string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,text,explanation,order_index,active,created_at
		FROM questions `+where+` ORDER BY order_index, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	idx := map[string]int{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Explanation, &q.OrderIndex, &q.Active, &q.CreatedAt); err != nil {
			return nil, err
		}
		idx[q.ID] = len(out)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	crows, err := s.db.QueryContext(ctx, `SELECT id,question_id,text,points,order_index
		FROM answer_choices ORDER BY question_id, order_index, id`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var c Choice
		if err := crows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.Points, &c.OrderIndex); err != nil {
			return nil, err
		}
		if i, ok := idx[c.QuestionID]; ok {
			out[i].Choices = append(out[i].Choices, c)
		}
	}
	return out, crows.Err()
}

func (s *SQLStore) choicesFor(ctx context.Context, questionID string) ([]Choice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,question_id,text,points,order_index
		FROM answer_choices WHERE question_id=$1 ORDER BY order_index, id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Choice
	for rows.Next() {
		var c Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.Points, &c.OrderIndex); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub Submission) error {
	var token any
	if sub.SessionToken != "" {
		token = sub.SessionToken
	}
	var userID any
	if sub.UserID != "" {
		userID = sub.UserID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO quiz_submissions
		(id,unique_id,session_token,user_name,user_email,user_id,total_score,max_score,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sub.ID, sub.UniqueID, token, sub.UserName, sub.UserEmail, userID,
		sub.TotalScore, sub.MaxScore, sub.CreatedAt)
	if err != nil && sub.SessionToken != "" && isTokenViolation(err) {
		return ErrDuplicateToken
	}
	return err
}

func (s *SQLStore) InsertAnswers(ctx context.Context, submissionID string, answers []SubmissionAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range answers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO submission_answers
			(submission_id,question_id,answer_choice_id,points_earned)
			VALUES ($1,$2,$3,$4)`,
			submissionID, a.QuestionID, a.ChoiceID, a.PointsEarned); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetSubmissionByUniqueID(ctx context.Context, uniqueID string) (Submission, error) {
	return s.getSubmission(ctx, `unique_id=$1`, uniqueID)
}

func (s *SQLStore) GetSubmissionByToken(ctx context.Context, token string) (Submission, error) {
	return s.getSubmission(ctx, `session_token=$1`, token)
}

func (s *SQLStore) getSubmission(ctx context.Context, where string, arg any) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,unique_id,session_token,user_name,user_email,user_id,
		total_score,max_score,created_at FROM quiz_submissions WHERE `+where, arg)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT submission_id,question_id,answer_choice_id,points_earned
		FROM submission_answers WHERE submission_id=$1`, sub.ID)
	if err != nil {
		return Submission{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a SubmissionAnswer
		if err := rows.Scan(&a.SubmissionID, &a.QuestionID, &a.ChoiceID, &a.PointsEarned); err != nil {
			return Submission{}, err
		}
		sub.Answers = append(sub.Answers, a)
	}
	return sub, rows.Err()
}

func (s *SQLStore) ListSubmissions(ctx context.Context, opts ListOpts) ([]Submission, error) {
	where := []string{"1=1"}
	args := []any{}
	if opts.Email != "" {
		args = append(args, opts.Email)
		where = append(where, `user_email=$`+strconv.Itoa(len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, `user_id=$`+strconv.Itoa(len(args)))
	}
	if opts.GuestOnly {
		where = append(where, `user_id IS NULL`)
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	limitPos := strconv.Itoa(len(args))
	args = append(args, opts.Offset)
	offsetPos := strconv.Itoa(len(args))

	q := `SELECT id,unique_id,session_token,user_name,user_email,user_id,total_score,max_score,created_at
		FROM quiz_submissions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT $` + limitPos + ` OFFSET $` + offsetPos
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) SweepOrphans(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id,s.unique_id,s.session_token,s.user_name,s.user_email,
		s.user_id,s.total_score,s.max_score,s.created_at
		FROM quiz_submissions s
		WHERE NOT EXISTS (SELECT 1 FROM submission_answers a WHERE a.submission_id = s.id)
		ORDER BY s.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(r rowScanner) (Submission, error) {
	var sub Submission
	var token, userID sql.NullString
	err := r.Scan(&sub.ID, &sub.UniqueID, &token, &sub.UserName, &sub.UserEmail, &userID,
		&sub.TotalScore, &sub.MaxScore, &sub.CreatedAt)
	if err != nil {
		return Submission{}, err
	}
	sub.SessionToken = token.String
	sub.UserID = userID.String
	return sub, nil
}

// isTokenViolation recognizes a unique-constraint failure on the
// session_token column specifically, on either driver. quiz_submissions
// also has a unique unique_id; a collision there must surface as a plain
// error rather than take the idempotency path (the follow-up lookup
// would be by an empty or unrelated token).
func isTokenViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" &&
			strings.Contains(pgErr.ConstraintName+pgErr.Detail, "session_token")
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed: quiz_submissions.session_token") || // sqlite
		(strings.Contains(msg, "duplicate key value") && strings.Contains(msg, "session_token")) // pgx stdlib without pgconn unwrap
}

