package quiz

type Choice struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id,omitempty"`
	Text       string `json:"text"`
	Points     int    `json:"points"`
	OrderIndex int    `json:"order_index"`
}

type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Explanation string   `json:"explanation,omitempty"`
	OrderIndex  int      `json:"order_index"`
	Active      bool     `json:"active"`
	Choices     []Choice `json:"choices,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// Answer is one user selection, session-local until submission.
// Points are recorded at selection time and are never invalidated
// retroactively, even if the question is deactivated later.
type Answer struct {
	QuestionID string `json:"question_id"`
	ChoiceID   string `json:"answer_choice_id"`
	Points     int    `json:"points"`
}

type Submission struct {
	ID           string `json:"id"`
	UniqueID     string `json:"unique_id"`
	SessionToken string `json:"session_token,omitempty"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	UserID       string `json:"user_id,omitempty"` // empty for guest submissions
	TotalScore   int    `json:"total_score"`
	MaxScore     int    `json:"max_score"`
	CreatedAt    int64  `json:"created_at"`

	Answers []SubmissionAnswer `json:"answers,omitempty"`
}

type SubmissionAnswer struct {
	SubmissionID string `json:"submission_id,omitempty"`
	QuestionID   string `json:"question_id"`
	ChoiceID     string `json:"answer_choice_id"`
	PointsEarned int    `json:"points_earned"`
}
