package bulkimport

// Admin-supplied JSON rows. Validation is per-row: a bad row is reported
// by its 1-based number and skipped, the rest of the batch proceeds.

type ChoiceRow struct {
	Text   string `json:"text" validate:"required"`
	Points *int   `json:"points" validate:"required"` // pointer so an explicit 0 passes
	Order  int    `json:"order"`
}

type QuestionRow struct {
	Text        string      `json:"text" validate:"required"`
	Explanation string      `json:"explanation"`
	Order       int         `json:"order"`
	Active      *bool       `json:"active"`
	Choices     []ChoiceRow `json:"choices" validate:"required,min=1,dive"`
}

type MajorRow struct {
	Slug        string `json:"slug" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type CareerRow struct {
	Slug        string   `json:"slug" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	MajorSlug   string   `json:"major_slug"` // resolved against majors; unresolvable is a row error
	Tags        []string `json:"tags"`
}

type RowError struct {
	Row     int    `json:"row"` // 1-based
	Message string `json:"message"`
}

type Report struct {
	Imported int        `json:"imported"`
	Total    int        `json:"total"`
	Errors   []RowError `json:"errors"`
}
