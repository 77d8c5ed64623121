package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Pending is a deferred quiz attempt: answers captured before the user
// had an authenticated identity, held in an outbox until one exists.
type Pending struct {
	SessionToken string   `json:"session_token"`
	Answers      []Answer `json:"answers"`
	SavedAt      int64    `json:"saved_at"`
}

var ErrMalformedPending = errors.New("malformed pending quiz payload")

// DecodePending parses a deferred-submission payload. Points must be
// integers: a non-numeric or fractional value is an error, never
// silently coerced to zero.
func DecodePending(raw []byte) (Pending, error) {
	var wire struct {
		SessionToken string `json:"session_token"`
		SavedAt      int64  `json:"saved_at"`
		Answers      []struct {
			QuestionID string      `json:"question_id"`
			ChoiceID   string      `json:"answer_choice_id"`
			Points     json.Number `json:"points"`
		} `json:"answers"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return Pending{}, fmt.Errorf("%w: %v", ErrMalformedPending, err)
	}
	if wire.SessionToken == "" {
		return Pending{}, fmt.Errorf("%w: missing session_token", ErrMalformedPending)
	}
	p := Pending{SessionToken: wire.SessionToken, SavedAt: wire.SavedAt}
	for i, a := range wire.Answers {
		if a.QuestionID == "" || a.ChoiceID == "" {
			return Pending{}, fmt.Errorf("%w: answer %d missing ids", ErrMalformedPending, i+1)
		}
		pts, err := a.Points.Int64()
		if err != nil {
			return Pending{}, fmt.Errorf("%w: answer %d has non-integer points %q", ErrMalformedPending, i+1, a.Points.String())
		}
		p.Answers = append(p.Answers, Answer{
			QuestionID: a.QuestionID,
			ChoiceID:   a.ChoiceID,
			Points:     int(pts),
		})
	}
	return p, nil
}

func EncodePending(p Pending) ([]byte, error) {
	return json.Marshal(p)
}
