package quiz

import (
	"errors"
	"testing"
)

func TestDecodePending_OK(t *testing.T) {
	raw := []byte(`{
		"session_token": "tok-1",
		"saved_at": 1724900000,
		"answers": [
			{"question_id":"q1","answer_choice_id":"c1","points":10},
			{"question_id":"q2","answer_choice_id":"c2","points":0}
		]
	}`)
	p, err := DecodePending(raw)
	if err != nil {
		t.Fatalf("DecodePending: %v", err)
	}
	if p.SessionToken != "tok-1" || len(p.Answers) != 2 {
		t.Fatalf("unexpected pending: %+v", p)
	}
	if p.Answers[1].Points != 0 {
		t.Fatalf("zero points must survive decode, got %d", p.Answers[1].Points)
	}
}

func TestDecodePending_FailsLoudly(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"session_token":`},
		{"missing token", `{"answers":[]}`},
		{"string points", `{"session_token":"t","answers":[{"question_id":"q","answer_choice_id":"c","points":"ten"}]}`},
		{"fractional points", `{"session_token":"t","answers":[{"question_id":"q","answer_choice_id":"c","points":2.5}]}`},
		{"missing points", `{"session_token":"t","answers":[{"question_id":"q","answer_choice_id":"c"}]}`},
		{"missing ids", `{"session_token":"t","answers":[{"points":1}]}`},
		{"unknown field", `{"session_token":"t","answers":[],"extra":true}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodePending([]byte(tc.raw)); !errors.Is(err, ErrMalformedPending) {
				t.Fatalf("want ErrMalformedPending, got %v", err)
			}
		})
	}
}

func TestPendingRoundTrip(t *testing.T) {
	in := Pending{
		SessionToken: "tok-2",
		SavedAt:      1724900001,
		Answers: []Answer{
			{QuestionID: "q1", ChoiceID: "c1", Points: 3},
		},
	}
	raw, err := EncodePending(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodePending(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.SessionToken != in.SessionToken || len(out.Answers) != 1 || out.Answers[0] != in.Answers[0] {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}
