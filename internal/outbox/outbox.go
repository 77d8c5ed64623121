// Package outbox holds one deferred quiz submission per principal until
// an authenticated identity exists to attach it to. It is the single-item
// durable outbox behind the "pending quiz" flow: enqueue at quiz
// completion, peek on the first authenticated visit, ack after the
// reconciler has either persisted the submission or given up on it.
package outbox

import "context"

// Entry is one queued deferred submission. Payload stays opaque here;
// the quiz layer owns its decoding (and the strictness of it).
type Entry struct {
	Token   string `json:"token"`    // client-generated idempotency key
	Payload []byte `json:"payload"`  // serialized quiz.Pending
	SavedAt int64  `json:"saved_at"` // unix seconds
}

// Outbox stores at most one Entry per owner. Enqueue overwrites any
// prior entry. Peek reports ok=false when nothing is queued; a corrupt
// stored entry is cleared and reported as absent rather than retried.
// Ack removes the entry and must follow both success and permanent
// failure, so a broken payload can never wedge the next login.
type Outbox interface {
	Enqueue(ctx context.Context, owner string, e Entry) error
	Peek(ctx context.Context, owner string) (Entry, bool, error)
	Ack(ctx context.Context, owner string) error
}
