package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSOutbox keeps one JSON file per owner under a base directory. It is
// the server-side stand-in for the browser's local-storage slot: same
// at-most-one semantics, same clear-on-corrupt behavior.
type FSOutbox struct{ base string }

func NewFSOutbox(base string) (*FSOutbox, error) {
	if base == "" {
		base = "./data/outbox"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSOutbox{base: base}, nil
}

func (o *FSOutbox) path(owner string) string {
	// owners are user ids ("guest|..." included); keep them filesystem-safe
	safe := strings.NewReplacer("/", "_", "\\", "_", "|", "_", ":", "_").Replace(owner)
	return filepath.Join(o.base, safe+".json")
}

func (o *FSOutbox) Enqueue(_ context.Context, owner string, e Entry) error {
	if owner == "" {
		return errors.New("empty owner")
	}
	buf, err := json.Marshal(e)
	if err != nil {
		return err
	}
	dst := o.path(owner)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (o *FSOutbox) Peek(_ context.Context, owner string) (Entry, bool, error) {
	buf, err := os.ReadFile(o.path(owner))
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(buf, &e); err != nil || e.Token == "" {
		// corrupt entry: clear rather than retry forever
		_ = os.Remove(o.path(owner))
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (o *FSOutbox) Ack(_ context.Context, owner string) error {
	err := os.Remove(o.path(owner))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
