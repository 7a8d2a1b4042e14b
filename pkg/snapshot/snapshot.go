package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vango-dev/reaxar/internal/errors"
	"github.com/vango-dev/reaxar/pkg/store"
)

// Sink is a destination for snapshot documents.
type Sink interface {
	// Put writes data under name, replacing any previous document.
	Put(ctx context.Context, name string, data []byte) error
}

// Document is the serialized form of a registry.
type Document struct {
	TakenAt time.Time                  `json:"taken_at"`
	Stores  map[string]json.RawMessage `json:"stores"`
}

// now is replaced in tests.
var now = time.Now

// Capture serializes every store in reg.
func Capture(reg *store.Registry) (*Document, error) {
	doc := &Document{
		TakenAt: now().UTC(),
		Stores:  make(map[string]json.RawMessage, reg.Len()),
	}
	for key, entry := range reg.All() {
		data, err := json.Marshal(entry.Snapshot())
		if err != nil {
			return nil, errors.New(errors.CodeSnapshotWrite).
				WithKey(key).
				WithDetail("The store value cannot be encoded as JSON.").
				Wrap(err)
		}
		doc.Stores[key] = data
	}
	return doc, nil
}

// Name returns the default document name for doc.
func (d *Document) Name() string {
	return fmt.Sprintf("snapshot-%s.json", d.TakenAt.Format("20060102T150405Z"))
}

// Export captures reg and writes it to sink. It returns the document name.
func Export(ctx context.Context, reg *store.Registry, sink Sink) (string, error) {
	doc, err := Capture(reg)
	if err != nil {
		return "", err
	}
	return doc.Name(), Write(ctx, doc, sink)
}

// Write encodes doc and puts it into sink under doc.Name().
func Write(ctx context.Context, doc *Document, sink Sink) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.New(errors.CodeSnapshotWrite).Wrap(err)
	}
	if err := sink.Put(ctx, doc.Name(), append(data, '\n')); err != nil {
		return errors.FromError(err, errors.CodeSnapshotWrite).WithKey(doc.Name())
	}
	return nil
}

// Restore sets every store in reg that has a value in doc. It returns the
// keys that were restored, and the first decode error encountered.
func Restore(reg *store.Registry, doc *Document) ([]string, error) {
	var restored []string
	for _, key := range reg.Keys() {
		raw, ok := doc.Stores[key]
		if !ok {
			continue
		}
		entry, ok := reg.Get(key)
		if !ok {
			continue
		}
		if err := entry.SetJSON(raw); err != nil {
			return restored, errors.New(errors.CodeSnapshotRead).
				WithKey(key).
				WithDetail("The snapshot value does not match the store type.").
				Wrap(err)
		}
		restored = append(restored, key)
	}
	return restored, nil
}

// Decode parses a snapshot document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.CodeSnapshotRead).
			WithDetail("The data is not a snapshot document.").
			Wrap(err)
	}
	if doc.Stores == nil {
		doc.Stores = map[string]json.RawMessage{}
	}
	return &doc, nil
}
