package snapshot

import (
	"context"
	"os"
	"path/filepath"
)

// DiskSink writes snapshot documents into a directory.
type DiskSink struct {
	dir string
}

// NewDiskSink creates dir if needed and returns a sink writing into it.
func NewDiskSink(dir string) (*DiskSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskSink{dir: dir}, nil
}

// Dir returns the target directory.
func (s *DiskSink) Dir() string {
	return s.dir
}

// Put writes data to dir/name through a temporary file so readers never
// observe a partial document.
func (s *DiskSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, filepath.Base(name))); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads the document stored under name.
func (s *DiskSink) Get(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
}
