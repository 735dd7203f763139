package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type fileRow struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// File persists each collection as one JSON document under dir. Reads are
// served from memory; every mutation rewrites the collection file through a
// temp file and rename so a crash never leaves a half-written document.
type File struct {
	dir string
	mu  sync.Mutex
	mem *Memory
}

func NewFile(dir string) (*File, error) {
	const op = "storage.NewFile"

	if dir == "" {
		return nil, fmt.Errorf("%s: empty directory", op)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	f := &File{dir: dir, mem: NewMemory()}
	for _, c := range Collections {
		if err := f.load(c); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return f, nil
}

func (f *File) path(c Collection) string {
	return filepath.Join(f.dir, string(c)+".json")
}

func (f *File) load(c Collection) error {
	data, err := os.ReadFile(f.path(c))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var rows []fileRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode %s: %w", f.path(c), err)
	}
	for _, row := range rows {
		if err := f.mem.Put(context.Background(), c, row.ID, row.Body); err != nil {
			return err
		}
	}
	return nil
}

// rows returns the collection as it would look after applying edit.
func (f *File) rows(c Collection, edit func([]fileRow) []fileRow) []fileRow {
	f.mem.mu.RLock()
	var rows []fileRow
	if t, ok := f.mem.tables[c]; ok {
		rows = make([]fileRow, 0, len(t.order)+1)
		for _, id := range t.order {
			rows = append(rows, fileRow{ID: id, Body: t.rows[id]})
		}
	}
	f.mem.mu.RUnlock()
	return edit(rows)
}

func (f *File) write(c Collection, rows []fileRow) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, string(c)+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.path(c)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (f *File) Get(ctx context.Context, c Collection, id string) ([]byte, error) {
	return f.mem.Get(ctx, c, id)
}

func (f *File) List(ctx context.Context, c Collection) ([][]byte, error) {
	return f.mem.List(ctx, c)
}

// Put and Delete reach memory only after the collection file is on disk.
func (f *File) Put(ctx context.Context, c Collection, id string, body []byte) error {
	if !json.Valid(body) {
		return errors.New("body is not valid JSON")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.rows(c, func(rows []fileRow) []fileRow {
		for i := range rows {
			if rows[i].ID == id {
				rows[i].Body = body
				return rows
			}
		}
		return append(rows, fileRow{ID: id, Body: body})
	})
	if err := f.write(c, rows); err != nil {
		return err
	}
	return f.mem.Put(ctx, c, id, body)
}

func (f *File) Delete(ctx context.Context, c Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.mem.Get(ctx, c, id); errors.Is(err, ErrNotFound) {
		return nil
	}
	rows := f.rows(c, func(rows []fileRow) []fileRow {
		kept := rows[:0]
		for _, r := range rows {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		return kept
	})
	if err := f.write(c, rows); err != nil {
		return err
	}
	return f.mem.Delete(ctx, c, id)
}

func (f *File) Close() error { return nil }
