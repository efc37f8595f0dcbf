package directory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// IsStore reports whether source names a SQL store rather than a barcode
// file: a Postgres DSN or a .db/.sqlite path.
func IsStore(source string) bool {
	if strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://") {
		return true
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// LoadSource builds a Directory from a barcode file or a SQL store. An empty
// source yields an empty directory.
func LoadSource(ctx context.Context, source string) (*Directory, error) {
	dir := New()
	if source == "" {
		return dir, nil
	}

	if !IsStore(source) {
		if _, err := NewLoader(source).LoadInto(dir); err != nil {
			return nil, err
		}
		return dir, nil
	}

	store, err := OpenStore(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open barcode store: %w", err)
	}
	defer store.Close()
	if _, err := store.LoadInto(ctx, dir); err != nil {
		return nil, err
	}
	return dir, nil
}
