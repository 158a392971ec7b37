// Package store reads form documents from disk or an fs.FS and writes them
// back atomically.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

// ErrOverwrite is returned when a save would replace the source document
// without AllowOverwrite.
var ErrOverwrite = errors.New("store: refusing to overwrite source document")

// Load reads path, picks a codec from its extension and decodes the
// document.
func Load(ctx context.Context, path string) (*document.Document, tree.Format, error) {
	if path == "" {
		return nil, "", errors.New("store: path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("store: read %s: %w", path, err)
	}
	return decode(data, path)
}

// LoadFS reads name from fsys.
func LoadFS(ctx context.Context, fsys fs.FS, name string) (*document.Document, tree.Format, error) {
	if fsys == nil {
		return nil, "", errors.New("store: filesystem is not configured")
	}
	if name == "" {
		return nil, "", errors.New("store: fs path is required")
	}
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, "", fmt.Errorf("store: read %s: %w", name, err)
	}
	return decode(data, name)
}

func decode(data []byte, name string) (*document.Document, tree.Format, error) {
	format := tree.FormatFromPath(name)
	doc, err := document.Parse(data, format)
	if err != nil {
		return nil, "", fmt.Errorf("store: %s: %w", name, err)
	}
	return doc, format, nil
}

// DefaultTarget derives the output path used when no destination is given:
// forms/intro.json becomes forms/intro.patched.json.
func DefaultTarget(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + ".patched" + ext
}

// SaveOptions controls Save.
type SaveOptions struct {
	// Source is the path the document was loaded from. Saving onto it
	// requires AllowOverwrite.
	Source         string
	AllowOverwrite bool
	// Perm applies to newly created files. Existing files keep their mode.
	Perm fs.FileMode
}

// Save encodes doc and replaces path with the result. The bytes are written
// to a temporary file in the same directory, synced and renamed over the
// target, so readers see either the old or the new document.
func Save(path string, doc *document.Document, format tree.Format, opts SaveOptions) error {
	if path == "" {
		return errors.New("store: target path is required")
	}
	if opts.Source != "" && !opts.AllowOverwrite && samePath(path, opts.Source) {
		return fmt.Errorf("%w: %s", ErrOverwrite, path)
	}
	data, err := document.Marshal(doc, format)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	return WriteAtomic(path, data, opts.Perm)
}

// WriteAtomic writes data to path through a temporary sibling file.
func WriteAtomic(path string, data []byte, perm fs.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("store: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: replace %s: %w", path, err)
	}
	committed = true
	return nil
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
