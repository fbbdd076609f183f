// Package storage abstracts where raw clips and finished exports live.
// The S3 store mirrors the production layout (raw_uploads/, processed/,
// exports/); the local store serves development and tests.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"reelforge/config"
)

var videoExtensions = []string{".mp4", ".mov", ".avi", ".m4v"}

// ClipRef identifies one stored raw clip.
type ClipRef struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ClipStore lists raw uploads, fetches them to local temp files for
// processing, and stores finished exports.
type ClipStore interface {
	// ListRaw returns the raw uploaded clips, in name order.
	ListRaw(ctx context.Context) ([]ClipRef, error)
	// Fetch downloads a raw clip to a local temp path. The cleanup func
	// removes the temp file and is safe to call more than once.
	Fetch(ctx context.Context, name string) (string, func(), error)
	// PutExport stores a finished render under the given export name and
	// returns a download locator for it.
	PutExport(ctx context.Context, localPath, name string) (string, error)
	// MoveRawToProcessed archives all raw uploads after a successful export.
	MoveRawToProcessed(ctx context.Context) error
	// RawURL returns a retrievable URL for a raw clip, or "" when the
	// backend has no public address (vision describers then go blind).
	RawURL(name string) string
}

func isVideoName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// LocalStore keeps clips on the local filesystem under a root directory
// with raw/, processed/ and exports/ subdirectories.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	for _, dir := range []string{config.RawPrefix, config.ProcessedPrefix, config.ExportsPrefix} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return &LocalStore{root: root}, nil
}

func (l *LocalStore) ListRaw(ctx context.Context) ([]ClipRef, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, config.RawPrefix))
	if err != nil {
		return nil, fmt.Errorf("list raw clips: %w", err)
	}
	var refs []ClipRef
	for _, e := range entries {
		if e.IsDir() || !isVideoName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		refs = append(refs, ClipRef{
			Name: strings.ToLower(e.Name()),
			Key:  filepath.Join(config.RawPrefix, e.Name()),
			Size: info.Size(),
		})
	}
	return refs, nil
}

func (l *LocalStore) Fetch(ctx context.Context, name string) (string, func(), error) {
	src := filepath.Join(l.root, config.RawPrefix, name)
	in, err := os.Open(src)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer in.Close()

	tmp := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(name))
	out, err := os.Create(tmp)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	out.Close()
	return tmp, func() { os.Remove(tmp) }, nil
}

func (l *LocalStore) PutExport(ctx context.Context, localPath, name string) (string, error) {
	dst := filepath.Join(l.root, config.ExportsPrefix, name)
	in, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("put export: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("put export: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("put export: %w", err)
	}
	return dst, nil
}

func (l *LocalStore) MoveRawToProcessed(ctx context.Context) error {
	refs, err := l.ListRaw(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		src := filepath.Join(l.root, ref.Key)
		dst := filepath.Join(l.root, config.ProcessedPrefix, filepath.Base(ref.Key))
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("archive %s: %w", ref.Name, err)
		}
	}
	return nil
}

func (l *LocalStore) RawURL(name string) string { return "" }
