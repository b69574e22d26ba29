// package cache maps remote media URLs onto files in the local cache directory.
//
// The cache is write-once: a file named after the URL's last path segment is a hit, with no
// integrity or freshness check. In-flight transfers write to hidden ".<key>.*.part" files that
// are never reported as hits.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
)

// PartSuffix marks temporary files written while a transfer is in flight.
const PartSuffix = ".part"

// Resolution is the outcome of resolving one item against the cache.
type Resolution struct {
	Item models.RemoteMediaItem
	Key  string // file name inside the cache directory
	Path string // absolute or dir-relative path of the cached file
	Hit  bool   // file already present
}

// Resolved returns the display record for the cached file.
func (r Resolution) Resolved() models.ResolvedMediaItem {
	return models.NewResolvedMediaItem(r.Path, r.Item.Kind)
}

// Resolver answers hit/miss questions for a single cache directory.
type Resolver struct {
	dir string
}

// NewResolver ensures dir exists (creating parents) and returns a [Resolver] rooted there.
func NewResolver(dir string) (*Resolver, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: cache directory is empty", shared.ErrFilesystem)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create cache directory %s: %v", shared.ErrFilesystem, dir, err)
	}
	return &Resolver{dir: dir}, nil
}

// Dir returns the cache directory.
func (r *Resolver) Dir() string { return r.dir }

// Key derives the cache key for a source URL: its last path segment.
//
// Query strings and fragments are ignored. Distinct URLs sharing a final segment collide.
func Key(sourceURL string) string {
	raw := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		raw = u.Path
	} else if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}

	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return path.Clean("/" + raw)[1:]
}

// Path returns where the item with the given key lives in the cache.
func (r *Resolver) Path(key string) string {
	return filepath.Join(r.dir, key)
}

// Resolve reports whether item is already cached.
func (r *Resolver) Resolve(item models.RemoteMediaItem) (Resolution, error) {
	key := Key(item.SourceURL)
	if key == "" || key == "." || key == ".." {
		return Resolution{}, fmt.Errorf("%w: cannot derive cache key from %q", shared.ErrInvalidInput, item.SourceURL)
	}

	res := Resolution{Item: item, Key: key, Path: r.Path(key)}

	info, err := os.Stat(res.Path)
	switch {
	case err == nil:
		res.Hit = info.Mode().IsRegular()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Resolution{}, fmt.Errorf("%w: stat %s: %v", shared.ErrFilesystem, res.Path, err)
	}
	return res, nil
}

// ResolveAll resolves every manifest item in order.
func (r *Resolver) ResolveAll(m *models.Manifest) ([]Resolution, error) {
	out := make([]Resolution, 0, m.TotalItems())
	if m == nil {
		return out, nil
	}
	for _, item := range m.Items {
		res, err := r.Resolve(item)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// CreateTemp opens a hidden temporary file next to the final location of key.
func (r *Resolver) CreateTemp(key string) (*os.File, error) {
	return CreateTemp(r.dir, key)
}

// CreateTemp opens a hidden ".<key>.*.part" file in dir.
func CreateTemp(dir, key string) (*os.File, error) {
	f, err := os.CreateTemp(dir, "."+key+".*"+PartSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create temp file for %s: %v", shared.ErrFilesystem, key, err)
	}
	return f, nil
}

// Commit atomically moves a finished temp file into place.
func Commit(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: cannot move %s into place: %v", shared.ErrFilesystem, filepath.Base(finalPath), err)
	}
	return nil
}

// Entries lists the committed files in the cache directory, skipping in-flight temp files.
func (r *Resolver) Entries() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read cache directory: %v", shared.ErrFilesystem, err)
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), PartSuffix) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}
