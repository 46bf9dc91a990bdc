// Package roster reads reference images laid out as <dir>/<GROUP>/<stem>.<ext>.
// The upper-cased file stem is the person's label.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/rollcall/internal/facematch"
)

// ErrUnknownGroup is returned for a group without a directory.
var ErrUnknownGroup = errors.New("unknown group")

// Image is one reference image of a group.
type Image struct {
	Label string
	Name  string // file name inside the group directory
	Data  []byte
}

// Store lists groups and their reference images.
type Store interface {
	Groups(ctx context.Context) ([]string, error)
	ListImages(ctx context.Context, group string) ([]Image, error)
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// DirStore reads groups from the sub-directories of a root directory.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// ValidGroup reports whether name can be used as a group directory name.
func ValidGroup(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// Groups returns the sorted names of all group directories.
func (s *DirStore) Groups(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster directory: %w", err)
	}
	var groups []string
	for _, e := range entries {
		if e.IsDir() && ValidGroup(e.Name()) {
			groups = append(groups, e.Name())
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// ListImages reads every image of a group in file-name order. Files with
// other extensions are ignored.
func (s *DirStore) ListImages(ctx context.Context, group string) ([]Image, error) {
	if !ValidGroup(group) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	dir := filepath.Join(s.root, group)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	if err != nil {
		return nil, fmt.Errorf("read group directory: %w", err)
	}

	var images []Image
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !imageExtensions[ext] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read reference image %s: %w", name, err)
		}
		images = append(images, Image{
			Label: facematch.NormalizeLabel(strings.TrimSuffix(name, filepath.Ext(name))),
			Name:  name,
			Data:  data,
		})
	}
	return images, nil
}
