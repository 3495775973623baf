package core

// archive.go expands ZIP sources into a per-merge workspace directory.
//
// Each merge owns one Workspace. It is created lazily under the configured
// temp dir, named with a fresh UUID so concurrent merges never share a
// directory, and removed by Cleanup when the merge returns. Cleanup is
// idempotent.

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Workspace is a temporary directory scoped to one merge.
type Workspace struct {
	base        string
	maxFileSize int64

	mu      sync.Mutex
	dir     string
	cleanup sync.Once
	members int
}

// NewWorkspace prepares a workspace under base. Empty base means os.TempDir().
// Nothing touches the disk until the first archive is expanded.
func NewWorkspace(base string, maxFileSize int64) *Workspace {
	if base == "" {
		base = os.TempDir()
	}
	return &Workspace{base: base, maxFileSize: maxFileSize}
}

// Dir returns the workspace directory, or "" if nothing was extracted yet.
func (w *Workspace) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

func (w *Workspace) ensureDir() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir != "" {
		return w.dir, nil
	}
	dir := filepath.Join(w.base, workspacePrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	w.dir = dir
	return dir, nil
}

// Cleanup removes the workspace directory. Safe to call more than once.
func (w *Workspace) Cleanup() error {
	var err error
	w.cleanup.Do(func() {
		w.mu.Lock()
		dir := w.dir
		w.mu.Unlock()
		if dir != "" {
			err = os.RemoveAll(dir)
		}
	})
	return err
}

// Expand extracts the supported members of a ZIP source and returns one
// SourceFile per member, in archive order. Directories, macOS resource
// forks, nested archives and unsupported extensions are dropped silently.
// Members default to HasHeader=true and Dedup=false unless src.Members
// overrides them. XLSX members contribute the sheets their options select,
// or all of their sheets when none are selected.
func (w *Workspace) Expand(src SourceFile) ([]SourceFile, error) {
	zr, err := zip.OpenReader(src.Path)
	if err != nil {
		return nil, &InvalidSourceError{Path: src.Path, Reason: err.Error()}
	}
	defer zr.Close()

	var out []SourceFile
	for _, zf := range zr.File {
		if !keepMember(zf) {
			continue
		}

		dest, err := w.extract(zf)
		if err != nil {
			return nil, &InvalidSourceError{Path: src.Path, Reason: fmt.Sprintf("%s: %v", zf.Name, err)}
		}

		opts := SourceOptions{HasHeader: true}
		if o, ok := src.Members[zf.Name]; ok {
			opts = o
		} else if o, ok := src.Members[path.Base(zf.Name)]; ok {
			opts = o
		}

		member := SourceFile{
			Path:      dest,
			Format:    FormatFromPath(zf.Name),
			HasHeader: opts.HasHeader,
			Dedup:     opts.Dedup,
		}
		if member.Format == FormatXLSX {
			member.Sheets = opts.Sheets
			member.AllSheets = opts.AllSheets || len(opts.Sheets) == 0
		}
		out = append(out, member)
	}
	return out, nil
}

func keepMember(zf *zip.File) bool {
	if zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/") {
		return false
	}
	if strings.HasPrefix(zf.Name, "__MACOSX/") || strings.HasPrefix(path.Base(zf.Name), "._") {
		return false
	}
	return FormatFromPath(zf.Name).IsArchiveMember()
}

// extract copies one member into the workspace. Members are flattened and
// prefixed with a sequence number so equal base names cannot collide.
func (w *Workspace) extract(zf *zip.File) (string, error) {
	dir, err := w.ensureDir()
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.members++
	seq := w.members
	w.mu.Unlock()

	dest := filepath.Join(dir, fmt.Sprintf("%03d_%s", seq, path.Base(zf.Name)))

	rc, err := zf.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}

	var r io.Reader = rc
	if w.maxFileSize > 0 {
		r = NewSizeLimitReader(rc, w.maxFileSize)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dest, nil
}
