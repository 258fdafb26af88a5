package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"promptgen/internal/port"
)

// DefaultIncludes matches the document types the source reader understands.
var DefaultIncludes = []string{"**/*.txt", "**/*.md", "**/*.pdf", "**/*.html", "**/*.htm"}

type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, port.FileInfo{
				Path: path,
				Size: info.Size(),
			})
		}

		return nil
	})

	return files, err
}

// Expand turns source specs into a list of files in order of first
// appearance. A spec is a file, a directory (walked with the include and
// exclude patterns, empty files skipped) or a doublestar glob. Names listed
// in keep are passed through unchanged.
func (w *Walker) Expand(specs []string, keep ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, spec := range specs {
		if slices.Contains(keep, spec) {
			add(spec)
			continue
		}

		if info, err := os.Stat(spec); err == nil {
			if !info.IsDir() {
				add(spec)
				continue
			}
			files, err := w.Walk(spec)
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", spec, err)
			}
			for _, f := range files {
				if f.Size > 0 {
					add(f.Path)
				}
			}
			continue
		}

		if !doublestar.ValidatePattern(filepath.ToSlash(spec)) {
			return nil, fmt.Errorf("invalid source pattern %q", spec)
		}
		matches, err := doublestar.FilepathGlob(spec, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", spec, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("source %q matches no files", spec)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !w.shouldExclude(filepath.ToSlash(m)) {
				add(m)
			}
		}
	}

	return out, nil
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
