// Package writer persists generated prompts.
package writer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// Output formats, named after their file extensions.
const (
	FormatJSONL = "jsonl"
	FormatTXT   = "txt"
)

const defaultLockTimeout = 5 * time.Second

// ErrLockTimeout is returned when another process holds the output lock.
var ErrLockTimeout = errors.New("timed out waiting for output lock")

// Options configure a Writer.
type Options struct {
	// Overwrite replaces existing files instead of failing.
	Overwrite bool

	// LockTimeout bounds the wait for the advisory lock on <path>.lock.
	LockTimeout time.Duration
}

// Writer writes prompt records as JSON lines, or the bare prompt text for
// .txt paths. Every file is written to a temporary file in the same
// directory and renamed into place.
type Writer struct {
	overwrite   bool
	lockTimeout time.Duration
}

var _ port.PromptWriter = (*Writer)(nil)

func New(opts Options) *Writer {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &Writer{
		overwrite:   opts.Overwrite,
		lockTimeout: timeout,
	}
}

// FormatFor returns the output format selected by the extension of path.
func FormatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), "."+FormatTXT) {
		return FormatTXT
	}
	return FormatJSONL
}

// WritePrompts writes records to path, creating parent directories. An
// existing path is left untouched unless the writer overwrites.
func (w *Writer) WritePrompts(path string, records []domain.PromptRecord) error {
	format := FormatFor(path)
	if format == FormatTXT && len(records) != 1 {
		return fmt.Errorf("txt output holds exactly one prompt, got %d; use a .jsonl file for several lengths", len(records))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return fmt.Errorf("%s: %w", path, ErrLockTimeout)
	}
	// The lock file is never removed so every writer locks the same inode.
	defer fl.Unlock()

	if !w.overwrite {
		if _, err := os.Stat(path); err == nil {
			return &domain.OutputConflictError{Path: path}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("check output file: %w", err)
		}
	}

	return writeAtomic(path, func(out io.Writer) error {
		if format == FormatTXT {
			_, err := io.WriteString(out, records[0].Prompt)
			return err
		}
		return EncodeJSONL(out, records)
	})
}

// EncodeJSONL writes one JSON object per record. Non-ASCII text and HTML
// characters are written literally.
func EncodeJSONL(out io.Writer, records []domain.PromptRecord) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

// ReadJSONL reads records written by EncodeJSONL. Blank lines are skipped.
func ReadJSONL(path string) ([]domain.PromptRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []domain.PromptRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var r domain.PromptRecord
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func writeAtomic(dest string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0644)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}
