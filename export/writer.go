package export

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// StagingPrefix starts the name of the directory a write is staged in.
const StagingPrefix = ".icfc-staging-"

// WriteError reports a failure to create or fill the output directory.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriterOptions configures a Writer.
type WriterOptions struct {
	// RunID names the staging directory. A random id is used when empty.
	RunID string

	// Stats, when set, receives a summary after a successful write.
	Stats io.Writer

	// Prune removes JSON files left over from earlier runs that are not part
	// of the new dataset.
	Prune bool

	Logger *slog.Logger
}

// Writer publishes datasets to a directory. A write either replaces the
// dataset completely or leaves the directory as it was.
type Writer struct {
	runID  string
	stats  io.Writer
	prune  bool
	logger *slog.Logger
}

// NewWriter creates a writer.
func NewWriter(opts WriterOptions) *Writer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Writer{
		runID:  runID,
		stats:  opts.Stats,
		prune:  opts.Prune,
		logger: logger,
	}
}

// Write encodes ds into outDir. Every file is first written to a staging
// directory inside outDir; only when all of them are on disk are they moved
// into place, chapters.json last. Readers that wait for chapters.json never
// see a mix of old and new files.
func (w *Writer) Write(outDir string, ds *Dataset) (Stats, error) {
	files, err := ds.files()
	if err != nil {
		return Stats{}, &WriteError{Op: "encode dataset", Path: outDir, Err: err}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stats{}, &WriteError{Op: "create output directory", Path: outDir, Err: err}
	}
	info, err := os.Stat(outDir)
	if err != nil {
		return Stats{}, &WriteError{Op: "stat output directory", Path: outDir, Err: err}
	}
	if !info.IsDir() {
		return Stats{}, &WriteError{Op: "create output directory", Path: outDir, Err: errors.New("not a directory")}
	}

	staging := filepath.Join(outDir, StagingPrefix+w.runID)
	if err := os.Mkdir(staging, 0o755); err != nil {
		return Stats{}, &WriteError{Op: "create staging directory", Path: staging, Err: err}
	}
	defer os.RemoveAll(staging)

	for _, f := range files {
		path := filepath.Join(staging, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return Stats{}, &WriteError{Op: "write file", Path: path, Err: err}
		}
	}

	if err := w.commit(outDir, staging, files); err != nil {
		return Stats{}, err
	}

	if w.prune {
		if err := w.pruneStale(outDir, files); err != nil {
			return Stats{}, err
		}
	}

	stats := ds.Stats()
	w.logger.Info("Dataset written",
		"dir", outDir,
		"run_id", w.runID,
		"files", stats.Files,
		"chapters", stats.Chapters,
		"categories", stats.Categories)

	if w.stats != nil {
		if err := PrintStats(w.stats, stats); err != nil {
			return stats, &WriteError{Op: "print stats", Path: outDir, Err: err}
		}
	}
	return stats, nil
}

// commit moves staged files into outDir. chapters.json is removed first and
// restored last, so its presence marks a complete dataset.
func (w *Writer) commit(outDir, staging string, files []file) error {
	chapters := filepath.Join(outDir, ChaptersFile)
	if err := os.Remove(chapters); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &WriteError{Op: "remove previous chapter list", Path: chapters, Err: err}
	}

	for _, f := range files {
		if f.name == ChaptersFile {
			continue
		}
		if err := rename(staging, outDir, f.name); err != nil {
			return err
		}
	}
	return rename(staging, outDir, ChaptersFile)
}

func rename(from, to, name string) error {
	dst := filepath.Join(to, name)
	if err := os.Rename(filepath.Join(from, name), dst); err != nil {
		return &WriteError{Op: "move file into place", Path: dst, Err: err}
	}
	return nil
}

// pruneStale removes top-level JSON files that the new dataset does not
// contain.
func (w *Writer) pruneStale(outDir string, files []file) error {
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f.name] = true
	}

	matches, err := doublestar.Glob(os.DirFS(outDir), "*"+Extension)
	if err != nil {
		return &WriteError{Op: "scan output directory", Path: outDir, Err: err}
	}
	for _, name := range matches {
		if keep[name] || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(outDir, name)
		if err := os.Remove(path); err != nil {
			return &WriteError{Op: "remove stale file", Path: path, Err: err}
		}
		w.logger.Debug("Removed stale file", "path", path)
	}
	return nil
}

// PrintStats writes a human-readable summary of a dataset.
func PrintStats(out io.Writer, s Stats) error {
	_, err := fmt.Fprintf(out,
		"chapters:   %d\ncategories: %d\nqualifiers: %d\nfiles:      %d\nlanguage:   %s\nlanguages:  %s\n",
		s.Chapters, s.Categories, s.Qualifiers, s.Files, s.Language, strings.Join(s.Languages, ", "))
	return err
}
