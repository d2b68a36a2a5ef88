package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Report lists the problems found in a dataset directory.
type Report struct {
	Chapters   int
	Categories int
	Files      int
	Problems   []string
}

// OK reports whether the dataset passed every check.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks a dataset directory: chapters.json is sorted and unique,
// every chapter file exists, every category code extends its chapter code,
// every index entry exists, and no JSON file is left unreferenced.
// The returned error is only set when the directory cannot be read at all.
func Verify(dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open dataset %s: not a directory", dir)
	}
	return VerifyFS(os.DirFS(dir))
}

// VerifyFS runs the checks of Verify against any file system.
func VerifyFS(fsys fs.FS) (*Report, error) {
	r := &Report{}
	referenced := map[string]bool{ChaptersFile: true}

	var chapters []ChapterEntry
	if err := readJSON(fsys, ChaptersFile, &chapters); err != nil {
		r.addf("%s: %v", ChaptersFile, err)
		return r, nil
	}
	r.Chapters = len(chapters)

	codes := make([]string, len(chapters))
	for i, ch := range chapters {
		codes[i] = ch.Code
	}
	if !sort.StringsAreSorted(codes) {
		r.addf("%s: chapters are not sorted by code", ChaptersFile)
	}

	seen := make(map[string]string)
	for _, ch := range chapters {
		if ch.Code == "" {
			r.addf("%s: chapter with empty code", ChaptersFile)
			continue
		}
		if _, dup := seen[ch.Code]; dup {
			r.addf("%s: duplicate chapter %q", ChaptersFile, ch.Code)
			continue
		}
		seen[ch.Code] = ch.Code

		name := FileName(ch.Code)
		referenced[name] = true
		var cf ChapterFile
		if err := readJSON(fsys, name, &cf); err != nil {
			r.addf("%s: %v", name, err)
			continue
		}
		for _, cat := range cf.Categories {
			r.Categories++
			if len(cat.Code) <= len(ch.Code) || !strings.HasPrefix(cat.Code, ch.Code) {
				r.addf("%s: category %q does not extend chapter code %q", name, cat.Code, ch.Code)
			}
			if owner, dup := seen[cat.Code]; dup {
				r.addf("%s: category %q already listed under %q", name, cat.Code, owner)
				continue
			}
			seen[cat.Code] = ch.Code
		}
	}

	index := make(map[string]string)
	if err := readJSON(fsys, IndexFile, &index); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.addf("%s: %v", IndexFile, err)
		}
	} else {
		referenced[IndexFile] = true
	}
	for code, name := range index {
		if name != FileName(code) {
			r.addf("%s: code %q maps to %q", IndexFile, code, name)
		}
		if _, err := fs.Stat(fsys, name); err != nil {
			r.addf("%s: code %q: %v", IndexFile, code, err)
		}
		referenced[name] = true
	}

	if _, err := fs.Stat(fsys, FlatFile); err == nil {
		referenced[FlatFile] = true
	}

	matches, err := doublestar.Glob(fsys, "**/*"+Extension)
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	for _, name := range matches {
		if hidden(name) {
			continue
		}
		r.Files++
		if !referenced[name] {
			r.addf("%s: orphan file", name)
		}
	}
	return r, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// hidden reports whether any element of a slash-separated path starts with a
// dot, such as an abandoned staging directory.
func hidden(name string) bool {
	for _, part := range strings.Split(path.Clean(name), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
