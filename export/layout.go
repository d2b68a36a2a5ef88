package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FileKind identifies one kind of file in the dataset layout.
type FileKind string

const (
	// FileChapters is the chapter list.
	FileChapters FileKind = "chapters"

	// FileChapter lists the categories of one chapter.
	FileChapter FileKind = "chapter"

	// FileEntity holds the detail record of one category.
	FileEntity FileKind = "entity"

	// FileIndex maps every code to the file that describes it.
	FileIndex FileKind = "index"

	// FileFlat maps every code to its detail record in one document.
	FileFlat FileKind = "flat"
)

// Fixed file names of the layout.
const (
	ChaptersFile = "chapters.json"
	IndexFile    = "index.json"
	FlatFile     = "icf_flat.json"
)

// Extension is the file extension of every dataset file.
const Extension = ".json"

// MIMEType is the content type the dataset is served with.
const MIMEType = "application/json"

// FileInfo describes one file kind of the layout.
type FileInfo struct {
	// Kind is the file kind identifier.
	Kind FileKind

	// Pattern is the file name, with <code> standing for a class code.
	Pattern string

	// Description describes the content.
	Description string
}

// Layout contains metadata for every file kind of the dataset.
var Layout = map[FileKind]FileInfo{
	FileChapters: {
		Kind:        FileChapters,
		Pattern:     ChaptersFile,
		Description: "Chapters ordered by code",
	},
	FileChapter: {
		Kind:        FileChapter,
		Pattern:     "<code>.json",
		Description: "Categories of one chapter",
	},
	FileEntity: {
		Kind:        FileEntity,
		Pattern:     "<code>.json",
		Description: "Detail record of one category with its qualifiers",
	},
	FileIndex: {
		Kind:        FileIndex,
		Pattern:     IndexFile,
		Description: "Map of code to file name",
	},
	FileFlat: {
		Kind:        FileFlat,
		Pattern:     FlatFile,
		Description: "Map of code to detail record, written in flatten mode",
	},
}

// GetFileInfo returns metadata for a file kind.
func GetFileInfo(kind FileKind) (FileInfo, bool) {
	info, ok := Layout[kind]
	return info, ok
}

// FileName returns the name of the chapter or entity file for a code.
func FileName(code string) string {
	return code + Extension
}

// Encode renders v the way every dataset file is written: two-space
// indentation, no HTML escaping, trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// file is one encoded file of a dataset.
type file struct {
	name string
	data []byte
}

// files encodes the dataset into its layout. chapters.json comes first.
func (ds *Dataset) files() ([]file, error) {
	var out []file
	add := func(name string, v any) error {
		data, err := Encode(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		out = append(out, file{name: name, data: data})
		return nil
	}

	chapters := ds.Chapters
	if chapters == nil {
		chapters = []ChapterEntry{}
	}
	if err := add(ChaptersFile, chapters); err != nil {
		return nil, err
	}

	index := make(map[string]string, len(ds.Chapters)+len(ds.Entities))
	for _, ch := range ds.Chapters {
		categories := ds.Categories[ch.Code]
		if categories == nil {
			categories = []CategoryEntry{}
		}
		name := FileName(ch.Code)
		if err := add(name, ChapterFile{Categories: categories}); err != nil {
			return nil, err
		}
		index[ch.Code] = name
	}

	for _, e := range ds.Entities {
		name := FileName(e.Code)
		if _, dup := index[e.Code]; dup {
			return nil, fmt.Errorf("duplicate file %s", name)
		}
		if err := add(name, e); err != nil {
			return nil, err
		}
		index[e.Code] = name
	}

	if err := add(IndexFile, index); err != nil {
		return nil, err
	}

	if ds.Flat {
		flat := make(map[string]Entity, len(ds.Entities))
		for _, e := range ds.Entities {
			flat[e.Code] = e
		}
		if err := add(FlatFile, flat); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stats counts the content of the dataset. Files is the number of files
// Write produces.
func (ds *Dataset) Stats() Stats {
	s := Stats{
		Chapters:   len(ds.Chapters),
		Categories: len(ds.Entities),
		Qualifiers: ds.Qualifiers,
		Files:      1 + len(ds.Chapters) + len(ds.Entities) + 1,
		Language:   ds.Language,
		Languages:  append([]string(nil), ds.Languages...),
	}
	if ds.Flat {
		s.Files++
	}
	sort.Strings(s.Languages)
	return s
}
