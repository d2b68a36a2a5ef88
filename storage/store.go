// Package storage reads a published ICF dataset from a local directory or a
// raw file host.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/politpatrick/icf-api/export"
	"github.com/politpatrick/icf-api/source/claml"
)

// Store provides typed access to the dataset files of a backend. File
// contents are cached for the lifetime of the store.
type Store struct {
	backend Backend

	mu    sync.Mutex
	cache map[string][]byte
}

// NewStore creates a store over a backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		cache:   make(map[string][]byte),
	}
}

// Open creates a store for a location: an http or https base URL, or a
// directory path.
func Open(location string) (*Store, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		b, err := NewHTTPBackend(location, nil)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return NewStore(b), nil
	}
	return NewStore(NewDirBackend(location)), nil
}

// Location describes where the store reads from.
func (s *Store) Location() string { return s.backend.String() }

// Chapters returns the chapter list.
func (s *Store) Chapters(ctx context.Context) ([]export.ChapterEntry, error) {
	var chapters []export.ChapterEntry
	if err := s.load(ctx, export.ChaptersFile, &chapters); err != nil {
		return nil, fmt.Errorf("get chapters: %w", err)
	}
	return chapters, nil
}

// Chapter returns the category list of a chapter.
func (s *Store) Chapter(ctx context.Context, code string) (*export.ChapterFile, error) {
	if err := s.isChapter(ctx, code); err != nil {
		return nil, err
	}
	var cf export.ChapterFile
	if err := s.load(ctx, export.FileName(code), &cf); err != nil {
		return nil, fmt.Errorf("get chapter %s: %w", code, err)
	}
	return &cf, nil
}

// Entity returns the detail record of a category.
func (s *Store) Entity(ctx context.Context, code string) (*export.Entity, error) {
	if err := claml.ValidateCode(code); err != nil {
		return nil, fmt.Errorf("get entity %q: %w: %v", code, ErrInvalidCode, err)
	}
	if err := s.isChapter(ctx, code); err == nil {
		return nil, fmt.Errorf("get entity %s: is a chapter: %w", code, ErrNotFound)
	}
	var e export.Entity
	if err := s.load(ctx, export.FileName(code), &e); err != nil {
		return nil, fmt.Errorf("get entity %s: %w", code, err)
	}
	return &e, nil
}

// Index returns the map of code to file name.
func (s *Store) Index(ctx context.Context) (map[string]string, error) {
	index := make(map[string]string)
	if err := s.load(ctx, export.IndexFile, &index); err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	return index, nil
}

// Entities returns every detail record in ascending code order. The flat
// file is used when the dataset has one; otherwise each entity listed in the
// index is read.
func (s *Store) Entities(ctx context.Context) ([]export.Entity, error) {
	flat := make(map[string]export.Entity)
	err := s.load(ctx, export.FlatFile, &flat)
	switch {
	case err == nil:
		out := make([]export.Entity, 0, len(flat))
		for _, e := range flat {
			out = append(out, e)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
		return out, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("get entities: %w", err)
	}

	index, err := s.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	chapters, err := s.chapterSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}

	codes := make([]string, 0, len(index))
	for code := range index {
		if !chapters[code] {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	out := make([]export.Entity, 0, len(codes))
	for _, code := range codes {
		e, err := s.Entity(ctx, code)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *Store) isChapter(ctx context.Context, code string) error {
	chapters, err := s.chapterSet(ctx)
	if err != nil {
		return err
	}
	if !chapters[code] {
		return fmt.Errorf("chapter %q: %w", code, ErrNotFound)
	}
	return nil
}

func (s *Store) chapterSet(ctx context.Context) (map[string]bool, error) {
	chapters, err := s.Chapters(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(chapters))
	for _, ch := range chapters {
		set[ch.Code] = true
	}
	return set, nil
}

// load decodes a dataset file into v, which must be a pointer. Repeated loads
// of the same file are served from the cache.
func (s *Store) load(ctx context.Context, name string, v any) error {
	s.mu.Lock()
	data, ok := s.cache[name]
	s.mu.Unlock()

	if !ok {
		var err error
		data, err = s.backend.Read(ctx, name)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.cache[name] = data
		s.mu.Unlock()
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
