package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/politpatrick/icf-api/export"
	"github.com/politpatrick/icf-api/storage"
	"github.com/politpatrick/icf-api/vocabulary/icf"
)

// Static serves the lookup operations from a published dataset.
type Static struct {
	store  *storage.Store
	logger *slog.Logger

	mu       sync.Mutex
	loaded   bool
	entities map[string]export.Entity
	chapters []export.ChapterEntry
}

var _ ClassificationService = (*Static)(nil)

// NewStatic creates a service over a dataset store.
func NewStatic(store *storage.Store, logger *slog.Logger) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	return &Static{store: store, logger: logger}
}

// GetICFChapters lists all chapters.
func (s *Static) GetICFChapters(ctx context.Context) ([]export.ChapterEntry, error) {
	return s.store.Chapters(ctx)
}

// GetICFCategories lists the categories of a chapter.
func (s *Static) GetICFCategories(ctx context.Context, chapterCode string) ([]export.CategoryEntry, error) {
	cf, err := s.store.Chapter(ctx, chapterCode)
	if err != nil {
		return nil, err
	}
	return cf.Categories, nil
}

// GetICFCodeInfo returns the detail record of a code. Chapters have no detail
// file; their record is assembled from the chapter list and the direct
// children.
func (s *Static) GetICFCodeInfo(ctx context.Context, code string) (*export.Entity, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if e, ok := s.entities[code]; ok {
		return &e, nil
	}
	ch, ok := s.chapter(code)
	if !ok {
		return nil, fmt.Errorf("get code %q: %w", code, storage.ErrNotFound)
	}
	children := make([]string, 0)
	for _, ref := range s.childrenOf(code) {
		children = append(children, ref.Code)
	}
	return &export.Entity{
		Code:       ch.Code,
		Title:      ch.Title,
		Kind:       string(icf.EntityKindChapter),
		Chapter:    ch.Code,
		Children:   children,
		Qualifiers: []export.Qualifier{},
	}, nil
}

// SearchICF matches the keyword against titles, descriptions, inclusions and
// coding hints. Matching ignores case and Unicode normalisation differences.
// Results are ordered by code.
func (s *Static) SearchICF(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return nil, fmt.Errorf("search: empty keyword: %w", ErrInvalidRequest)
	}
	limit := req.Limit
	switch {
	case limit < 0:
		return nil, fmt.Errorf("search: negative limit %d: %w", limit, ErrInvalidRequest)
	case limit == 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(norm.NFC.String(keyword))
	contains := func(text string) bool {
		return text != "" && strings.Contains(fold.String(norm.NFC.String(text)), needle)
	}

	resp := &SearchResponse{Keyword: keyword, Results: []SearchResult{}}
	for _, code := range s.codes() {
		e := s.entities[code]
		field := matchField(e, contains)
		if field == "" {
			continue
		}
		resp.Total++
		if len(resp.Results) < limit {
			resp.Results = append(resp.Results, SearchResult{
				Code:         e.Code,
				Title:        e.Title,
				Chapter:      e.Chapter,
				MatchedField: field,
			})
		}
	}

	s.logger.Debug("Search complete", "keyword", keyword, "total", resp.Total, "returned", len(resp.Results))
	return resp, nil
}

func matchField(e export.Entity, contains func(string) bool) string {
	switch {
	case contains(e.Title):
		return "title"
	case contains(e.Description):
		return "description"
	}
	for _, inc := range e.Inclusions {
		if contains(inc) {
			return "inclusion"
		}
	}
	for _, hint := range e.CodingHints {
		if contains(hint) {
			return "coding_hint"
		}
	}
	return ""
}

// MapAssessmentToICF needs a language model and is not provided here.
func (s *Static) MapAssessmentToICF(ctx context.Context, req MapAssessmentRequest) (*MapAssessmentResponse, error) {
	return nil, fmt.Errorf("mapAssessmentToICF: %w", ErrNotImplemented)
}

// GenerateCarePlan needs planning logic and is not provided here.
func (s *Static) GenerateCarePlan(ctx context.Context, req CarePlanRequest) (*CarePlanResponse, error) {
	return nil, fmt.Errorf("generateCarePlan: %w", ErrNotImplemented)
}

// TrackProgress needs client records and is not provided here.
func (s *Static) TrackProgress(ctx context.Context, req TrackProgressRequest) (*TrackProgressResponse, error) {
	return nil, fmt.Errorf("trackProgress: %w", ErrNotImplemented)
}

// GetRelatedCodes returns the parent, direct children and siblings of a code.
// Siblings of a chapter are the other chapters.
func (s *Static) GetRelatedCodes(ctx context.Context, code string) (*RelatedCodes, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	related := &RelatedCodes{Code: code, Children: s.childrenOf(code), Siblings: []CodeRef{}}

	if e, ok := s.entities[code]; ok {
		parent, ok := s.ref(e.Parent)
		if !ok {
			return nil, fmt.Errorf("get related codes %q: parent %q: %w", code, e.Parent, storage.ErrNotFound)
		}
		related.Parent = &parent
		for _, sib := range s.childrenOf(e.Parent) {
			if sib.Code != code {
				related.Siblings = append(related.Siblings, sib)
			}
		}
		return related, nil
	}

	if _, ok := s.chapter(code); !ok {
		return nil, fmt.Errorf("get related codes %q: %w", code, storage.ErrNotFound)
	}
	for _, ch := range s.chapters {
		if ch.Code != code {
			related.Siblings = append(related.Siblings, CodeRef{Code: ch.Code, Title: ch.Title})
		}
	}
	return related, nil
}

// SuggestInterventions needs an intervention catalogue and is not provided
// here.
func (s *Static) SuggestInterventions(ctx context.Context, code string) (*InterventionsResponse, error) {
	return nil, fmt.Errorf("suggestInterventions: %w", ErrNotImplemented)
}

// ListEnvironmentalFactors lists the categories of the environment chapter.
func (s *Static) ListEnvironmentalFactors(ctx context.Context) ([]export.CategoryEntry, error) {
	categories, err := s.GetICFCategories(ctx, string(icf.ComponentEnvironment))
	if err != nil {
		return nil, fmt.Errorf("list environmental factors: %w", err)
	}
	return categories, nil
}

// GetICFQualifiers returns the qualifier definitions applicable to a code.
// Chapters carry no qualifiers.
func (s *Static) GetICFQualifiers(ctx context.Context, code string) ([]export.Qualifier, error) {
	e, err := s.GetICFCodeInfo(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.Qualifiers, nil
}

// load reads every entity on first use. A failed load is retried by the
// next call.
func (s *Static) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	chapters, err := s.store.Chapters(ctx)
	if err != nil {
		return fmt.Errorf("load dataset from %s: %w", s.store.Location(), err)
	}
	entities, err := s.store.Entities(ctx)
	if err != nil {
		return fmt.Errorf("load dataset from %s: %w", s.store.Location(), err)
	}

	s.chapters = chapters
	s.entities = make(map[string]export.Entity, len(entities))
	for _, e := range entities {
		s.entities[e.Code] = e
	}
	s.loaded = true
	s.logger.Info("Loaded dataset", "location", s.store.Location(), "chapters", len(chapters), "entities", len(entities))
	return nil
}

func (s *Static) codes() []string {
	codes := make([]string, 0, len(s.entities))
	for code := range s.entities {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (s *Static) chapter(code string) (export.ChapterEntry, bool) {
	for _, ch := range s.chapters {
		if ch.Code == code {
			return ch, true
		}
	}
	return export.ChapterEntry{}, false
}

func (s *Static) ref(code string) (CodeRef, bool) {
	if e, ok := s.entities[code]; ok {
		return CodeRef{Code: e.Code, Title: e.Title}, true
	}
	if ch, ok := s.chapter(code); ok {
		return CodeRef{Code: ch.Code, Title: ch.Title}, true
	}
	return CodeRef{}, false
}

// childrenOf returns the direct children of a code in ascending order.
func (s *Static) childrenOf(code string) []CodeRef {
	out := []CodeRef{}
	for _, c := range s.codes() {
		if e := s.entities[c]; e.Parent == code {
			out = append(out, CodeRef{Code: e.Code, Title: e.Title})
		}
	}
	return out
}
