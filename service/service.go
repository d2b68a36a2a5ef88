// Package service defines the lookup service an assistant calls to browse
// and search the ICF dataset, together with its OpenAPI description.
//
// Static implements the lookups that are plain reads of a published dataset.
// Operations that need assessment data or recommendation logic return
// ErrNotImplemented; a backend that has them can satisfy
// ClassificationService without changes to the dataset or the compiler.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/politpatrick/icf-api/export"
)

var (
	// ErrNotImplemented is returned by operations a backend does not provide.
	ErrNotImplemented = errors.New("operation not implemented")

	// ErrInvalidRequest is returned for requests that fail validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// ClassificationService is the contract of the ICF lookup API. Each method
// corresponds to one OpenAPI operation of the same name.
type ClassificationService interface {
	// GetICFChapters lists all chapters.
	GetICFChapters(ctx context.Context) ([]export.ChapterEntry, error)

	// GetICFCategories lists the categories of a chapter.
	GetICFCategories(ctx context.Context, chapterCode string) ([]export.CategoryEntry, error)

	// GetICFCodeInfo returns the detail record of a chapter or category.
	GetICFCodeInfo(ctx context.Context, code string) (*export.Entity, error)

	// SearchICF finds codes whose texts contain a keyword.
	SearchICF(ctx context.Context, req SearchRequest) (*SearchResponse, error)

	// MapAssessmentToICF suggests codes for a free-text assessment.
	MapAssessmentToICF(ctx context.Context, req MapAssessmentRequest) (*MapAssessmentResponse, error)

	// GenerateCarePlan drafts a care plan from an ICF profile and goals.
	GenerateCarePlan(ctx context.Context, req CarePlanRequest) (*CarePlanResponse, error)

	// TrackProgress reports qualifier changes of a client over time.
	TrackProgress(ctx context.Context, req TrackProgressRequest) (*TrackProgressResponse, error)

	// GetRelatedCodes returns the parent, children and siblings of a code.
	GetRelatedCodes(ctx context.Context, code string) (*RelatedCodes, error)

	// SuggestInterventions proposes interventions for a code.
	SuggestInterventions(ctx context.Context, code string) (*InterventionsResponse, error)

	// ListEnvironmentalFactors lists the categories of the environment component.
	ListEnvironmentalFactors(ctx context.Context) ([]export.CategoryEntry, error)

	// GetICFQualifiers returns the qualifier definitions applicable to a code.
	GetICFQualifiers(ctx context.Context, code string) ([]export.Qualifier, error)
}

// SearchRequest is the input of SearchICF.
type SearchRequest struct {
	Keyword string `json:"keyword" description:"Text to look for, case-insensitive"`
	Limit   int    `json:"limit,omitempty" description:"Maximum number of results, default 20, at most 100"`
}

// SearchResult is one hit of SearchICF.
type SearchResult struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	Chapter      string `json:"chapter"`
	MatchedField string `json:"matched_field" description:"title, description, inclusion or coding_hint"`
}

// SearchResponse is the output of SearchICF.
type SearchResponse struct {
	Keyword string         `json:"keyword"`
	Total   int            `json:"total" description:"Number of matches before the limit was applied"`
	Results []SearchResult `json:"results"`
}

// MapAssessmentRequest is the input of MapAssessmentToICF.
type MapAssessmentRequest struct {
	FreeText string `json:"free_text" description:"Assessment notes in natural language"`
}

// CodeSuggestion is a code proposed for an assessment.
type CodeSuggestion struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Qualifier  string  `json:"qualifier,omitempty"`
	Confidence float64 `json:"confidence"`
}

// MapAssessmentResponse is the output of MapAssessmentToICF.
type MapAssessmentResponse struct {
	Suggestions []CodeSuggestion `json:"suggestions"`
}

// ProfileEntry is one coded finding of an ICF profile.
type ProfileEntry struct {
	Code      string `json:"code"`
	Qualifier string `json:"qualifier,omitempty"`
}

// CarePlanRequest is the input of GenerateCarePlan.
type CarePlanRequest struct {
	ICFProfile []ProfileEntry `json:"icf_profile"`
	Goals      []string       `json:"goals"`
}

// CarePlanGoal is one goal of a care plan with its measures.
type CarePlanGoal struct {
	Goal          string         `json:"goal"`
	Codes         []string       `json:"codes"`
	Interventions []Intervention `json:"interventions"`
}

// CarePlanResponse is the output of GenerateCarePlan.
type CarePlanResponse struct {
	Goals []CarePlanGoal `json:"goals"`
}

// TimeRange bounds a progress query.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TrackProgressRequest is the input of TrackProgress.
type TrackProgressRequest struct {
	ClientID  string    `json:"client_id"`
	TimeRange TimeRange `json:"time_range"`
}

// ProgressEntry is a qualifier recorded for a code at a point in time.
type ProgressEntry struct {
	Code      string    `json:"code"`
	Qualifier string    `json:"qualifier"`
	Date      time.Time `json:"date"`
}

// TrackProgressResponse is the output of TrackProgress.
type TrackProgressResponse struct {
	ClientID string          `json:"client_id"`
	Entries  []ProgressEntry `json:"entries"`
}

// CodeRef names a code with its title.
type CodeRef struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// RelatedCodes is the output of GetRelatedCodes.
type RelatedCodes struct {
	Code     string    `json:"code"`
	Parent   *CodeRef  `json:"parent,omitempty"`
	Children []CodeRef `json:"children"`
	Siblings []CodeRef `json:"siblings"`
}

// Intervention is a measure addressing a code.
type Intervention struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// InterventionsResponse is the output of SuggestInterventions.
type InterventionsResponse struct {
	Code          string         `json:"code"`
	Interventions []Intervention `json:"interventions"`
}
