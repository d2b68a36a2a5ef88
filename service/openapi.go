package service

import (
	"reflect"
	"sync"

	"github.com/politpatrick/icf-api/export"
)

// OpenAPISpec describes the HTTP surface of a service.
type OpenAPISpec struct {
	Tags          []TagSpec
	Paths         map[string]PathSpec
	ResponseTypes []reflect.Type
}

// TagSpec groups operations.
type TagSpec struct {
	Name        string
	Description string
}

// PathSpec lists the operations of one path.
type PathSpec struct {
	GET  *OperationSpec
	POST *OperationSpec
}

// OperationSpec describes one operation.
type OperationSpec struct {
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Parameters  []ParameterSpec

	// RequestBodyRef references the schema of a JSON request body.
	RequestBodyRef string

	Responses map[string]ResponseSpec
}

// ParameterSpec describes a path or query parameter.
type ParameterSpec struct {
	Name        string
	In          string
	Required    bool
	Description string
	Schema      Schema
}

// Schema is an inline parameter schema.
type Schema struct {
	Type string
}

// ResponseSpec describes one response of an operation.
type ResponseSpec struct {
	Description string
	ContentType string
	SchemaRef   string
	IsArray     bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*OpenAPISpec)
)

// RegisterOpenAPISpec makes a spec available to the generator.
func RegisterOpenAPISpec(name string, spec *OpenAPISpec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = spec
}

// GetAllOpenAPISpecs returns every registered spec by name.
func GetAllOpenAPISpecs() map[string]*OpenAPISpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]*OpenAPISpec, len(registry))
	for name, spec := range registry {
		out[name] = spec
	}
	return out
}

func init() {
	RegisterOpenAPISpec("classification", ClassificationOpenAPISpec())
}

const (
	tagLookup   = "Lookup"
	tagAssist   = "Assistance"
	contentJSON = export.MIMEType
)

func codeParam(name, description string) ParameterSpec {
	return ParameterSpec{Name: name, In: "path", Required: true, Description: description, Schema: Schema{Type: "string"}}
}

func jsonResponse(description, schema string, array bool) ResponseSpec {
	return ResponseSpec{Description: description, ContentType: contentJSON, SchemaRef: "#/components/schemas/" + schema, IsArray: array}
}

// ClassificationOpenAPISpec returns the OpenAPI description of
// ClassificationService.
func ClassificationOpenAPISpec() *OpenAPISpec {
	notFound := ResponseSpec{Description: "Unknown code"}
	notImplemented := ResponseSpec{Description: "Operation not provided by this backend"}

	return &OpenAPISpec{
		Tags: []TagSpec{
			{Name: tagLookup, Description: "Browse and search the ICF classification"},
			{Name: tagAssist, Description: "Assessment mapping, care planning and progress tracking"},
		},
		Paths: map[string]PathSpec{
			"/chapters": {
				GET: &OperationSpec{
					OperationID: "getICFChapters",
					Summary:     "List chapters",
					Description: "Returns the ICF chapters ordered by code",
					Tags:        []string{tagLookup},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Chapters", "ChapterEntry", true),
					},
				},
			},
			"/chapters/{chapterCode}/categories": {
				GET: &OperationSpec{
					OperationID: "getICFCategories",
					Summary:     "List categories of a chapter",
					Tags:        []string{tagLookup},
					Parameters:  []ParameterSpec{codeParam("chapterCode", "Chapter code, e.g. b")},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Categories of the chapter", "CategoryEntry", true),
						"404": notFound,
					},
				},
			},
			"/codes/{code}": {
				GET: &OperationSpec{
					OperationID: "getICFCodeInfo",
					Summary:     "Get code details",
					Description: "Returns title, description, hierarchy and qualifiers of a code",
					Tags:        []string{tagLookup},
					Parameters:  []ParameterSpec{codeParam("code", "ICF code, e.g. b110")},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Code details", "Entity", false),
						"404": notFound,
					},
				},
			},
			"/search": {
				GET: &OperationSpec{
					OperationID: "searchICF",
					Summary:     "Search codes",
					Description: "Finds codes whose title, description, inclusions or coding hints contain the keyword",
					Tags:        []string{tagLookup},
					Parameters: []ParameterSpec{
						{Name: "keyword", In: "query", Required: true, Description: "Search text", Schema: Schema{Type: "string"}},
						{Name: "limit", In: "query", Description: "Maximum number of results (default 20, max 100)", Schema: Schema{Type: "integer"}},
					},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Matching codes", "SearchResponse", false),
						"400": {Description: "Missing keyword or invalid limit"},
					},
				},
			},
			"/assessments/map": {
				POST: &OperationSpec{
					OperationID:    "mapAssessmentToICF",
					Summary:        "Map an assessment to ICF codes",
					Tags:           []string{tagAssist},
					RequestBodyRef: "#/components/schemas/MapAssessmentRequest",
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Suggested codes", "MapAssessmentResponse", false),
						"501": notImplemented,
					},
				},
			},
			"/care-plans": {
				POST: &OperationSpec{
					OperationID:    "generateCarePlan",
					Summary:        "Generate a care plan",
					Tags:           []string{tagAssist},
					RequestBodyRef: "#/components/schemas/CarePlanRequest",
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Care plan", "CarePlanResponse", false),
						"501": notImplemented,
					},
				},
			},
			"/progress": {
				POST: &OperationSpec{
					OperationID:    "trackProgress",
					Summary:        "Track progress of a client",
					Tags:           []string{tagAssist},
					RequestBodyRef: "#/components/schemas/TrackProgressRequest",
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Progress entries", "TrackProgressResponse", false),
						"501": notImplemented,
					},
				},
			},
			"/codes/{code}/related": {
				GET: &OperationSpec{
					OperationID: "getRelatedCodes",
					Summary:     "Get related codes",
					Description: "Returns parent, children and siblings of a code",
					Tags:        []string{tagLookup},
					Parameters:  []ParameterSpec{codeParam("code", "ICF code")},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Related codes", "RelatedCodes", false),
						"404": notFound,
					},
				},
			},
			"/codes/{code}/interventions": {
				GET: &OperationSpec{
					OperationID: "suggestInterventions",
					Summary:     "Suggest interventions",
					Tags:        []string{tagAssist},
					Parameters:  []ParameterSpec{codeParam("code", "ICF code")},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Suggested interventions", "InterventionsResponse", false),
						"501": notImplemented,
					},
				},
			},
			"/environmental-factors": {
				GET: &OperationSpec{
					OperationID: "listEnvironmentalFactors",
					Summary:     "List environmental factors",
					Description: "Returns the categories of the environmental factors component (e)",
					Tags:        []string{tagLookup},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Environmental factor categories", "CategoryEntry", true),
					},
				},
			},
			"/codes/{code}/qualifiers": {
				GET: &OperationSpec{
					OperationID: "getICFQualifiers",
					Summary:     "Get qualifiers of a code",
					Tags:        []string{tagLookup},
					Parameters:  []ParameterSpec{codeParam("code", "ICF code")},
					Responses: map[string]ResponseSpec{
						"200": jsonResponse("Applicable qualifier definitions", "Qualifier", true),
						"404": notFound,
					},
				},
			},
		},
		ResponseTypes: []reflect.Type{
			reflect.TypeOf(export.ChapterEntry{}),
			reflect.TypeOf(export.CategoryEntry{}),
			reflect.TypeOf(export.Entity{}),
			reflect.TypeOf(export.Qualifier{}),
			reflect.TypeOf(SearchResponse{}),
			reflect.TypeOf(SearchResult{}),
			reflect.TypeOf(MapAssessmentRequest{}),
			reflect.TypeOf(MapAssessmentResponse{}),
			reflect.TypeOf(CarePlanRequest{}),
			reflect.TypeOf(CarePlanResponse{}),
			reflect.TypeOf(TrackProgressRequest{}),
			reflect.TypeOf(TrackProgressResponse{}),
			reflect.TypeOf(RelatedCodes{}),
			reflect.TypeOf(InterventionsResponse{}),
		},
	}
}

// OperationIDs returns the operation ids of a spec.
func (s *OpenAPISpec) OperationIDs() []string {
	var ids []string
	for _, p := range s.Paths {
		for _, op := range []*OperationSpec{p.GET, p.POST} {
			if op != nil && op.OperationID != "" {
				ids = append(ids, op.OperationID)
			}
		}
	}
	return ids
}
