// Package export defines the published JSON dataset layout and writes it to
// disk as a single all-or-nothing operation.
package export

// ChapterEntry is one element of chapters.json.
type ChapterEntry struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// CategoryEntry is one element of a chapter file's categories list.
type CategoryEntry struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ChapterFile is the content of <chapterCode>.json.
type ChapterFile struct {
	Categories []CategoryEntry `json:"categories"`
}

// Qualifier is a qualifier definition applicable to an entity.
type Qualifier struct {
	Scale       string `json:"scale"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Entity is the content of <code>.json, the full detail of one category.
type Entity struct {
	Code                string      `json:"code"`
	Title               string      `json:"title"`
	Description         string      `json:"description,omitempty"`
	DescriptionMarkdown string      `json:"description_markdown,omitempty"`
	Kind                string      `json:"kind,omitempty"`
	Chapter             string      `json:"chapter"`
	Parent              string      `json:"parent"`
	Children            []string    `json:"children"`
	Inclusions          []string    `json:"inclusions,omitempty"`
	Exclusions          []string    `json:"exclusions,omitempty"`
	CodingHints         []string    `json:"coding_hints,omitempty"`
	Notes               []string    `json:"notes,omitempty"`
	Qualifiers          []Qualifier `json:"qualifiers"`
}

// Dataset is the flattened form of a classification, ready to be written.
type Dataset struct {
	// Language is the tag all texts are in.
	Language string

	// Chapters in ascending code order.
	Chapters []ChapterEntry

	// Categories maps a chapter code to the entries of its chapter file.
	Categories map[string][]CategoryEntry

	// Entities holds the detail record of every non-chapter class in
	// ascending code order.
	Entities []Entity

	// Flat adds icf_flat.json, a single map of every entity by code.
	Flat bool

	// Qualifiers is the number of qualifier definitions in the source.
	Qualifiers int

	// Languages lists the tags present in the source document.
	Languages []string
}

// Stats summarises a written dataset.
type Stats struct {
	Chapters   int
	Categories int
	Qualifiers int
	Files      int
	Language   string
	Languages  []string
}
