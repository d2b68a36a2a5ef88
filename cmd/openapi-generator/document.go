package main

// Document is an OpenAPI 3.0 document.
type Document struct {
	OpenAPI    string          `yaml:"openapi"`
	Info       Info            `yaml:"info"`
	Servers    []Server        `yaml:"servers"`
	Tags       []Tag           `yaml:"tags"`
	Paths      map[string]Path `yaml:"paths"`
	Components Components      `yaml:"components"`
}

type Info struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type Tag struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Components struct {
	Schemas map[string]*Schema `yaml:"schemas"`
}

// Path holds the operations of one path. The ICF contract only reads and
// submits, so GET and POST are all there is.
type Path struct {
	Get  *Operation `yaml:"get,omitempty"`
	Post *Operation `yaml:"post,omitempty"`
}

func (p Path) operations() []*Operation {
	var ops []*Operation
	for _, op := range []*Operation{p.Get, p.Post} {
		if op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

type Operation struct {
	OperationID string              `yaml:"operationId"`
	Summary     string              `yaml:"summary"`
	Description string              `yaml:"description,omitempty"`
	Tags        []string            `yaml:"tags,omitempty"`
	Parameters  []Parameter         `yaml:"parameters,omitempty"`
	RequestBody *Body               `yaml:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses"`
}

type Parameter struct {
	Name        string  `yaml:"name"`
	In          string  `yaml:"in"`
	Required    bool    `yaml:"required,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Schema      *Schema `yaml:"schema"`
}

type Body struct {
	Required bool             `yaml:"required"`
	Content  map[string]Media `yaml:"content"`
}

type Response struct {
	Description string           `yaml:"description"`
	Content     map[string]Media `yaml:"content,omitempty"`
}

type Media struct {
	Schema *Schema `yaml:"schema"`
}

// Schema is the subset of JSON Schema the dataset and contract types need.
// A schema with Ref set carries nothing else.
type Schema struct {
	Ref                  string             `yaml:"$ref,omitempty"`
	Type                 string             `yaml:"type,omitempty"`
	Format               string             `yaml:"format,omitempty"`
	Description          string             `yaml:"description,omitempty"`
	Nullable             bool               `yaml:"nullable,omitempty"`
	Items                *Schema            `yaml:"items,omitempty"`
	Properties           map[string]*Schema `yaml:"properties,omitempty"`
	Required             []string           `yaml:"required,omitempty"`
	AdditionalProperties *Schema            `yaml:"additionalProperties,omitempty"`
	OneOf                []*Schema          `yaml:"oneOf,omitempty"`
}

// walk calls fn for s and every schema nested in it.
func (s *Schema) walk(fn func(*Schema)) {
	if s == nil {
		return
	}
	fn(s)
	s.Items.walk(fn)
	s.AdditionalProperties.walk(fn)
	for _, p := range s.Properties {
		p.walk(fn)
	}
	for _, alt := range s.OneOf {
		alt.walk(fn)
	}
}

// walkSchemas visits every schema of the document, in paths and components.
func (d *Document) walkSchemas(fn func(*Schema)) {
	for _, s := range d.Components.Schemas {
		s.walk(fn)
	}
	for _, p := range d.Paths {
		for _, op := range p.operations() {
			for _, param := range op.Parameters {
				param.Schema.walk(fn)
			}
			if op.RequestBody != nil {
				for _, m := range op.RequestBody.Content {
					m.Schema.walk(fn)
				}
			}
			for _, r := range op.Responses {
				for _, m := range r.Content {
					m.Schema.walk(fn)
				}
			}
		}
	}
}
