// Package main generates the OpenAPI document of the ICF API. It combines the
// operations registered by the service package with the files of the static
// dataset, which the default server publishes as they are.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/politpatrick/icf-api/service"
)

// defaultServer is the raw file host the static dataset is published on.
const defaultServer = "https://raw.githubusercontent.com/politpatrick/icf-api/main/icf_json"

const header = `# OpenAPI 3.0 Specification for the ICF API
# Generated by openapi-generator from the service registry and the dataset layout.
# Do not edit by hand.

`

func main() {
	out := flag.String("o", "./specs/openapi.v3.yaml", "Output path of the OpenAPI document")
	server := flag.String("server", defaultServer, "Server URL written into the document")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*out, *server, logger); err != nil {
		logger.Error("OpenAPI generation failed", "error", err)
		os.Exit(1)
	}
}

func run(out, server string, logger *slog.Logger) error {
	specs := service.GetAllOpenAPISpecs()
	doc, err := buildDocument(specs, server)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeDocument(out, doc); err != nil {
		return err
	}
	logger.Info("Generated OpenAPI document",
		"path", out,
		"services", len(specs),
		"paths", len(doc.Paths),
		"schemas", len(doc.Components.Schemas))
	return nil
}

// buildDocument assembles the document. Registered services are visited in
// name order; a path claimed twice or a reference to an unknown component is
// an error.
func buildDocument(specs map[string]*service.OpenAPISpec, server string) (*Document, error) {
	schemas := newSchemaSet()
	paths, err := datasetPaths(schemas)
	if err != nil {
		return nil, fmt.Errorf("describe dataset: %w", err)
	}
	tags := map[string]string{datasetTag: "Files of the published dataset"}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]
		for _, t := range spec.ResponseTypes {
			if _, err := schemas.add(t); err != nil {
				return nil, fmt.Errorf("service %s: %w", name, err)
			}
		}
		for _, tag := range spec.Tags {
			if _, ok := tags[tag.Name]; !ok {
				tags[tag.Name] = tag.Description
			}
		}
		for path, ps := range spec.Paths {
			if _, dup := paths[path]; dup {
				return nil, fmt.Errorf("service %s: path %s already defined", name, path)
			}
			paths[path] = Path{Get: operation(ps.GET), Post: operation(ps.POST)}
		}
	}

	doc := &Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       "ICF API",
			Description: "Lookup and assistance operations over the WHO International Classification of Functioning, Disability and Health",
			Version:     "1.0.0",
		},
		Servers:    []Server{{URL: server, Description: "Static dataset host"}},
		Tags:       sortedTags(tags),
		Paths:      paths,
		Components: Components{Schemas: schemas.schemas},
	}

	var missing []string
	doc.walkSchemas(func(s *Schema) {
		if s.Ref == "" {
			return
		}
		if _, ok := schemas.schemas[strings.TrimPrefix(s.Ref, componentPrefix)]; !ok {
			missing = append(missing, s.Ref)
		}
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("unresolved schema references: %s", strings.Join(missing, ", "))
	}
	return doc, nil
}

// operation converts a registered operation. Response and request schemas
// are references into the registered response types.
func operation(op *service.OperationSpec) *Operation {
	if op == nil {
		return nil
	}
	out := &Operation{
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
		Responses:   make(map[string]Response, len(op.Responses)),
	}
	for _, p := range op.Parameters {
		out.Parameters = append(out.Parameters, Parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required,
			Description: p.Description,
			Schema:      &Schema{Type: p.Schema.Type},
		})
	}
	if op.RequestBodyRef != "" {
		out.RequestBody = &Body{
			Required: true,
			Content:  map[string]Media{"application/json": {Schema: &Schema{Ref: op.RequestBodyRef}}},
		}
	}
	for status, resp := range op.Responses {
		r := Response{Description: resp.Description}
		if resp.SchemaRef != "" {
			schema := &Schema{Ref: resp.SchemaRef}
			if resp.IsArray {
				schema = &Schema{Type: "array", Items: schema}
			}
			contentType := resp.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			r.Content = map[string]Media{contentType: {Schema: schema}}
		}
		out.Responses[status] = r
	}
	return out
}

func sortedTags(tags map[string]string) []Tag {
	out := make([]Tag, 0, len(tags))
	for name, desc := range tags {
		out = append(out, Tag{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// writeDocument writes doc as YAML with a generated-file header.
func writeDocument(path string, doc *Document) error {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
