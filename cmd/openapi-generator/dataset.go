package main

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/politpatrick/icf-api/export"
)

const datasetTag = "Dataset"

// datasetContent returns the schema of the content of one file kind.
func datasetContent(kind export.FileKind) (*Schema, bool) {
	switch kind {
	case export.FileChapters:
		return &Schema{Type: "array", Items: ref("ChapterEntry")}, true
	case export.FileChapter:
		return ref("ChapterFile"), true
	case export.FileEntity:
		return ref("Entity"), true
	case export.FileIndex:
		return &Schema{Type: "object", AdditionalProperties: &Schema{Type: "string"}}, true
	case export.FileFlat:
		return &Schema{Type: "object", AdditionalProperties: ref("Entity")}, true
	}
	return nil, false
}

// datasetPaths describes every file of the dataset layout as a GET on the
// dataset host. Kinds that share a file name pattern, chapter and entity
// files, are served by one path whose content is either schema.
func datasetPaths(schemas *schemaSet) (map[string]Path, error) {
	for _, t := range []reflect.Type{
		reflect.TypeOf(export.ChapterEntry{}),
		reflect.TypeOf(export.ChapterFile{}),
		reflect.TypeOf(export.Entity{}),
	} {
		if _, err := schemas.add(t); err != nil {
			return nil, err
		}
	}

	kinds := make([]export.FileKind, 0, len(export.Layout))
	for kind := range export.Layout {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	byPattern := make(map[string][]export.FileInfo)
	for _, kind := range kinds {
		info := export.Layout[kind]
		byPattern[info.Pattern] = append(byPattern[info.Pattern], info)
	}

	title := cases.Title(language.Und)
	paths := make(map[string]Path, len(byPattern))
	for pattern, infos := range byPattern {
		var (
			alts    []*Schema
			names   []string
			summary []string
		)
		for _, info := range infos {
			content, ok := datasetContent(info.Kind)
			if !ok {
				return nil, fmt.Errorf("dataset file %s: no schema for kind %s", pattern, info.Kind)
			}
			alts = append(alts, content)
			names = append(names, title.String(string(info.Kind)))
			summary = append(summary, info.Description)
		}

		content := alts[0]
		if len(alts) > 1 {
			content = &Schema{OneOf: alts}
		}

		path := "/" + strings.ReplaceAll(pattern, "<code>", "{code}")
		op := &Operation{
			OperationID: "get" + strings.Join(names, "Or") + "File",
			Summary:     strings.Join(summary, ", or "),
			Tags:        []string{datasetTag},
			Responses: map[string]Response{
				"200": {Description: pattern, Content: map[string]Media{export.MIMEType: {Schema: content}}},
				"404": {Description: "File not in the dataset"},
			},
		}
		if strings.Contains(path, "{code}") {
			op.Parameters = []Parameter{{
				Name:        "code",
				In:          "path",
				Required:    true,
				Description: "Chapter or category code, e.g. b or b110",
				Schema:      &Schema{Type: "string"},
			}}
		}
		paths[path] = Path{Get: op}
	}
	return paths, nil
}
