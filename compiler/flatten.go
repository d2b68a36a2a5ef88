package compiler

import (
	"fmt"
	"strings"

	"github.com/politpatrick/icf-api/export"
	"github.com/politpatrick/icf-api/source/claml"
	"github.com/politpatrick/icf-api/source/richtext"
	"github.com/politpatrick/icf-api/vocabulary/icf"
)

// Clean returns a copy of tree with every label text normalised by
// richtext.Clean. Markup is left as is for Markdown rendering.
func (c *Compiler) Clean(tree *claml.Tree) (*claml.Tree, error) {
	out, err := tree.Transform(func(_ claml.Ref, labels claml.Labels) (claml.Labels, error) {
		cleaned := make(claml.Labels, len(labels))
		for tag, label := range labels {
			label.Text = richtext.Clean(label.Text)
			cleaned[tag] = label
		}
		return cleaned, nil
	})
	if err != nil {
		return nil, fmt.Errorf("clean labels: %w", err)
	}
	return out, nil
}

// Flatten turns a tree into the dataset layout. Texts are taken in the
// tree's only language after SelectLanguage, otherwise in its default
// language.
func (c *Compiler) Flatten(tree *claml.Tree) (*export.Dataset, error) {
	lang := tree.DefaultLanguage()
	if langs := tree.Languages(); len(langs) == 1 {
		lang = langs[0]
	}
	f := &flattener{c: c, tree: tree, lang: lang}

	ds := &export.Dataset{
		Language:   lang,
		Chapters:   []export.ChapterEntry{},
		Categories: make(map[string][]export.CategoryEntry),
		Entities:   []export.Entity{},
		Flat:       c.opts.Flatten,
		Qualifiers: tree.Stats().Qualifiers,
		Languages:  c.sourceLanguages,
	}
	if ds.Languages == nil {
		ds.Languages = tree.Languages()
	}

	for _, code := range tree.Chapters() {
		ch, _ := tree.Class(code)
		ds.Chapters = append(ds.Chapters, export.ChapterEntry{Code: code, Title: f.text(ch.Title())})

		members := ch.Children
		if c.opts.Flatten {
			members = f.descendants(code)
		}
		entries := make([]export.CategoryEntry, 0, len(members))
		for _, m := range members {
			cls, _ := tree.Class(m)
			entries = append(entries, export.CategoryEntry{
				Code:        m,
				Title:       f.text(cls.Title()),
				Description: f.text(cls.Description()),
			})
		}
		ds.Categories[code] = entries
	}

	for _, code := range tree.Codes() {
		cls, _ := tree.Class(code)
		if cls.Kind == icf.EntityKindChapter {
			continue
		}
		entity, err := f.entity(cls)
		if err != nil {
			return nil, err
		}
		ds.Entities = append(ds.Entities, entity)
	}

	c.logger.Debug("Flattened classification",
		"lang", lang,
		"chapters", len(ds.Chapters),
		"entities", len(ds.Entities),
		"flatten", c.opts.Flatten)
	return ds, nil
}

type flattener struct {
	c    *Compiler
	tree *claml.Tree
	lang string
}

func (f *flattener) text(labels claml.Labels) string {
	return labels[f.lang].Text
}

func (f *flattener) texts(rubrics []claml.Rubric) []string {
	var out []string
	for _, r := range rubrics {
		if t := f.text(r.Labels); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// descendants lists every class below code depth-first, children in
// ascending code order.
func (f *flattener) descendants(code string) []string {
	var out []string
	var walk func(string)
	walk = func(c string) {
		cls, _ := f.tree.Class(c)
		for _, child := range cls.Children {
			out = append(out, child)
			walk(child)
		}
	}
	walk(code)
	return out
}

func (f *flattener) entity(cls *claml.Class) (export.Entity, error) {
	chapter, _ := f.tree.ChapterOf(cls.Code)
	if len(cls.Code) <= len(chapter) || !strings.HasPrefix(cls.Code, chapter) {
		err := &claml.StructureError{
			Element: "Class",
			Code:    cls.Code,
			Reason:  fmt.Sprintf("code does not extend the code of its chapter %q", chapter),
		}
		return export.Entity{}, &Error{Kind: KindMalformedInput, Op: "flatten", Code: cls.Code, Err: err}
	}

	e := export.Entity{
		Code:        cls.Code,
		Title:       f.text(cls.Title()),
		Description: f.text(cls.Description()),
		Kind:        cls.SourceKind,
		Chapter:     chapter,
		Parent:      cls.Parent,
		Children:    append([]string{}, cls.Children...),
		Inclusions:  f.texts(cls.RubricsOf(icf.RubricInclusion)),
		Exclusions:  f.texts(cls.RubricsOf(icf.RubricExclusion)),
		CodingHints: f.texts(cls.RubricsOf(icf.RubricCodingHint)),
		Notes:       f.texts(cls.RubricsOf(icf.RubricNote)),
		Qualifiers:  []export.Qualifier{},
	}

	if f.c.opts.Markdown && f.c.markdown != nil {
		if markup := cls.Description()[f.lang].Markup; markup != "" {
			md, err := f.c.markdown.Convert(markup)
			if err != nil {
				return export.Entity{}, &Error{Kind: KindMalformedInput, Op: "render description", Code: cls.Code, Err: err}
			}
			e.DescriptionMarkdown = md
		}
	}

	for _, q := range f.tree.Qualifiers(cls.Code) {
		e.Qualifiers = append(e.Qualifiers, export.Qualifier{
			Scale:       q.Scale,
			Code:        q.Code,
			Title:       f.text(q.Title()),
			Description: f.text(q.Description()),
		})
	}
	return e, nil
}
