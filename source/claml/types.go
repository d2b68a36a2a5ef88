// Package claml parses classification documents in the CLAML XML format into
// an in-memory tree keyed by class code.
package claml

import (
	"sort"

	"github.com/politpatrick/icf-api/vocabulary/icf"
)

// Label is the text of one rubric in one language.
type Label struct {
	// Text is the character data of the label. Block elements such as Para or
	// ListItem are separated by newlines; no other formatting is applied.
	Text string

	// Markup is the label content with CLAML elements mapped to HTML
	// equivalents, suitable for rendering.
	Markup string
}

// Labels maps a canonical language tag to a label.
type Labels map[string]Label

// Languages returns the language tags present, sorted.
func (l Labels) Languages() []string {
	tags := make([]string, 0, len(l))
	for tag := range l {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (l Labels) clone() Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Rubric attaches labelled text of a given kind to a class.
type Rubric struct {
	Kind   icf.RubricKind
	Labels Labels
}

// Class is a node of the classification tree.
type Class struct {
	// Code is unique within the document.
	Code string

	// Kind is chapter for roots and category for everything else.
	Kind icf.EntityKind

	// SourceKind is the kind attribute as written in the document.
	SourceKind string

	// Parent is the parent code, empty for chapters.
	Parent string

	// Children holds the codes of direct subclasses in ascending order.
	Children []string

	// Rubrics in document order.
	Rubrics []Rubric

	// ModifiedBy lists the qualifier scales attached to this class.
	ModifiedBy []string

	// ExcludedModifiers lists inherited scales that do not apply here.
	ExcludedModifiers []string
}

// Title returns the labels of the first preferred rubric.
func (c *Class) Title() Labels {
	return firstLabels(c.Rubrics, icf.RubricPreferred)
}

// Description returns the labels of the first definition rubric, or nil.
func (c *Class) Description() Labels {
	return firstLabels(c.Rubrics, icf.RubricDefinition)
}

// RubricsOf returns every rubric of the given kind in document order.
func (c *Class) RubricsOf(kind icf.RubricKind) []Rubric {
	return rubricsOf(c.Rubrics, kind)
}

func (c *Class) clone() *Class {
	out := *c
	out.Children = append([]string(nil), c.Children...)
	out.ModifiedBy = append([]string(nil), c.ModifiedBy...)
	out.ExcludedModifiers = append([]string(nil), c.ExcludedModifiers...)
	out.Rubrics = cloneRubrics(c.Rubrics)
	return &out
}

// Modifier is a qualifier scale such as the generic ICF extent qualifier.
type Modifier struct {
	Code    string
	Rubrics []Rubric

	// Values holds the codes of the scale's qualifier definitions, ascending.
	Values []string
}

// Title returns the labels of the scale's first preferred rubric, or nil.
func (m *Modifier) Title() Labels {
	return firstLabels(m.Rubrics, icf.RubricPreferred)
}

// ModifierClass is one qualifier definition, a value within a scale.
type ModifierClass struct {
	Scale   string
	Code    string
	Rubrics []Rubric
}

// Title returns the labels of the first preferred rubric.
func (m *ModifierClass) Title() Labels {
	return firstLabels(m.Rubrics, icf.RubricPreferred)
}

// Description returns the labels of the first definition rubric, or nil.
func (m *ModifierClass) Description() Labels {
	return firstLabels(m.Rubrics, icf.RubricDefinition)
}

// Ref identifies the owner of a rubric during a Transform.
type Ref struct {
	// Code is the class or qualifier code owning the rubric.
	Code string

	// Scale is the qualifier scale for modifier rubrics, empty for classes.
	Scale string

	// Entity is the kind of the owner.
	Entity icf.EntityKind

	// Rubric is the kind of the rubric being transformed.
	Rubric icf.RubricKind
}

// Stats counts the entities of a tree.
type Stats struct {
	Chapters   int
	Categories int
	Qualifiers int
	Scales     int
}

func firstLabels(rubrics []Rubric, kind icf.RubricKind) Labels {
	for _, r := range rubrics {
		if r.Kind == kind {
			return r.Labels
		}
	}
	return nil
}

func rubricsOf(rubrics []Rubric, kind icf.RubricKind) []Rubric {
	var out []Rubric
	for _, r := range rubrics {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func cloneRubrics(in []Rubric) []Rubric {
	if in == nil {
		return nil
	}
	out := make([]Rubric, len(in))
	for i, r := range in {
		out[i] = Rubric{Kind: r.Kind, Labels: r.Labels.clone()}
	}
	return out
}
