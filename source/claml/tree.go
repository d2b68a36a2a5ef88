package claml

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/politpatrick/icf-api/vocabulary/icf"
)

// undeterminedLang is assigned to untagged labels when no default language can
// be derived from the document or the options.
const undeterminedLang = "und"

// Tree is a parsed classification. It is immutable; Transform returns a copy.
type Tree struct {
	defaultLang string
	languages   []string

	classes  map[string]*Class
	parents  map[string]string
	codes    []string
	chapters []string

	modifiers  map[string]*Modifier
	scales     []string
	qualifiers map[string]map[string]*ModifierClass
}

// DefaultLanguage returns the source language of the document.
func (t *Tree) DefaultLanguage() string { return t.defaultLang }

// Languages returns every language tag that occurs in the tree, sorted.
func (t *Tree) Languages() []string { return append([]string(nil), t.languages...) }

// Len returns the number of classes.
func (t *Tree) Len() int { return len(t.codes) }

// Codes returns all class codes in ascending order.
func (t *Tree) Codes() []string { return append([]string(nil), t.codes...) }

// Chapters returns the codes of all root classes in ascending order.
func (t *Tree) Chapters() []string { return append([]string(nil), t.chapters...) }

// Class looks up a class by code.
func (t *Tree) Class(code string) (*Class, bool) {
	c, ok := t.classes[code]
	return c, ok
}

// Parent returns the parent code from the parent index. The second return
// value is false for chapters and unknown codes.
func (t *Tree) Parent(code string) (string, bool) {
	p, ok := t.parents[code]
	return p, ok
}

// ChapterOf returns the chapter a class belongs to.
func (t *Tree) ChapterOf(code string) (string, bool) {
	if _, ok := t.classes[code]; !ok {
		return "", false
	}
	for {
		p, ok := t.parents[code]
		if !ok {
			return code, true
		}
		code = p
	}
}

// Scales returns the codes of all qualifier scales in ascending order.
func (t *Tree) Scales() []string { return append([]string(nil), t.scales...) }

// Modifier looks up a qualifier scale.
func (t *Tree) Modifier(code string) (*Modifier, bool) {
	m, ok := t.modifiers[code]
	return m, ok
}

// ModifierClass looks up one qualifier definition of a scale.
func (t *Tree) ModifierClass(scale, code string) (*ModifierClass, bool) {
	mc, ok := t.qualifiers[scale][code]
	return mc, ok
}

// EffectiveScales returns the qualifier scales that apply to a class.
// Scales attached to an ancestor are inherited unless excluded on the way
// down.
func (t *Tree) EffectiveScales(code string) []string {
	var chain []*Class
	for c, ok := t.classes[code]; ok; c, ok = t.classes[c.Parent] {
		chain = append(chain, c)
	}

	active := make(map[string]bool)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, s := range chain[i].ModifiedBy {
			active[s] = true
		}
		for _, s := range chain[i].ExcludedModifiers {
			delete(active, s)
		}
	}

	scales := make([]string, 0, len(active))
	for s := range active {
		scales = append(scales, s)
	}
	sort.Strings(scales)
	return scales
}

// Qualifiers returns the qualifier definitions applicable to a class, grouped
// by scale and ordered by scale code, then value code.
func (t *Tree) Qualifiers(code string) []*ModifierClass {
	var out []*ModifierClass
	for _, scale := range t.EffectiveScales(code) {
		for _, v := range t.modifiers[scale].Values {
			out = append(out, t.qualifiers[scale][v])
		}
	}
	return out
}

// Stats counts the entities of the tree.
func (t *Tree) Stats() Stats {
	s := Stats{
		Chapters:   len(t.chapters),
		Categories: len(t.codes) - len(t.chapters),
		Scales:     len(t.scales),
	}
	for _, values := range t.qualifiers {
		s.Qualifiers += len(values)
	}
	return s
}

// LabelFunc rewrites the labels of one rubric.
type LabelFunc func(ref Ref, labels Labels) (Labels, error)

// Transform returns a copy of the tree with fn applied to every rubric.
// Classes are visited in ascending code order, then scales and their values,
// so the first error reported is deterministic.
func (t *Tree) Transform(fn LabelFunc) (*Tree, error) {
	out := &Tree{
		defaultLang: t.defaultLang,
		classes:     make(map[string]*Class, len(t.classes)),
		parents:     t.parents,
		codes:       t.codes,
		chapters:    t.chapters,
		modifiers:   make(map[string]*Modifier, len(t.modifiers)),
		scales:      t.scales,
		qualifiers:  make(map[string]map[string]*ModifierClass, len(t.qualifiers)),
	}

	for _, code := range t.codes {
		c := t.classes[code].clone()
		if err := transformRubrics(c.Rubrics, Ref{Code: code, Entity: c.Kind}, fn); err != nil {
			return nil, err
		}
		out.classes[code] = c
	}

	for _, scale := range t.scales {
		m := *t.modifiers[scale]
		m.Rubrics = cloneRubrics(m.Rubrics)
		m.Values = append([]string(nil), m.Values...)
		if err := transformRubrics(m.Rubrics, Ref{Code: scale, Scale: scale, Entity: icf.EntityKindQualifier}, fn); err != nil {
			return nil, err
		}
		out.modifiers[scale] = &m

		values := make(map[string]*ModifierClass, len(m.Values))
		for _, v := range m.Values {
			mc := *t.qualifiers[scale][v]
			mc.Rubrics = cloneRubrics(mc.Rubrics)
			if err := transformRubrics(mc.Rubrics, Ref{Code: v, Scale: scale, Entity: icf.EntityKindQualifier}, fn); err != nil {
				return nil, err
			}
			values[v] = &mc
		}
		out.qualifiers[scale] = values
	}

	out.languages = out.collectLanguages()
	return out, nil
}

func transformRubrics(rubrics []Rubric, ref Ref, fn LabelFunc) error {
	for i := range rubrics {
		ref.Rubric = rubrics[i].Kind
		labels, err := fn(ref, rubrics[i].Labels)
		if err != nil {
			return err
		}
		rubrics[i].Labels = labels
	}
	return nil
}

func (t *Tree) collectLanguages() []string {
	seen := make(map[string]bool)
	add := func(rubrics []Rubric) {
		for _, r := range rubrics {
			for tag := range r.Labels {
				seen[tag] = true
			}
		}
	}
	for _, c := range t.classes {
		add(c.Rubrics)
	}
	for _, m := range t.modifiers {
		add(m.Rubrics)
	}
	for _, values := range t.qualifiers {
		for _, mc := range values {
			add(mc.Rubrics)
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// CanonicalTag normalises a BCP 47 language tag, e.g. "en-us" to "en-US".
func CanonicalTag(tag string) (string, error) {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", tag, err)
	}
	return parsed.String(), nil
}

// BaseLanguage returns the primary language subtag of a canonical tag.
func BaseLanguage(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, _ := parsed.Base()
	return base.String()
}

// ValidateCode reports whether a class code can be used as a file name in the
// dataset layout.
func ValidateCode(code string) error {
	switch {
	case strings.TrimSpace(code) == "":
		return fmt.Errorf("empty code")
	case code != strings.TrimSpace(code):
		return fmt.Errorf("code has surrounding whitespace")
	case strings.ContainsAny(code, `/\`):
		return fmt.Errorf("code contains a path separator")
	case strings.HasPrefix(code, "."):
		return fmt.Errorf("code starts with a dot")
	case icf.ReservedNames[code]:
		return fmt.Errorf("code collides with a reserved file name")
	}
	return nil
}
