package claml

import (
	"fmt"
	"sort"

	"github.com/politpatrick/icf-api/vocabulary/icf"
)

// build validates a decoded document and indexes it by code.
func build(doc *rawDocument, opts Options) (*Tree, error) {
	if len(doc.classes) == 0 {
		return nil, &StructureError{Element: "ClaML", Reason: "document contains no Class elements"}
	}

	defaultLang, err := resolveDefaultLang(doc, opts)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		defaultLang: defaultLang,
		classes:     make(map[string]*Class, len(doc.classes)),
		parents:     make(map[string]string, len(doc.classes)),
		modifiers:   make(map[string]*Modifier, len(doc.modifiers)),
		qualifiers:  make(map[string]map[string]*ModifierClass, len(doc.modifiers)),
	}

	if err := t.addClasses(doc.classes); err != nil {
		return nil, err
	}
	if err := t.linkParents(doc.classes); err != nil {
		return nil, err
	}
	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}
	t.indexChildren()

	if err := t.addModifiers(doc); err != nil {
		return nil, err
	}
	if err := t.checkModifierRefs(doc.classes); err != nil {
		return nil, err
	}

	t.languages = t.collectLanguages()
	return t, nil
}

// resolveDefaultLang picks the document language: <Meta name="lang">, then
// the configured default, then the first explicitly tagged preferred label.
func resolveDefaultLang(doc *rawDocument, opts Options) (string, error) {
	if doc.metaLang != "" {
		tag, err := CanonicalTag(doc.metaLang)
		if err != nil {
			return "", &StructureError{Element: "Meta", Reason: err.Error()}
		}
		return tag, nil
	}
	if opts.DefaultLang != "" {
		return CanonicalTag(opts.DefaultLang)
	}
	for _, c := range doc.classes {
		for _, r := range c.rubrics {
			if r.kind != string(icf.RubricPreferred) {
				continue
			}
			for _, l := range r.labels {
				if l.lang == "" {
					continue
				}
				tag, err := CanonicalTag(l.lang)
				if err != nil {
					return "", &StructureError{Element: "Label", Code: c.code, Line: r.line, Reason: err.Error()}
				}
				return tag, nil
			}
		}
	}
	return undeterminedLang, nil
}

func (t *Tree) addClasses(raw []rawClass) error {
	for _, rc := range raw {
		if err := ValidateCode(rc.code); err != nil {
			return &StructureError{Element: "Class", Code: rc.code, Line: rc.line, Reason: err.Error()}
		}
		if _, dup := t.classes[rc.code]; dup {
			return &StructureError{Element: "Class", Code: rc.code, Line: rc.line, Reason: "duplicate code"}
		}

		rubrics, err := convertRubrics(rc.rubrics, rc.code, t.defaultLang)
		if err != nil {
			return err
		}

		c := &Class{
			Code:              rc.code,
			SourceKind:        rc.kind,
			Rubrics:           rubrics,
			ModifiedBy:        uniqueSorted(rc.modifiedBy),
			ExcludedModifiers: uniqueSorted(rc.excluded),
		}
		if _, ok := c.Title()[t.defaultLang]; !ok {
			return &StructureError{Element: "Class", Code: rc.code, Line: rc.line,
				Reason: fmt.Sprintf("no preferred label in default language %q", t.defaultLang)}
		}

		t.classes[rc.code] = c
		t.codes = append(t.codes, rc.code)
	}
	sort.Strings(t.codes)
	return nil
}

// linkParents builds the parent index from SuperClass edges, then checks
// SubClass edges against it. A class that only appears as a SubClass gets its
// parent from there.
func (t *Tree) linkParents(raw []rawClass) error {
	for _, rc := range raw {
		supers := uniqueSorted(rc.supers)
		switch {
		case len(supers) > 1:
			return &StructureError{Element: "SuperClass", Code: rc.code, Line: rc.line, Reason: "class has more than one superclass"}
		case len(supers) == 1:
			parent := supers[0]
			if parent == rc.code {
				return &StructureError{Element: "SuperClass", Code: rc.code, Line: rc.line, Reason: "class is its own superclass"}
			}
			if _, ok := t.classes[parent]; !ok {
				return &StructureError{Element: "SuperClass", Code: rc.code, Line: rc.line, Reason: fmt.Sprintf("unknown superclass %q", parent)}
			}
			t.parents[rc.code] = parent
		}
	}

	for _, rc := range raw {
		for _, sub := range rc.subs {
			if _, ok := t.classes[sub]; !ok {
				return &StructureError{Element: "SubClass", Code: rc.code, Line: rc.line, Reason: fmt.Sprintf("unknown subclass %q", sub)}
			}
			if sub == rc.code {
				return &StructureError{Element: "SubClass", Code: rc.code, Line: rc.line, Reason: "class is its own subclass"}
			}
			if parent, ok := t.parents[sub]; ok && parent != rc.code {
				return &StructureError{Element: "SubClass", Code: rc.code, Line: rc.line,
					Reason: fmt.Sprintf("subclass %q already has superclass %q", sub, parent)}
			}
			t.parents[sub] = rc.code
		}
	}

	for _, code := range t.codes {
		c := t.classes[code]
		if parent, ok := t.parents[code]; ok {
			c.Parent = parent
			c.Kind = icf.EntityKindCategory
			continue
		}
		c.Kind = icf.EntityKindChapter
		t.chapters = append(t.chapters, code)
	}
	return nil
}

func (t *Tree) checkAcyclic() error {
	limit := len(t.codes)
	for _, code := range t.codes {
		cur := code
		for steps := 0; ; steps++ {
			p, ok := t.parents[cur]
			if !ok {
				break
			}
			if steps >= limit {
				return &StructureError{Element: "SuperClass", Code: code, Reason: "superclass chain contains a cycle"}
			}
			cur = p
		}
	}
	if len(t.chapters) == 0 {
		return &StructureError{Element: "ClaML", Reason: "document has no root class"}
	}
	return nil
}

func (t *Tree) indexChildren() {
	for _, code := range t.codes {
		if parent, ok := t.parents[code]; ok {
			p := t.classes[parent]
			p.Children = append(p.Children, code)
		}
	}
}

func (t *Tree) addModifiers(doc *rawDocument) error {
	for _, rm := range doc.modifiers {
		if rm.code == "" {
			return &StructureError{Element: "Modifier", Line: rm.line, Reason: "empty code"}
		}
		if _, dup := t.modifiers[rm.code]; dup {
			return &StructureError{Element: "Modifier", Code: rm.code, Line: rm.line, Reason: "duplicate code"}
		}
		rubrics, err := convertRubrics(rm.rubrics, rm.code, t.defaultLang)
		if err != nil {
			return err
		}
		t.modifiers[rm.code] = &Modifier{Code: rm.code, Rubrics: rubrics, Values: uniqueSorted(rm.subs)}
		t.qualifiers[rm.code] = make(map[string]*ModifierClass)
		t.scales = append(t.scales, rm.code)
	}
	sort.Strings(t.scales)

	for _, rmc := range doc.modifierClasses {
		values, ok := t.qualifiers[rmc.scale]
		if !ok {
			return &StructureError{Element: "ModifierClass", Code: rmc.code, Line: rmc.line, Reason: fmt.Sprintf("unknown modifier %q", rmc.scale)}
		}
		if rmc.code == "" {
			return &StructureError{Element: "ModifierClass", Line: rmc.line, Reason: "empty code"}
		}
		if _, dup := values[rmc.code]; dup {
			return &StructureError{Element: "ModifierClass", Code: rmc.code, Line: rmc.line, Reason: fmt.Sprintf("duplicate code in modifier %q", rmc.scale)}
		}
		rubrics, err := convertRubrics(rmc.rubrics, rmc.code, t.defaultLang)
		if err != nil {
			return err
		}
		mc := &ModifierClass{Scale: rmc.scale, Code: rmc.code, Rubrics: rubrics}
		if _, ok := mc.Title()[t.defaultLang]; !ok {
			return &StructureError{Element: "ModifierClass", Code: rmc.code, Line: rmc.line,
				Reason: fmt.Sprintf("no preferred label in default language %q", t.defaultLang)}
		}
		values[rmc.code] = mc
	}

	for _, scale := range t.scales {
		m := t.modifiers[scale]
		for _, v := range m.Values {
			if _, ok := t.qualifiers[scale][v]; !ok {
				return &StructureError{Element: "SubModifierClass", Code: scale, Reason: fmt.Sprintf("unknown qualifier %q", v)}
			}
		}
		listed := make(map[string]bool, len(m.Values))
		for _, v := range m.Values {
			listed[v] = true
		}
		for v := range t.qualifiers[scale] {
			if !listed[v] {
				m.Values = append(m.Values, v)
			}
		}
		sort.Strings(m.Values)
	}
	return nil
}

func (t *Tree) checkModifierRefs(raw []rawClass) error {
	for _, rc := range raw {
		for _, refs := range [][]string{rc.modifiedBy, rc.excluded} {
			for _, ref := range refs {
				if _, ok := t.modifiers[ref]; !ok {
					return &StructureError{Element: "ModifiedBy", Code: rc.code, Line: rc.line, Reason: fmt.Sprintf("unknown modifier %q", ref)}
				}
			}
		}
	}
	return nil
}

func convertRubrics(raw []rawRubric, owner, defaultLang string) ([]Rubric, error) {
	rubrics := make([]Rubric, 0, len(raw))
	for _, rr := range raw {
		labels := make(Labels, len(rr.labels))
		for _, rl := range rr.labels {
			lang := defaultLang
			if rl.lang != "" {
				tag, err := CanonicalTag(rl.lang)
				if err != nil {
					return nil, &StructureError{Element: "Label", Code: owner, Line: rr.line, Reason: err.Error()}
				}
				lang = tag
			}
			if _, dup := labels[lang]; dup {
				return nil, &StructureError{Element: "Label", Code: owner, Line: rr.line,
					Reason: fmt.Sprintf("duplicate %s label for language %q", rr.kind, lang)}
			}
			labels[lang] = Label{Text: rl.text, Markup: rl.markup}
		}
		rubrics = append(rubrics, Rubric{Kind: icf.RubricKind(rr.kind), Labels: labels})
	}
	return rubrics, nil
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
