package compiler

import (
	"fmt"

	"github.com/politpatrick/icf-api/source/claml"
)

// LanguagePolicy decides what happens when a text has no label in the
// requested language.
type LanguagePolicy string

const (
	// PolicyStrict fails the run with a MissingLanguageError.
	PolicyStrict LanguagePolicy = "strict"

	// PolicyFallback uses the document language, then the smallest tag.
	PolicyFallback LanguagePolicy = "fallback"
)

// ParsePolicy validates a policy name. The empty string selects strict.
func ParsePolicy(s string) (LanguagePolicy, error) {
	switch LanguagePolicy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyFallback:
		return PolicyFallback, nil
	}
	return "", fmt.Errorf("unknown language policy %q (want %s or %s)", s, PolicyStrict, PolicyFallback)
}

// SelectLanguage returns a copy of tree in which every rubric carries exactly
// one label, keyed by lang. Under the strict policy the first rubric without
// a matching label fails the run; the order is deterministic.
func (c *Compiler) SelectLanguage(tree *claml.Tree, lang string) (*claml.Tree, error) {
	tag, err := claml.CanonicalTag(lang)
	if err != nil {
		return nil, fmt.Errorf("select language: %w", err)
	}

	fallbacks := 0
	out, err := tree.Transform(func(ref claml.Ref, labels claml.Labels) (claml.Labels, error) {
		if label, ok := matchLabel(labels, tag); ok {
			return claml.Labels{tag: label}, nil
		}
		if c.opts.Policy != PolicyFallback {
			return nil, &MissingLanguageError{
				Code:      ref.Code,
				Scale:     ref.Scale,
				Rubric:    ref.Rubric,
				Lang:      tag,
				Available: labels.Languages(),
			}
		}

		fallbacks++
		if label, ok := matchLabel(labels, tree.DefaultLanguage()); ok {
			return claml.Labels{tag: label}, nil
		}
		available := labels.Languages()
		if len(available) == 0 {
			return claml.Labels{}, nil
		}
		return claml.Labels{tag: labels[available[0]]}, nil
	})
	if err != nil {
		return nil, &Error{Kind: KindMissingLanguage, Op: "select language " + tag, Code: codeOf(err), Err: err}
	}

	if fallbacks > 0 {
		c.logger.Warn("Labels missing in requested language, used fallback",
			"lang", tag,
			"default_lang", tree.DefaultLanguage(),
			"count", fallbacks)
	}
	return out, nil
}

// matchLabel finds the label for a canonical tag: the exact tag first, then
// the smallest tag with the same base language.
func matchLabel(labels claml.Labels, tag string) (claml.Label, bool) {
	if label, ok := labels[tag]; ok {
		return label, true
	}
	base := claml.BaseLanguage(tag)
	for _, t := range labels.Languages() {
		if claml.BaseLanguage(t) == base {
			return labels[t], true
		}
	}
	return claml.Label{}, false
}

func codeOf(err error) string {
	if ml, ok := err.(*MissingLanguageError); ok {
		return ml.Code
	}
	return ""
}
