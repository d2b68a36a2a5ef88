package icf

import "strings"

// EntityKind classifies a node of the compiled classification tree.
type EntityKind string

const (
	// EntityKindChapter is a root class. Chapters are listed in chapters.json.
	EntityKindChapter EntityKind = "chapter"

	// EntityKindCategory is any class that has a parent.
	EntityKindCategory EntityKind = "category"

	// EntityKindQualifier is a single value of a qualifier scale.
	EntityKindQualifier EntityKind = "qualifier-definition"
)

// RubricKind identifies the role of a rubric attached to a class.
type RubricKind string

const (
	// RubricPreferred holds the display title of a class.
	RubricPreferred RubricKind = "preferred"

	// RubricDefinition holds the long-form description of a class.
	RubricDefinition RubricKind = "definition"

	// RubricInclusion lists terms included in a class.
	RubricInclusion RubricKind = "inclusion"

	// RubricExclusion lists terms explicitly excluded from a class.
	RubricExclusion RubricKind = "exclusion"

	// RubricCodingHint carries coding instructions.
	RubricCodingHint RubricKind = "coding-hint"

	// RubricText is free text, used by qualifier scales.
	RubricText RubricKind = "text"

	// RubricNote is an editorial note.
	RubricNote RubricKind = "note"
)

// Component identifies one of the four ICF components.
type Component string

const (
	// ComponentBodyFunctions covers physiological functions of body systems.
	ComponentBodyFunctions Component = "b"

	// ComponentBodyStructures covers anatomical parts of the body.
	ComponentBodyStructures Component = "s"

	// ComponentActivities covers activities and participation.
	ComponentActivities Component = "d"

	// ComponentEnvironment covers environmental factors.
	ComponentEnvironment Component = "e"
)

// ComponentOf returns the component a code belongs to, judged by its first
// letter. The second return value is false for codes outside the ICF scheme.
func ComponentOf(code string) (Component, bool) {
	if code == "" {
		return "", false
	}
	switch c := Component(strings.ToLower(code[:1])); c {
	case ComponentBodyFunctions, ComponentBodyStructures, ComponentActivities, ComponentEnvironment:
		return c, true
	default:
		return "", false
	}
}

// ReservedNames are artefact file names in the dataset layout. A class code
// equal to one of them would collide with an index file.
var ReservedNames = map[string]bool{
	"chapters": true,
	"index":    true,
	"icf_flat": true,
}
