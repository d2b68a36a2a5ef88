// Package icf provides the vocabulary of the ICF classification as it is
// encoded in CLAML documents and in the published JSON dataset.
//
// # Entity Kinds
//
// Every node of the compiled tree has one of three kinds:
//   - chapter: a root of the classification (the ICF components b, s, d, e)
//   - category: any class below a chapter (ICF chapters, blocks and codes)
//   - qualifier-definition: one value of a qualifier scale
//
// The CLAML document carries its own, finer kind names (component, chapter,
// block, category). Those are kept verbatim as the source kind.
//
// # Rubric Kinds
//
// Rubrics attach text to a class. The compiler understands:
//   - preferred: the display title
//   - definition: the long-form description
//   - inclusion, exclusion, coding-hint, text, note: supplementary lists
//
// # Components
//
// The ICF arranges its codes under four components identified by the first
// letter of every code: b (body functions), s (body structures),
// d (activities and participation) and e (environmental factors).
package icf
