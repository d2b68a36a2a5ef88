// Package richtext normalises label text taken from classification documents
// and renders label markup as Markdown.
package richtext

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// blockTags are replaced by a space when stripped so that adjacent words do
// not run together.
var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true, "table": true, "caption": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// inlineTags are dropped without a trace.
var inlineTags = []string{
	"a", "b", "i", "u", "s", "em", "strong", "span", "sub", "sup",
	"small", "big", "code", "tt", "font",
}

var (
	commentRe = regexp.MustCompile(`<!--[\s\S]*?-->`)
	tagRe     = regexp.MustCompile(tagPattern())
)

// tagPattern matches an opening, closing or self-closing tag of a known
// element. Attributes must be quoted, so text such as "a<b and c>d" is not
// taken for markup.
func tagPattern() string {
	names := append([]string(nil), inlineTags...)
	for name := range blockTags {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	attr := `\s+[a-z_:][-a-z0-9_:.]*\s*=\s*(?:"[^"<>]*"|'[^'<>]*')`
	return `(?i)</?(` + strings.Join(names, "|") + `)(?:` + attr + `)*\s*/?>`
}

// Clean strips markup tags, applies Unicode NFC and collapses whitespace runs
// into single spaces. Character references are left alone: label text has
// already been decoded once by the XML reader. Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	for {
		next := cleanPass(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanPass(s string) string {
	s = stripTags(s)
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripTags removes comments and known tags until none are left. Every
// removal shortens s, so the loop ends.
func stripTags(s string) string {
	for strings.Contains(s, "<") {
		next := commentRe.ReplaceAllString(s, "")
		next = tagRe.ReplaceAllStringFunc(next, func(tag string) string {
			if blockTags[strings.ToLower(tagRe.FindStringSubmatch(tag)[1])] {
				return " "
			}
			return ""
		})
		if next == s {
			break
		}
		s = next
	}
	return s
}
