package richtext

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// Converter renders label markup as Markdown.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a Markdown converter with GitHub-flavoured tables.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Converter{converter: converter}
}

// Convert renders markup produced by the CLAML parser as Markdown.
func (c *Converter) Convert(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	out, err := c.converter.ConvertString(markup)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(out), nil
}

// cleanMarkdown trims trailing blanks on every line and limits blank lines to
// one between blocks.
func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
