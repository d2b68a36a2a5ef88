package claml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// xmlNamespace is the namespace bound to the reserved xml prefix.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Options tunes how a document is turned into a tree.
type Options struct {
	// DefaultLang is used for labels without xml:lang when the document has
	// no <Meta name="lang"> entry.
	DefaultLang string
}

// markupTags maps CLAML label elements to HTML elements. Unlisted elements
// become spans.
var markupTags = map[string]string{
	"Para":      "p",
	"List":      "ul",
	"ListItem":  "li",
	"Fragment":  "span",
	"Term":      "em",
	"Reference": "cite",
	"Table":     "table",
	"Caption":   "caption",
	"THead":     "thead",
	"TBody":     "tbody",
	"Row":       "tr",
	"Cell":      "td",
}

// blockElements are separated by newlines in a label's plain text.
var blockElements = map[string]bool{
	"Para":     true,
	"List":     true,
	"ListItem": true,
	"Table":    true,
	"Caption":  true,
	"Row":      true,
}

type rawLabel struct {
	lang   string
	text   string
	markup string
}

type rawRubric struct {
	kind   string
	labels []rawLabel
	line   int
}

type rawClass struct {
	code       string
	kind       string
	supers     []string
	subs       []string
	modifiedBy []string
	excluded   []string
	rubrics    []rawRubric
	line       int
}

type rawModifier struct {
	code    string
	subs    []string
	rubrics []rawRubric
	line    int
}

type rawModifierClass struct {
	scale   string
	code    string
	rubrics []rawRubric
	line    int
}

type rawDocument struct {
	metaLang        string
	classes         []rawClass
	modifiers       []rawModifier
	modifierClasses []rawModifierClass
}

// ParseFile reads and parses the CLAML document at path. A missing file is
// reported with an error matching os.ErrNotExist.
func ParseFile(path string, opts Options) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(bufio.NewReader(f), opts)
}

// Parse reads a CLAML document from r. The whole document is decoded before
// the tree is built; a syntax or structure error anywhere fails the parse.
func Parse(r io.Reader, opts Options) (*Tree, error) {
	doc, err := read(r)
	if err != nil {
		return nil, err
	}
	return build(doc, opts)
}

type reader struct {
	dec *xml.Decoder
}

func read(src io.Reader) (*rawDocument, error) {
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReaderLabel
	r := &reader{dec: dec}

	doc := &rawDocument{}
	sawRoot := false
	for {
		tok, err := r.token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if sawRoot {
			return nil, &StructureError{Element: start.Name.Local, Line: r.line(), Reason: "unexpected second root element"}
		}
		if start.Name.Local != "ClaML" {
			return nil, &StructureError{Element: "ClaML", Line: r.line(), Reason: fmt.Sprintf("root element is %q", start.Name.Local)}
		}
		sawRoot = true
		if err := r.readRoot(doc); err != nil {
			return nil, err
		}
	}

	if !sawRoot {
		return nil, &StructureError{Element: "ClaML", Reason: "document has no root element"}
	}
	return doc, nil
}

func (r *reader) token() (xml.Token, error) {
	tok, err := r.dec.Token()
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, r.syntaxError(err)
}

// next returns the next token inside an open element. Running out of input
// there is a syntax error rather than a clean end of document.
func (r *reader) next(element string) (xml.Token, error) {
	tok, err := r.token()
	if errors.Is(err, io.EOF) {
		return nil, &SyntaxError{Line: r.line(), Err: fmt.Errorf("unexpected end of document inside <%s>", element)}
	}
	return tok, err
}

func (r *reader) skip() error {
	if err := r.dec.Skip(); err != nil {
		return r.syntaxError(err)
	}
	return nil
}

func (r *reader) line() int {
	line, _ := r.dec.InputPos()
	return line
}

func (r *reader) syntaxError(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &SyntaxError{Line: se.Line, Err: errors.New(se.Msg)}
	}
	return &SyntaxError{Line: r.line(), Err: err}
}

func (r *reader) readRoot(doc *rawDocument) error {
	for {
		tok, err := r.next("ClaML")
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Meta":
				if name, _ := attr(t, "name"); name == "lang" {
					doc.metaLang, _ = attr(t, "value")
				}
				if err := r.skip(); err != nil {
					return err
				}
			case "Class":
				c, err := r.readClass(t)
				if err != nil {
					return err
				}
				doc.classes = append(doc.classes, c)
			case "Modifier":
				m, err := r.readModifier(t)
				if err != nil {
					return err
				}
				doc.modifiers = append(doc.modifiers, m)
			case "ModifierClass":
				mc, err := r.readModifierClass(t)
				if err != nil {
					return err
				}
				doc.modifierClasses = append(doc.modifierClasses, mc)
			default:
				if err := r.skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (r *reader) readClass(start xml.StartElement) (rawClass, error) {
	line := r.line()
	code, ok := attr(start, "code")
	if !ok {
		return rawClass{}, &StructureError{Element: "Class", Line: line, Reason: "missing code attribute"}
	}
	kind, _ := attr(start, "kind")
	c := rawClass{code: code, kind: kind, line: line}

	for {
		tok, err := r.next("Class")
		if err != nil {
			return rawClass{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "SuperClass", "SubClass", "ModifiedBy", "ExcludeModifier":
				ref, ok := attr(t, "code")
				if !ok {
					return rawClass{}, &StructureError{Element: t.Name.Local, Code: code, Line: r.line(), Reason: "missing code attribute"}
				}
				switch t.Name.Local {
				case "SuperClass":
					c.supers = append(c.supers, ref)
				case "SubClass":
					c.subs = append(c.subs, ref)
				case "ModifiedBy":
					c.modifiedBy = append(c.modifiedBy, ref)
				default:
					c.excluded = append(c.excluded, ref)
				}
				if err := r.skip(); err != nil {
					return rawClass{}, err
				}
			case "Rubric":
				rub, err := r.readRubric(t, code)
				if err != nil {
					return rawClass{}, err
				}
				c.rubrics = append(c.rubrics, rub)
			default:
				if err := r.skip(); err != nil {
					return rawClass{}, err
				}
			}
		case xml.EndElement:
			return c, nil
		}
	}
}

func (r *reader) readModifier(start xml.StartElement) (rawModifier, error) {
	line := r.line()
	code, ok := attr(start, "code")
	if !ok {
		return rawModifier{}, &StructureError{Element: "Modifier", Line: line, Reason: "missing code attribute"}
	}
	m := rawModifier{code: code, line: line}

	for {
		tok, err := r.next("Modifier")
		if err != nil {
			return rawModifier{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "SubModifierClass":
				ref, ok := attr(t, "code")
				if !ok {
					return rawModifier{}, &StructureError{Element: "SubModifierClass", Code: code, Line: r.line(), Reason: "missing code attribute"}
				}
				m.subs = append(m.subs, ref)
				if err := r.skip(); err != nil {
					return rawModifier{}, err
				}
			case "Rubric":
				rub, err := r.readRubric(t, code)
				if err != nil {
					return rawModifier{}, err
				}
				m.rubrics = append(m.rubrics, rub)
			default:
				if err := r.skip(); err != nil {
					return rawModifier{}, err
				}
			}
		case xml.EndElement:
			return m, nil
		}
	}
}

func (r *reader) readModifierClass(start xml.StartElement) (rawModifierClass, error) {
	line := r.line()
	code, ok := attr(start, "code")
	if !ok {
		return rawModifierClass{}, &StructureError{Element: "ModifierClass", Line: line, Reason: "missing code attribute"}
	}
	scale, ok := attr(start, "modifier")
	if !ok {
		return rawModifierClass{}, &StructureError{Element: "ModifierClass", Code: code, Line: line, Reason: "missing modifier attribute"}
	}
	mc := rawModifierClass{scale: scale, code: code, line: line}

	for {
		tok, err := r.next("ModifierClass")
		if err != nil {
			return rawModifierClass{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Rubric" {
				rub, err := r.readRubric(t, code)
				if err != nil {
					return rawModifierClass{}, err
				}
				mc.rubrics = append(mc.rubrics, rub)
				continue
			}
			if err := r.skip(); err != nil {
				return rawModifierClass{}, err
			}
		case xml.EndElement:
			return mc, nil
		}
	}
}

func (r *reader) readRubric(start xml.StartElement, owner string) (rawRubric, error) {
	line := r.line()
	kind, ok := attr(start, "kind")
	if !ok || strings.TrimSpace(kind) == "" {
		return rawRubric{}, &StructureError{Element: "Rubric", Code: owner, Line: line, Reason: "missing kind attribute"}
	}
	rub := rawRubric{kind: kind, line: line}

	for {
		tok, err := r.next("Rubric")
		if err != nil {
			return rawRubric{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Label" {
				label, err := r.readLabel(t)
				if err != nil {
					return rawRubric{}, err
				}
				rub.labels = append(rub.labels, label)
				continue
			}
			if err := r.skip(); err != nil {
				return rawRubric{}, err
			}
		case xml.EndElement:
			if len(rub.labels) == 0 {
				return rawRubric{}, &StructureError{Element: "Rubric", Code: owner, Line: line, Reason: "rubric has no Label"}
			}
			return rub, nil
		}
	}
}

// readLabel collects the mixed content of a Label element.
func (r *reader) readLabel(start xml.StartElement) (rawLabel, error) {
	label := rawLabel{lang: xmlLang(start)}
	var text, markup strings.Builder
	depth := 0

	for {
		tok, err := r.next("Label")
		if err != nil {
			return rawLabel{}, err
		}

		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
			markup.WriteString(html.EscapeString(string(t)))
		case xml.StartElement:
			depth++
			if blockElements[t.Name.Local] {
				text.WriteByte('\n')
			}
			markup.WriteString("<" + htmlTag(t.Name.Local) + ">")
		case xml.EndElement:
			if depth == 0 {
				label.text = text.String()
				label.markup = markup.String()
				return label, nil
			}
			depth--
			if blockElements[t.Name.Local] {
				text.WriteByte('\n')
			}
			markup.WriteString("</" + htmlTag(t.Name.Local) + ">")
		}
	}
}

func htmlTag(element string) string {
	if tag, ok := markupTags[element]; ok {
		return tag
	}
	return "span"
}

func attr(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func xmlLang(start xml.StartElement) string {
	for _, a := range start.Attr {
		if a.Name.Local == "lang" && (a.Name.Space == xmlNamespace || a.Name.Space == "xml") {
			return a.Value
		}
	}
	return ""
}
