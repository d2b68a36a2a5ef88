package claml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politpatrick/icf-api/vocabulary/icf"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE ClaML SYSTEM "ClaML.dtd">
<ClaML version="2.0.0">
  <Meta name="lang" value="en"/>
  <Title name="ICF" version="2005">International Classification of Functioning</Title>
  <ClassKinds>
    <ClassKind name="component"/>
    <ClassKind name="chapter"/>
    <ClassKind name="category"/>
  </ClassKinds>
  <Modifier code="q_extent">
    <SubModifierClass code="0"/>
    <SubModifierClass code="1"/>
    <Rubric kind="preferred"><Label xml:lang="en">Extent of impairment</Label></Rubric>
  </Modifier>
  <ModifierClass modifier="q_extent" code="1">
    <SuperClass code="q_extent"/>
    <Rubric kind="preferred"><Label xml:lang="en">MILD problem</Label></Rubric>
    <Rubric kind="definition"><Label xml:lang="en">slight, low</Label></Rubric>
  </ModifierClass>
  <ModifierClass modifier="q_extent" code="0">
    <SuperClass code="q_extent"/>
    <Rubric kind="preferred"><Label xml:lang="en">NO problem</Label></Rubric>
  </ModifierClass>
  <Class code="d" kind="component">
    <SubClass code="d1"/>
    <Rubric kind="preferred"><Label xml:lang="en">Activities and Participation</Label></Rubric>
  </Class>
  <Class code="b" kind="component">
    <SubClass code="b1"/>
    <Rubric kind="preferred">
      <Label xml:lang="en">Body Functions</Label>
      <Label xml:lang="fr">Fonctions organiques</Label>
    </Rubric>
  </Class>
  <Class code="b1" kind="chapter">
    <SuperClass code="b"/>
    <SubClass code="b114"/>
    <SubClass code="b110"/>
    <ModifiedBy code="q_extent"/>
    <Rubric kind="preferred"><Label xml:lang="en">Mental functions</Label></Rubric>
    <Rubric kind="definition">
      <Label xml:lang="en"><Para>Functions of the brain.</Para><Para>Both global and specific.</Para></Label>
    </Rubric>
  </Class>
  <Class code="b110" kind="category">
    <SuperClass code="b1"/>
    <Rubric kind="preferred"><Label xml:lang="en">Consciousness functions</Label></Rubric>
    <Rubric kind="inclusion"><Label xml:lang="en">functions of the state of consciousness</Label></Rubric>
    <Rubric kind="exclusion"><Label xml:lang="en">orientation functions (b114)</Label></Rubric>
  </Class>
  <Class code="b114" kind="category">
    <SuperClass code="b1"/>
    <ExcludeModifier code="q_extent"/>
    <Rubric kind="preferred"><Label xml:lang="en">Orientation functions</Label></Rubric>
  </Class>
  <Class code="d1" kind="chapter">
    <SuperClass code="d"/>
    <Rubric kind="preferred"><Label>Learning and applying knowledge</Label></Rubric>
  </Class>
</ClaML>
`

func TestParse_Sample(t *testing.T) {
	tree, err := Parse(strings.NewReader(sampleDoc), Options{})
	require.NoError(t, err)

	assert.Equal(t, "en", tree.DefaultLanguage())
	assert.Equal(t, []string{"en", "fr"}, tree.Languages())
	assert.Equal(t, []string{"b", "b1", "b110", "b114", "d", "d1"}, tree.Codes())
	assert.Equal(t, []string{"b", "d"}, tree.Chapters())

	b1, ok := tree.Class("b1")
	require.True(t, ok)
	assert.Equal(t, icf.EntityKindCategory, b1.Kind)
	assert.Equal(t, "chapter", b1.SourceKind)
	assert.Equal(t, "b", b1.Parent)
	assert.Equal(t, []string{"b110", "b114"}, b1.Children)
	assert.Equal(t, "Mental functions", b1.Title()["en"].Text)
	assert.Equal(t, "\nFunctions of the brain.\n\nBoth global and specific.\n", b1.Description()["en"].Text)
	assert.Equal(t, "<p>Functions of the brain.</p><p>Both global and specific.</p>", b1.Description()["en"].Markup)

	b, _ := tree.Class("b")
	assert.Equal(t, icf.EntityKindChapter, b.Kind)
	assert.Empty(t, b.Parent)
	assert.Equal(t, "Fonctions organiques", b.Title()["fr"].Text)

	// Untagged labels belong to the document language.
	d1, _ := tree.Class("d1")
	assert.Equal(t, "Learning and applying knowledge", d1.Title()["en"].Text)

	b110, _ := tree.Class("b110")
	require.Len(t, b110.RubricsOf(icf.RubricExclusion), 1)
	assert.Nil(t, b110.Description())
}

func TestParse_ParentIndex(t *testing.T) {
	tree, err := Parse(strings.NewReader(sampleDoc), Options{})
	require.NoError(t, err)

	parent, ok := tree.Parent("b110")
	assert.True(t, ok)
	assert.Equal(t, "b1", parent)

	_, ok = tree.Parent("b")
	assert.False(t, ok)

	chapter, ok := tree.ChapterOf("b110")
	assert.True(t, ok)
	assert.Equal(t, "b", chapter)

	// d1 has a SuperClass only.
	chapter, _ = tree.ChapterOf("d1")
	assert.Equal(t, "d", chapter)
}

func TestParse_Qualifiers(t *testing.T) {
	tree, err := Parse(strings.NewReader(sampleDoc), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"q_extent"}, tree.Scales())
	m, ok := tree.Modifier("q_extent")
	require.True(t, ok)
	assert.Equal(t, []string{"0", "1"}, m.Values)

	// Inherited from b1.
	qs := tree.Qualifiers("b110")
	require.Len(t, qs, 2)
	assert.Equal(t, "0", qs[0].Code)
	assert.Equal(t, "1", qs[1].Code)
	assert.Equal(t, "slight, low", qs[1].Description()["en"].Text)

	// Excluded on b114.
	assert.Empty(t, tree.Qualifiers("b114"))
	assert.Empty(t, tree.Qualifiers("d1"))

	stats := tree.Stats()
	assert.Equal(t, Stats{Chapters: 2, Categories: 4, Qualifiers: 2, Scales: 1}, stats)
}

func TestParse_DefaultLangFromOptions(t *testing.T) {
	doc := `<ClaML><Class code="b"><Rubric kind="preferred"><Label>Body Functions</Label></Rubric></Class></ClaML>`

	tree, err := Parse(strings.NewReader(doc), Options{DefaultLang: "de"})
	require.NoError(t, err)
	assert.Equal(t, "de", tree.DefaultLanguage())

	tree, err = Parse(strings.NewReader(doc), Options{})
	require.NoError(t, err)
	assert.Equal(t, "und", tree.DefaultLanguage())
}

func TestParse_DefaultLangFromFirstLabel(t *testing.T) {
	doc := `<ClaML>
  <Class code="b"><Rubric kind="preferred"><Label xml:lang="FR">Fonctions</Label><Label xml:lang="en">Functions</Label></Rubric></Class>
</ClaML>`

	tree, err := Parse(strings.NewReader(doc), Options{})
	require.NoError(t, err)
	assert.Equal(t, "fr", tree.DefaultLanguage())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantType any
		contains string
	}{
		{
			name:     "unclosed tag",
			doc:      `<ClaML><Class code="b"><Rubric kind="preferred"><Label>Body</Label></Rubric>`,
			wantType: &SyntaxError{},
		},
		{
			name:     "garbage",
			doc:      `not xml at all <<`,
			wantType: &SyntaxError{},
		},
		{
			name:     "empty document",
			doc:      ``,
			wantType: &StructureError{},
			contains: "no root element",
		},
		{
			name:     "wrong root",
			doc:      `<Classification/>`,
			wantType: &StructureError{},
			contains: "root element",
		},
		{
			name:     "no classes",
			doc:      `<ClaML><Meta name="lang" value="en"/></ClaML>`,
			wantType: &StructureError{},
			contains: "no Class elements",
		},
		{
			name:     "missing code",
			doc:      `<ClaML><Class kind="chapter"><Rubric kind="preferred"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "missing code attribute",
		},
		{
			name:     "rubric without label",
			doc:      `<ClaML><Class code="b"><Rubric kind="preferred"></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "no Label",
		},
		{
			name:     "rubric without kind",
			doc:      `<ClaML><Class code="b"><Rubric><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "missing kind",
		},
		{
			name:     "missing title",
			doc:      `<ClaML><Class code="b"><Rubric kind="definition"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "no preferred label",
		},
		{
			name: "duplicate code",
			doc: `<ClaML>
  <Class code="b"><Rubric kind="preferred"><Label>x</Label></Rubric></Class>
  <Class code="b"><Rubric kind="preferred"><Label>y</Label></Rubric></Class>
</ClaML>`,
			wantType: &StructureError{},
			contains: "duplicate code",
		},
		{
			name:     "unknown superclass",
			doc:      `<ClaML><Class code="b1"><SuperClass code="b"/><Rubric kind="preferred"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "unknown superclass",
		},
		{
			name:     "unknown subclass",
			doc:      `<ClaML><Class code="b"><SubClass code="b1"/><Rubric kind="preferred"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "unknown subclass",
		},
		{
			name: "cycle",
			doc: `<ClaML>
  <Class code="r"><Rubric kind="preferred"><Label>r</Label></Rubric></Class>
  <Class code="a"><SuperClass code="b"/><Rubric kind="preferred"><Label>a</Label></Rubric></Class>
  <Class code="b"><SuperClass code="a"/><Rubric kind="preferred"><Label>b</Label></Rubric></Class>
</ClaML>`,
			wantType: &StructureError{},
			contains: "cycle",
		},
		{
			name:     "path separator in code",
			doc:      `<ClaML><Class code="b/1"><Rubric kind="preferred"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "path separator",
		},
		{
			name:     "reserved code",
			doc:      `<ClaML><Class code="chapters"><Rubric kind="preferred"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "reserved",
		},
		{
			name:     "unknown modifier",
			doc:      `<ClaML><Class code="b"><ModifiedBy code="q"/><Rubric kind="preferred"><Label>x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "unknown modifier",
		},
		{
			name:     "invalid language tag",
			doc:      `<ClaML><Class code="b"><Rubric kind="preferred"><Label xml:lang="not a tag">x</Label></Rubric></Class></ClaML>`,
			wantType: &StructureError{},
			contains: "invalid language tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(strings.NewReader(tt.doc), Options{})
			require.Error(t, err)
			assert.Nil(t, tree)

			switch tt.wantType.(type) {
			case *SyntaxError:
				var se *SyntaxError
				assert.True(t, errors.As(err, &se), "expected SyntaxError, got %T: %v", err, err)
			case *StructureError:
				var se *StructureError
				assert.True(t, errors.As(err, &se), "expected StructureError, got %T: %v", err, err)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.xml"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseFile_Latin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.xml")
	// "Körper" encoded as ISO-8859-1.
	content := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<ClaML><Meta name=\"lang\" value=\"de\"/><Class code=\"b\"><Rubric kind=\"preferred\"><Label>K\xf6rper</Label></Rubric></Class></ClaML>")
	require.NoError(t, os.WriteFile(path, content, 0644))

	tree, err := ParseFile(path, Options{})
	require.NoError(t, err)

	b, _ := tree.Class("b")
	assert.Equal(t, "Körper", b.Title()["de"].Text)
}

func TestTransform(t *testing.T) {
	tree, err := Parse(strings.NewReader(sampleDoc), Options{})
	require.NoError(t, err)

	upper, err := tree.Transform(func(ref Ref, labels Labels) (Labels, error) {
		out := make(Labels, 1)
		out["xx"] = Label{Text: strings.ToUpper(labels["en"].Text)}
		return out, nil
	})
	require.NoError(t, err)

	b, _ := upper.Class("b")
	assert.Equal(t, "BODY FUNCTIONS", b.Title()["xx"].Text)
	assert.Equal(t, []string{"xx"}, upper.Languages())

	// The source tree is untouched.
	orig, _ := tree.Class("b")
	assert.Equal(t, "Body Functions", orig.Title()["en"].Text)

	q, ok := upper.ModifierClass("q_extent", "1")
	require.True(t, ok)
	assert.Equal(t, "MILD PROBLEM", q.Title()["xx"].Text)
}

func TestTransform_ErrorOrder(t *testing.T) {
	tree, err := Parse(strings.NewReader(sampleDoc), Options{})
	require.NoError(t, err)

	var seen []string
	_, err = tree.Transform(func(ref Ref, labels Labels) (Labels, error) {
		seen = append(seen, ref.Code)
		if ref.Code == "b110" {
			return nil, errors.New("stop")
		}
		return labels, nil
	})
	require.Error(t, err)
	assert.Equal(t, []string{"b", "b1", "b1", "b110"}, seen)
}

func TestCanonicalTag(t *testing.T) {
	tag, err := CanonicalTag("en-us")
	require.NoError(t, err)
	assert.Equal(t, "en-US", tag)

	assert.Equal(t, "de", BaseLanguage("de-CH"))

	_, err = CanonicalTag("???")
	assert.Error(t, err)
}
