package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Body Functions", "Body Functions"},
		{"trim", "  Body Functions \n", "Body Functions"},
		{"collapse runs", "Body\n\t  Functions", "Body Functions"},
		{"inline tags", "Body <i>Functions</i>", "Body Functions"},
		{"block tags separate words", "<p>Mental</p><p>functions</p>", "Mental functions"},
		{"break", "first<br/>second", "first second"},
		{"references stay decoded once", "Seeing &amp; hearing", "Seeing &amp; hearing"},
		{"nbsp", "Body\u00a0Functions", "Body Functions"},
		{"escaped markup is text", "&lt;b&gt;Bold&lt;/b&gt; text", "&lt;b&gt;Bold&lt;/b&gt; text"},
		{"attributes", `<span class="x">Body</span> <font size='2'>Functions</font>`, "Body Functions"},
		{"tag formed by removal", "<<b>i>x</i>", "x"},
		{"literal comparison", "if a<b and c>d then", "if a<b and c>d then"},
		{"unknown element", "<foo>bar</foo>", "<foo>bar</foo>"},
		{"unclosed tag", "x <b", "x <b"},
		{"comment", "a<!-- note -->b", "ab"},
		{"literal less-than", "a < b", "a < b"},
		{"nfc", "Ko\u0308rper", "K\u00f6rper"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"Body Functions",
		"  <p>Functions of the brain.</p>\n<p>Both global &amp; specific.</p>",
		"&amp;lt;i&amp;gt;nested&amp;lt;/i&amp;gt;",
		"Ko\u0308rper  funktionen",
		"a < b > c",
		"<ul><li>one</li><li>two</li></ul>",
		"x<y",
		"if a<b and c>d then",
		"e<i></i>\u0301",
		strings.Repeat("&amp;", 9) + "lt;b" + strings.Repeat("&amp;", 9) + "gt;x",
		strings.Repeat("<b>", 20) + "deep" + strings.Repeat("</b>", 20),
	}

	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		assert.Equal(t, once, twice, "input %q", in)
		assert.LessOrEqual(t, len(twice), len(once))
	}
}

func TestClean_DeepReferences(t *testing.T) {
	in := strings.Repeat("&amp;", 12) + "lt;b" + strings.Repeat("&amp;", 12) + "gt;x"
	assert.Equal(t, in, Clean(in))
}
