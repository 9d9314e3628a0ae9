package highlight

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguages_ContainsCommonLexers(t *testing.T) {
	langs := Languages()

	for _, want := range []string{"python", "go", "rust", "javascript"} {
		assert.Contains(t, langs, want)
	}
	assert.True(t, sort.StringsAreSorted(langs), "languages should be sorted")
}

func TestLanguages_AreLowercaseIdentifiers(t *testing.T) {
	for _, name := range Languages() {
		if name != strings.ToLower(name) || strings.Contains(name, " ") {
			t.Errorf("language %q is not a lowercase identifier", name)
		}
	}
}

func TestStyles_ContainsFriendly(t *testing.T) {
	st := Styles()

	assert.Contains(t, st, "friendly")
	assert.Contains(t, st, "monokai")
	assert.True(t, sort.StringsAreSorted(st), "styles should be sorted")
}

func TestRender_ProducesStandaloneHTML(t *testing.T) {
	h := New()

	out, err := h.Render("print('hi')", "python", "friendly", false)
	require.NoError(t, err)

	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "print")
}

func TestRender_Deterministic(t *testing.T) {
	h := New()

	first, err := h.Render("fn main() {}", "rust", "monokai", true)
	require.NoError(t, err)
	second, err := h.Render("fn main() {}", "rust", "monokai", true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRender_LinenosChangesOutput(t *testing.T) {
	h := New()

	plain, err := h.Render("a = 1\nb = 2\n", "python", "friendly", false)
	require.NoError(t, err)
	numbered, err := h.Render("a = 1\nb = 2\n", "python", "friendly", true)
	require.NoError(t, err)

	assert.NotEqual(t, plain, numbered)
	assert.Contains(t, numbered, "<table")
}

func TestRender_UnknownNamesFallBack(t *testing.T) {
	h := New()

	out, err := h.Render("hello", "no-such-language", "no-such-style", false)
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}
