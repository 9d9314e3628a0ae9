// Package highlight renders snippet code as a syntax-highlighted HTML page.
//
// WHY CHROMA?
// Chroma is a pure-Go port of Pygments. Its lexer and style registries use
// the same names Pygments does ("python", "go", "friendly", "monokai"...),
// so the set of languages and styles a snippet may declare is simply "what
// the registry knows about". This package is the only place that touches
// chroma; the codec talks to it through the Render method and the two
// registry listings below.
package highlight

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// FallbackStyle is used when a style name is unknown to the registry.
// Validation keeps unknown names out of the store, so this only matters for
// callers that bypass the codec.
const FallbackStyle = "friendly"

var (
	registryOnce sync.Once
	languages    []string
	styleNames   []string
)

func loadRegistries() {
	registryOnce.Do(func() {
		seen := make(map[string]bool)
		for _, name := range lexers.Names(true) {
			name = strings.ToLower(name)
			if name == "" || strings.ContainsAny(name, " \t") || seen[name] {
				continue
			}
			if lexers.Get(name) == nil {
				continue
			}
			seen[name] = true
			languages = append(languages, name)
		}
		sort.Strings(languages)

		styleNames = append(styleNames, styles.Names()...)
		sort.Strings(styleNames)
	})
}

// Languages returns every language identifier the highlighter can lex,
// sorted. The returned slice must not be modified.
func Languages() []string {
	loadRegistries()
	return languages
}

// Styles returns every registered style name, sorted. The returned slice
// must not be modified.
func Styles() []string {
	loadRegistries()
	return styleNames
}

// Chroma renders code with chroma's HTML formatter.
//
// The output is a full standalone HTML document with inline CSS, like the
// Pygments HtmlFormatter(full=True). When line numbers are requested they
// are rendered in a separate table column, like linenos="table".
type Chroma struct{}

// New returns a Chroma highlighter. It holds no state; the constructor is
// here so the server wires it like any other dependency.
func New() *Chroma {
	return &Chroma{}
}

// Render returns the highlighted HTML for code. It is deterministic: the
// same inputs always produce the same bytes.
func (c *Chroma) Render(code, language, style string, linenos bool) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	st := styles.Get(style)
	if st == nil {
		st = styles.Get(FallbackStyle)
	}

	formatter := html.New(
		html.Standalone(true),
		html.WithLineNumbers(linenos),
		html.LineNumbersInTable(linenos),
	)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("highlight: tokenising %s: %w", language, err)
	}

	var b strings.Builder
	if err := formatter.Format(&b, st, iterator); err != nil {
		return "", fmt.Errorf("highlight: formatting: %w", err)
	}
	return b.String(), nil
}
