package codec

import (
	"sync"

	"github.com/sakif/snippet-api/internal/highlight"
)

// Field defaults and limits.
const (
	DefaultLanguage = "python"
	DefaultStyle    = "friendly"
	MaxTitleLength  = 100
)

var (
	setsOnce    sync.Once
	languageSet map[string]struct{}
	styleSet    map[string]struct{}
)

func loadSets() {
	setsOnce.Do(func() {
		languageSet = toSet(highlight.Languages())
		styleSet = toSet(highlight.Styles())
	})
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Languages returns the sorted set of accepted language identifiers.
func Languages() []string {
	return highlight.Languages()
}

// Styles returns the sorted set of accepted highlighting style names.
func Styles() []string {
	return highlight.Styles()
}

func IsLanguage(name string) bool {
	loadSets()
	_, ok := languageSet[name]
	return ok
}

func IsStyle(name string) bool {
	loadSets()
	_, ok := styleSet[name]
	return ok
}
