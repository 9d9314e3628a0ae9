package codec

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
)

// fieldErrors unwraps the per-field messages from a Bind error.
func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.ErrorIs(t, err, apperror.ErrValidation)
	return appErr.Fields
}

func existingSnippet() *model.Snippet {
	owner := int64(3)
	return &model.Snippet{
		ID:        9,
		Title:     "old title",
		Code:      "print('old')",
		Linenos:   true,
		Language:  "go",
		Style:     "monokai",
		OwnerID:   &owner,
		OwnerName: "alice",
	}
}

// =========================================================================
// CREATE
// =========================================================================

func TestBind_CreateAppliesDefaults(t *testing.T) {
	got, err := Bind(map[string]any{"code": "print('hi')"}, nil, false)
	require.NoError(t, err)

	want := &model.Snippet{
		Title:    "",
		Code:     "print('hi')",
		Linenos:  false,
		Language: "python",
		Style:    "friendly",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Bind() mismatch (-want +got):\n%s", diff)
	}
}

func TestBind_CreateAllFields(t *testing.T) {
	got, err := Bind(map[string]any{
		"title":    "Hello",
		"code":     "fn main() {}",
		"linenos":  true,
		"language": "rust",
		"style":    "monokai",
	}, nil, false)
	require.NoError(t, err)

	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "fn main() {}", got.Code)
	assert.True(t, got.Linenos)
	assert.Equal(t, "rust", got.Language)
	assert.Equal(t, "monokai", got.Style)
	assert.Nil(t, got.OwnerID)
}

func TestBind_CodeRules(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		wantMsg string
	}{
		{"missing", map[string]any{"title": "no code"}, "This field is required."},
		{"empty", map[string]any{"code": ""}, "This field may not be blank."},
		{"whitespace only", map[string]any{"code": "  \n\t"}, "This field may not be blank."},
		{"null", map[string]any{"code": nil}, "This field may not be null."},
		{"object", map[string]any{"code": map[string]any{"a": 1}}, "Not a valid string."},
		{"list", map[string]any{"code": []any{"x"}}, "Not a valid string."},
		{"boolean", map[string]any{"code": true}, "Not a valid string."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(tt.payload, nil, false)
			fields := fieldErrors(t, err)
			assert.Equal(t, []string{tt.wantMsg}, fields["code"])
		})
	}
}

func TestBind_CodeIsNotTrimmed(t *testing.T) {
	got, err := Bind(map[string]any{"code": "    indented()\n"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "    indented()\n", got.Code)
}

func TestBind_TitleRules(t *testing.T) {
	tests := []struct {
		name      string
		title     any
		wantTitle string
		wantMsg   string
	}{
		{name: "blank allowed", title: "", wantTitle: ""},
		{name: "trimmed", title: "  Hi  ", wantTitle: "Hi"},
		{name: "exactly max", title: strings.Repeat("a", MaxTitleLength), wantTitle: strings.Repeat("a", MaxTitleLength)},
		{name: "max counts characters not bytes", title: strings.Repeat("é", MaxTitleLength), wantTitle: strings.Repeat("é", MaxTitleLength)},
		{name: "number coerced", title: float64(42), wantTitle: "42"},
		{name: "too long", title: strings.Repeat("a", MaxTitleLength+1), wantMsg: "Ensure this field has no more than 100 characters."},
		{name: "boolean rejected", title: false, wantMsg: "Not a valid string."},
		{name: "null rejected", title: nil, wantMsg: "This field may not be null."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bind(map[string]any{"code": "x", "title": tt.title}, nil, false)
			if tt.wantMsg != "" {
				fields := fieldErrors(t, err)
				assert.Equal(t, []string{tt.wantMsg}, fields["title"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestBind_LinenosCoercion(t *testing.T) {
	tests := []struct {
		value   any
		want    bool
		wantErr bool
	}{
		{value: true, want: true},
		{value: false, want: false},
		{value: "true", want: true},
		{value: "False", want: false},
		{value: "yes", want: true},
		{value: "off", want: false},
		{value: "1", want: true},
		{value: "0", want: false},
		{value: float64(1), want: true},
		{value: float64(0), want: false},
		{value: float64(2), wantErr: true},
		{value: "maybe", wantErr: true},
		{value: "", wantErr: true},
		{value: []any{true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T(%v)", tt.value, tt.value), func(t *testing.T) {
			got, err := Bind(map[string]any{"code": "x", "linenos": tt.value}, nil, false)
			if tt.wantErr {
				fields := fieldErrors(t, err)
				assert.Equal(t, []string{"Must be a valid boolean."}, fields["linenos"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Linenos)
		})
	}
}

func TestBind_InvalidLanguage(t *testing.T) {
	_, err := Bind(map[string]any{"code": "x", "language": "klingon"}, nil, false)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidChoice), "error should match ErrInvalidChoice")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{`"klingon" is not a valid choice.`}, appErr.Fields["language"])
	assert.Contains(t, appErr.Choices["language"], "python")
	assert.NotContains(t, appErr.Choices, "style")
}

func TestBind_InvalidStyle(t *testing.T) {
	_, err := Bind(map[string]any{"code": "x", "style": "neon-dreams"}, nil, false)

	require.ErrorIs(t, err, apperror.ErrInvalidChoice)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{`"neon-dreams" is not a valid choice.`}, appErr.Fields["style"])
	assert.Contains(t, appErr.Choices["style"], "friendly")
}

func TestBind_ValidChoices(t *testing.T) {
	for _, lang := range []string{"python", "go", "rust"} {
		got, err := Bind(map[string]any{"code": "x", "language": lang}, nil, false)
		require.NoError(t, err, lang)
		assert.Equal(t, lang, got.Language)
	}
}

func TestBind_CollectsEveryFieldError(t *testing.T) {
	_, err := Bind(map[string]any{
		"title":    strings.Repeat("t", 200),
		"linenos":  "sometimes",
		"language": "nope",
	}, nil, false)

	fields := fieldErrors(t, err)
	assert.Len(t, fields, 4)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "code")
	assert.Contains(t, fields, "linenos")
	assert.Contains(t, fields, "language")
}

func TestBind_IgnoresUnknownAndReadOnlyFields(t *testing.T) {
	got, err := Bind(map[string]any{
		"code":        "x",
		"id":          float64(99),
		"owner":       "mallory",
		"url":         "http://evil/snippets/99/",
		"highlight":   "http://evil/",
		"highlighted": "<b>x</b>",
		"extra":       []any{1, 2, 3},
	}, nil, false)
	require.NoError(t, err)

	assert.Equal(t, int64(0), got.ID)
	assert.Nil(t, got.OwnerID)
	assert.Empty(t, got.OwnerName)
}

// =========================================================================
// UPDATE
// =========================================================================

func TestBind_PartialUpdateChangesOnlyGivenFields(t *testing.T) {
	existing := existingSnippet()
	before := *existing

	got, err := Bind(map[string]any{"title": "new"}, existing, true)
	require.NoError(t, err)

	want := before
	want.Title = "new"
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("partial update mismatch (-want +got):\n%s", diff)
	}

	// existing must not have been touched
	if diff := cmp.Diff(&before, existing); diff != "" {
		t.Errorf("existing was mutated (-before +after):\n%s", diff)
	}
	// owner pointer is a copy, not shared
	assert.NotSame(t, existing.OwnerID, got.OwnerID)
}

func TestBind_PartialUpdateWithoutCodeIsValid(t *testing.T) {
	got, err := Bind(map[string]any{"linenos": false}, existingSnippet(), true)
	require.NoError(t, err)
	assert.Equal(t, "print('old')", got.Code)
	assert.False(t, got.Linenos)
}

func TestBind_PartialUpdateStillValidatesPresentFields(t *testing.T) {
	_, err := Bind(map[string]any{"code": "", "style": "nope"}, existingSnippet(), true)

	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"This field may not be blank."}, fields["code"])
	assert.Contains(t, fields, "style")
}

func TestBind_FullUpdateRequiresCode(t *testing.T) {
	_, err := Bind(map[string]any{"title": "only title"}, existingSnippet(), false)

	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"This field is required."}, fields["code"])
}

func TestBind_FullUpdateResetsAbsentFieldsToDefaults(t *testing.T) {
	existing := existingSnippet()

	got, err := Bind(map[string]any{"code": "new code"}, existing, false)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, "new code", got.Code)
	assert.False(t, got.Linenos)
	assert.Equal(t, DefaultLanguage, got.Language)
	assert.Equal(t, DefaultStyle, got.Style)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, *existing.OwnerID, *got.OwnerID)
	assert.Equal(t, "alice", got.OwnerName)
}

func TestBind_UpdateCannotChangeOwnerOrID(t *testing.T) {
	existing := existingSnippet()

	got, err := Bind(map[string]any{"code": "x", "owner": "bob", "id": float64(1)}, existing, true)
	require.NoError(t, err)

	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, int64(3), *got.OwnerID)
	assert.Equal(t, "alice", got.OwnerName)
}

func TestBind_PartialWithoutExistingActsAsCreate(t *testing.T) {
	_, err := Bind(map[string]any{"title": "t"}, nil, true)

	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"This field is required."}, fields["code"])
}

func TestBind_FailureReturnsNoRecord(t *testing.T) {
	existing := existingSnippet()
	before := *existing

	got, err := Bind(map[string]any{"title": "fine", "language": "bad"}, existing, true)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, before.Title, existing.Title)
}
