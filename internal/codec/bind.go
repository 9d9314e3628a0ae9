package codec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
)

// Field names accepted in a snippet payload. Anything else is ignored.
const (
	FieldTitle    = "title"
	FieldCode     = "code"
	FieldLinenos  = "linenos"
	FieldLanguage = "language"
	FieldStyle    = "style"
)

const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgBlank         = "This field may not be blank."
	msgNotString     = "Not a valid string."
	msgNotBool       = "Must be a valid boolean."
	msgInvalidChoice = "%q is not a valid choice."
)

var msgTitleTooLong = fmt.Sprintf("Ensure this field has no more than %d characters.", MaxTitleLength)

// Bind validates payload against the snippet schema and returns the record
// it describes.
//
// THREE MODES:
//   - create          existing == nil            absent fields take their defaults
//   - full update     existing != nil, !partial  absent fields take their defaults
//   - partial update  existing != nil, partial   absent fields keep existing's value
//
// partial with a nil existing is treated as create.
//
// Either every present field is valid and a fresh record is returned, or a
// validation error listing every bad field is returned and nothing is bound.
// existing is never modified. ID and owner are carried over from existing
// and can never be set from the payload.
func Bind(payload map[string]any, existing *model.Snippet, partial bool) (*model.Snippet, error) {
	partial = partial && existing != nil
	out := baseRecord(existing, partial)
	b := &binder{payload: payload}

	if title, ok := b.text(FieldTitle); ok {
		title = strings.TrimSpace(title)
		if utf8.RuneCountInString(title) > MaxTitleLength {
			b.fail(FieldTitle, msgTitleTooLong)
		} else {
			out.Title = title
		}
	}

	if code, ok := b.text(FieldCode); ok {
		if strings.TrimSpace(code) == "" {
			b.fail(FieldCode, msgBlank)
		} else {
			out.Code = code
		}
	} else if !partial && !b.present(FieldCode) {
		b.fail(FieldCode, msgRequired)
	}

	if linenos, ok := b.boolean(FieldLinenos); ok {
		out.Linenos = linenos
	}

	if lang, ok := b.choice(FieldLanguage, IsLanguage, Languages); ok {
		out.Language = lang
	}

	if style, ok := b.choice(FieldStyle, IsStyle, Styles); ok {
		out.Style = style
	}

	if len(b.errs) > 0 {
		return nil, apperror.Invalid(b.errs, b.choices)
	}
	return out, nil
}

// baseRecord is the record fields start from before the payload is applied.
func baseRecord(existing *model.Snippet, partial bool) *model.Snippet {
	if existing == nil {
		return &model.Snippet{Language: DefaultLanguage, Style: DefaultStyle}
	}

	out := &model.Snippet{
		ID:        existing.ID,
		Language:  DefaultLanguage,
		Style:     DefaultStyle,
		OwnerName: existing.OwnerName,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: existing.UpdatedAt,
	}
	if partial {
		*out = *existing
	}
	if existing.OwnerID != nil {
		id := *existing.OwnerID
		out.OwnerID = &id
	}
	return out
}

// binder reads individual fields out of a payload and collects every
// violation it finds.
type binder struct {
	payload map[string]any
	errs    map[string][]string
	choices map[string][]string
}

func (b *binder) fail(field, msg string) {
	if b.errs == nil {
		b.errs = make(map[string][]string)
	}
	b.errs[field] = append(b.errs[field], msg)
}

func (b *binder) present(field string) bool {
	_, ok := b.payload[field]
	return ok
}

// raw returns the value of field. ok is false when the field is absent or
// null; a null is recorded as an error.
func (b *binder) raw(field string) (any, bool) {
	v, ok := b.payload[field]
	if !ok {
		return nil, false
	}
	if v == nil {
		b.fail(field, msgNull)
		return nil, false
	}
	return v, true
}

func (b *binder) text(field string) (string, bool) {
	v, ok := b.raw(field)
	if !ok {
		return "", false
	}
	var s string
	if err := decodeField(v, &s); err != nil {
		b.fail(field, msgNotString)
		return "", false
	}
	return s, true
}

func (b *binder) boolean(field string) (bool, bool) {
	v, ok := b.raw(field)
	if !ok {
		return false, false
	}
	var out bool
	if err := decodeField(v, &out); err != nil {
		b.fail(field, msgNotBool)
		return false, false
	}
	return out, true
}

func (b *binder) choice(field string, valid func(string) bool, allowed func() []string) (string, bool) {
	s, ok := b.text(field)
	if !ok {
		return "", false
	}
	if !valid(s) {
		b.fail(field, fmt.Sprintf(msgInvalidChoice, s))
		if b.choices == nil {
			b.choices = make(map[string][]string)
		}
		b.choices[field] = allowed()
		return "", false
	}
	return s, true
}

// decodeField converts one raw wire value into out using mapstructure's
// weak typing (numbers become strings, "true" becomes true) narrowed by
// fieldHook to the coercions the API documents.
func decodeField(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       fieldHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

var (
	trueStrings  = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "on": true, "1": true}
	falseStrings = map[string]bool{"false": true, "f": true, "no": true, "n": true, "off": true, "0": true}
)

// fieldHook rejects the weak conversions mapstructure would otherwise allow
// but the API does not: booleans and containers as text, and anything but
// 0/1 or a known word as a boolean.
func fieldHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.String:
		switch from.Kind() {
		case reflect.Bool, reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
			return nil, fmt.Errorf("cannot use %s as text", from.Kind())
		}
	case reflect.Bool:
		switch v := data.(type) {
		case bool:
			return v, nil
		case string:
			s := strings.ToLower(strings.TrimSpace(v))
			if trueStrings[s] {
				return true, nil
			}
			if falseStrings[s] {
				return false, nil
			}
			return nil, fmt.Errorf("%q is not a boolean", v)
		}
		rv := reflect.ValueOf(data)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return intBool(float64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return intBool(float64(rv.Uint()))
		case reflect.Float32, reflect.Float64:
			return intBool(rv.Float())
		}
		return nil, fmt.Errorf("cannot use %s as a boolean", from.Kind())
	}
	return data, nil
}

func intBool(f float64) (interface{}, error) {
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, fmt.Errorf("%v is not a boolean", f)
}
