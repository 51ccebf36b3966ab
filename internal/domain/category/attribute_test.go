package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func dropdownAttr(t *testing.T, values ...string) *AttributeDefinition {
	t.Helper()
	opts := make([]AttributeOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, AttributeOption{Value: v})
	}
	attr, err := newAttribute(AttributeSpec{Name: "Choice", Type: TypeDropdown, Options: opts}, 0)
	require.NoError(t, err)
	return attr
}

// ============================================
// Definition Creation Tests
// ============================================

func TestNewAttribute_Valid(t *testing.T) {
	attr, err := newAttribute(AttributeSpec{Name: "  Screen Size  ", Type: TypeDecimal}, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, attr.ID)
	assert.Equal(t, "Screen Size", attr.Name)
	assert.Equal(t, TypeDecimal, attr.Type)
	assert.Equal(t, 3, attr.Order)
	assert.Empty(t, attr.Options)
}

func TestNewAttribute_EmptyName(t *testing.T) {
	_, err := newAttribute(AttributeSpec{Name: "   ", Type: TypeText}, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestNewAttribute_UnknownType(t *testing.T) {
	_, err := newAttribute(AttributeSpec{Name: "Weird", Type: "telepathy"}, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Field)
}

func TestNewAttribute_OptionRules(t *testing.T) {
	// Option-bearing type without options is rejected.
	_, err := newAttribute(AttributeSpec{Name: "Color", Type: TypeDropdown}, 0)
	assert.Error(t, err)

	// Scalar type with options is rejected.
	_, err = newAttribute(AttributeSpec{
		Name:    "Weight",
		Type:    TypeNumber,
		Options: []AttributeOption{{Value: "1"}},
	}, 0)
	assert.Error(t, err)

	// Duplicate option values are rejected.
	_, err = newAttribute(AttributeSpec{
		Name:    "Size",
		Type:    TypeRadio,
		Options: []AttributeOption{{Value: "m"}, {Value: "m"}},
	}, 0)
	assert.Error(t, err)
}

func TestNewAttribute_AssignsOptionDefaults(t *testing.T) {
	attr := dropdownAttr(t, "red", "green", "blue")
	require.Len(t, attr.Options, 3)
	for i, opt := range attr.Options {
		assert.NotEmpty(t, opt.ID)
		assert.Equal(t, i, opt.Order)
		assert.Equal(t, opt.Value, opt.Label)
	}
}

func TestNewAttribute_BadPattern(t *testing.T) {
	_, err := newAttribute(AttributeSpec{
		Name:       "Code",
		Type:       TypeText,
		Validation: &AttributeValidation{Pattern: "["},
	}, 0)
	assert.Error(t, err)
}

// ============================================
// Value Validation Tests
// ============================================

func TestValidateValue_PerType(t *testing.T) {
	choice := dropdownAttr(t, "red", "green")
	checkbox, err := newAttribute(AttributeSpec{
		Name:    "Features",
		Type:    TypeCheckbox,
		Options: []AttributeOption{{Value: "wifi"}, {Value: "gps"}},
	}, 0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		attr  *AttributeDefinition
		value any
		ok    bool
	}{
		{"text accepts string", &AttributeDefinition{Name: "t", Type: TypeText}, "hello", true},
		{"text rejects number", &AttributeDefinition{Name: "t", Type: TypeText}, 5, false},
		{"number accepts int", &AttributeDefinition{Name: "n", Type: TypeNumber}, 5, true},
		{"number rejects fraction", &AttributeDefinition{Name: "n", Type: TypeNumber}, 5.5, false},
		{"decimal accepts fraction", &AttributeDefinition{Name: "d", Type: TypeDecimal}, 5.5, true},
		{"decimal rejects string", &AttributeDefinition{Name: "d", Type: TypeDecimal}, "5.5", false},
		{"boolean accepts bool", &AttributeDefinition{Name: "b", Type: TypeBoolean}, true, true},
		{"boolean rejects string", &AttributeDefinition{Name: "b", Type: TypeBoolean}, "true", false},
		{"date accepts ISO day", &AttributeDefinition{Name: "d", Type: TypeDate}, "2024-03-01", true},
		{"date rejects garbage", &AttributeDefinition{Name: "d", Type: TypeDate}, "not a date", false},
		{"dropdown accepts option", choice, "red", true},
		{"dropdown rejects non-option", choice, "yellow", false},
		{"checkbox accepts subset", checkbox, []string{"wifi"}, true},
		{"checkbox rejects non-subset", checkbox, []string{"wifi", "nfc"}, false},
		{"checkbox rejects scalar", checkbox, "wifi", false},
		{"color accepts short hex", &AttributeDefinition{Name: "c", Type: TypeColor}, "#fff", true},
		{"color accepts long hex", &AttributeDefinition{Name: "c", Type: TypeColor}, "#FF8800", true},
		{"color rejects word", &AttributeDefinition{Name: "c", Type: TypeColor}, "red", false},
		{"color rejects bad length", &AttributeDefinition{Name: "c", Type: TypeColor}, "#ffff", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attr.ValidateValue(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateValue_RequiredAndNil(t *testing.T) {
	optional := &AttributeDefinition{Name: "o", Type: TypeText}
	required := &AttributeDefinition{Name: "r", Type: TypeText, Required: true}

	assert.NoError(t, optional.ValidateValue(nil))
	assert.Error(t, required.ValidateValue(nil))
}

func TestValidateValue_Constraints(t *testing.T) {
	text := &AttributeDefinition{
		Name:       "sku",
		Type:       TypeText,
		Validation: &AttributeValidation{MinLength: intPtr(3), MaxLength: intPtr(5), Pattern: "^[a-z]+$"},
	}
	assert.NoError(t, text.ValidateValue("abcd"))
	assert.Error(t, text.ValidateValue("ab"))
	assert.Error(t, text.ValidateValue("abcdef"))
	assert.Error(t, text.ValidateValue("ABCD"))

	num := &AttributeDefinition{
		Name:       "qty",
		Type:       TypeNumber,
		Validation: &AttributeValidation{MinValue: floatPtr(1), MaxValue: floatPtr(10)},
	}
	assert.NoError(t, num.ValidateValue(5))
	assert.Error(t, num.ValidateValue(0))
	assert.Error(t, num.ValidateValue(11))

	file := &AttributeDefinition{
		Name:       "manual",
		Type:       TypeFile,
		Validation: &AttributeValidation{AllowedFileTypes: []string{"pdf", ".txt"}},
	}
	assert.NoError(t, file.ValidateValue("guide.PDF"))
	assert.NoError(t, file.ValidateValue("notes.txt"))
	assert.Error(t, file.ValidateValue("movie.mp4"))
}

// ============================================
// Option Reorder Tests
// ============================================

func TestReorderOptions(t *testing.T) {
	attr := dropdownAttr(t, "red", "green", "blue")
	ids := []string{attr.Options[2].ID, attr.Options[0].ID, attr.Options[1].ID}

	require.NoError(t, attr.ReorderOptions(ids))
	assert.Equal(t, "blue", attr.Options[0].Value)
	assert.Equal(t, "red", attr.Options[1].Value)
	assert.Equal(t, "green", attr.Options[2].Value)
	for i, opt := range attr.Options {
		assert.Equal(t, i, opt.Order)
	}
}

func TestReorderOptions_MismatchedIDSet(t *testing.T) {
	attr := dropdownAttr(t, "red", "green")

	// Wrong count.
	assert.Error(t, attr.ReorderOptions([]string{attr.Options[0].ID}))

	// Unknown id.
	assert.Error(t, attr.ReorderOptions([]string{attr.Options[0].ID, "nope"}))

	// Failed reorders leave the original order intact.
	assert.Equal(t, "red", attr.Options[0].Value)
	assert.Equal(t, "green", attr.Options[1].Value)
}
