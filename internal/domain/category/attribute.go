package category

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttributeType enumerates the dynamic field kinds a category can attach to
// its products. The set is closed: every switch over it lists all members so
// a new type is a compile-visible change.
type AttributeType string

const (
	TypeText     AttributeType = "text"
	TypeTextarea AttributeType = "textarea"
	TypeNumber   AttributeType = "number"
	TypeDecimal  AttributeType = "decimal"
	TypeBoolean  AttributeType = "boolean"
	TypeDate     AttributeType = "date"
	TypeDropdown AttributeType = "dropdown"
	TypeRadio    AttributeType = "radio"
	TypeCheckbox AttributeType = "checkbox"
	TypeColor    AttributeType = "color"
	TypeImage    AttributeType = "image"
	TypeFile     AttributeType = "file"
)

// Valid reports whether t is a recognized attribute type.
func (t AttributeType) Valid() bool {
	switch t {
	case TypeText, TypeTextarea, TypeNumber, TypeDecimal, TypeBoolean, TypeDate,
		TypeDropdown, TypeRadio, TypeCheckbox, TypeColor, TypeImage, TypeFile:
		return true
	}
	return false
}

// RequiresOptions reports whether the type carries an option set. Option
// lists must be non-empty for these types and empty for all others.
func (t AttributeType) RequiresOptions() bool {
	switch t {
	case TypeDropdown, TypeRadio, TypeCheckbox:
		return true
	}
	return false
}

// AttributeOption is one selectable value of a dropdown, radio or checkbox
// attribute.
type AttributeOption struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// AttributeValidation holds the optional constraints whose applicability
// depends on the attribute type. Unset pointer fields mean "no constraint".
type AttributeValidation struct {
	MinLength        *int     `json:"min_length,omitempty"`
	MaxLength        *int     `json:"max_length,omitempty"`
	MinValue         *float64 `json:"min_value,omitempty"`
	MaxValue         *float64 `json:"max_value,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`
	MaxFileSize      int64    `json:"max_file_size,omitempty"`
}

// AttributeDefinition describes one dynamic, typed field attached to a
// category. It has no identity outside its owning node: it is created and
// edited through the node and dies with it.
type AttributeDefinition struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Type                AttributeType        `json:"type"`
	Required            bool                 `json:"required"`
	Order               int                  `json:"order"`
	Options             []AttributeOption    `json:"options,omitempty"`
	Validation          *AttributeValidation `json:"validation,omitempty"`
	ShowInFilter        bool                 `json:"show_in_filter"`
	ShowInProductList   bool                 `json:"show_in_product_list"`
	ShowInProductDetail bool                 `json:"show_in_product_detail"`
}

// AttributeSpec is caller input for creating an attribute definition.
type AttributeSpec struct {
	Name                string               `json:"name"`
	Type                AttributeType        `json:"type"`
	Required            bool                 `json:"required"`
	Options             []AttributeOption    `json:"options,omitempty"`
	Validation          *AttributeValidation `json:"validation,omitempty"`
	ShowInFilter        bool                 `json:"show_in_filter"`
	ShowInProductList   bool                 `json:"show_in_product_list"`
	ShowInProductDetail bool                 `json:"show_in_product_detail"`
}

// newAttribute validates spec and builds a definition with the given sibling
// order. Option ids are assigned when missing; option values must be unique.
func newAttribute(spec AttributeSpec, order int) (*AttributeDefinition, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, validationErrorf("name", "attribute name is required")
	}
	if !spec.Type.Valid() {
		return nil, validationErrorf("type", "unrecognized attribute type %q", spec.Type)
	}
	if spec.Type.RequiresOptions() {
		if len(spec.Options) == 0 {
			return nil, validationErrorf("options", "type %q requires at least one option", spec.Type)
		}
	} else if len(spec.Options) > 0 {
		return nil, validationErrorf("options", "type %q does not take options", spec.Type)
	}

	seen := make(map[string]struct{}, len(spec.Options))
	options := make([]AttributeOption, 0, len(spec.Options))
	for i, opt := range spec.Options {
		if opt.Value == "" {
			return nil, validationErrorf("options", "option %d has an empty value", i+1)
		}
		if _, dup := seen[opt.Value]; dup {
			return nil, validationErrorf("options", "duplicate option value %q", opt.Value)
		}
		seen[opt.Value] = struct{}{}
		if opt.ID == "" {
			opt.ID = uuid.New().String()
		}
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		opt.Order = i
		options = append(options, opt)
	}

	if spec.Validation != nil && spec.Validation.Pattern != "" {
		if _, err := regexp.Compile(spec.Validation.Pattern); err != nil {
			return nil, validationErrorf("validation.pattern", "invalid pattern: %v", err)
		}
	}

	return &AttributeDefinition{
		ID:                  uuid.New().String(),
		Name:                strings.TrimSpace(spec.Name),
		Type:                spec.Type,
		Required:            spec.Required,
		Order:               order,
		Options:             options,
		Validation:          spec.Validation,
		ShowInFilter:        spec.ShowInFilter,
		ShowInProductList:   spec.ShowInProductList,
		ShowInProductDetail: spec.ShowInProductDetail,
	}, nil
}

// ReorderOptions reassigns option order to match ids. The supplied id set
// must exactly match the existing option ids.
func (a *AttributeDefinition) ReorderOptions(ids []string) error {
	byID := make(map[string]AttributeOption, len(a.Options))
	for _, opt := range a.Options {
		byID[opt.ID] = opt
	}
	if len(ids) != len(a.Options) {
		return validationErrorf("options", "expected %d option ids, got %d", len(a.Options), len(ids))
	}
	reordered := make([]AttributeOption, 0, len(ids))
	for i, id := range ids {
		opt, ok := byID[id]
		if !ok {
			return validationErrorf("options", "unknown option id %q", id)
		}
		delete(byID, id)
		opt.Order = i
		reordered = append(reordered, opt)
	}
	a.Options = reordered
	return nil
}

// hexColorRegex accepts #RGB and #RRGGBB.
var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// dateLayouts accepted by date attributes, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ValidateValue checks a candidate product value against the attribute's type
// and constraints. It is a pure predicate: nil means the value is acceptable,
// a *ValidationError explains the first failure. A nil value passes unless
// the attribute is required.
func (a *AttributeDefinition) ValidateValue(value any) error {
	if value == nil {
		if a.Required {
			return validationErrorf(a.Name, "value is required")
		}
		return nil
	}

	switch a.Type {
	case TypeText, TypeTextarea:
		s, ok := value.(string)
		if !ok {
			return validationErrorf(a.Name, "expected a string")
		}
		return a.checkText(s)
	case TypeNumber, TypeDecimal:
		f, ok := toFloat(value)
		if !ok {
			return validationErrorf(a.Name, "expected a number")
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return validationErrorf(a.Name, "number must be finite")
		}
		if a.Type == TypeNumber && f != math.Trunc(f) {
			return validationErrorf(a.Name, "expected a whole number")
		}
		return a.checkRange(f)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return validationErrorf(a.Name, "expected a boolean")
		}
		return nil
	case TypeDate:
		return a.checkDate(value)
	case TypeDropdown, TypeRadio:
		s, ok := value.(string)
		if !ok {
			return validationErrorf(a.Name, "expected an option value")
		}
		if !a.hasOption(s) {
			return validationErrorf(a.Name, "%q is not one of the options", s)
		}
		return nil
	case TypeCheckbox:
		values, ok := toStringSlice(value)
		if !ok {
			return validationErrorf(a.Name, "expected a list of option values")
		}
		for _, v := range values {
			if !a.hasOption(v) {
				return validationErrorf(a.Name, "%q is not one of the options", v)
			}
		}
		return nil
	case TypeColor:
		s, ok := value.(string)
		if !ok || !hexColorRegex.MatchString(s) {
			return validationErrorf(a.Name, "expected a hex color like #fff or #ff8800")
		}
		return nil
	case TypeImage, TypeFile:
		s, ok := value.(string)
		if !ok || s == "" {
			return validationErrorf(a.Name, "expected a file reference")
		}
		return a.checkFileType(s)
	}
	return validationErrorf(a.Name, "unrecognized attribute type %q", a.Type)
}

func (a *AttributeDefinition) checkText(s string) error {
	v := a.Validation
	if v == nil {
		return nil
	}
	if v.MinLength != nil && len(s) < *v.MinLength {
		return validationErrorf(a.Name, "must be at least %d characters", *v.MinLength)
	}
	if v.MaxLength != nil && len(s) > *v.MaxLength {
		return validationErrorf(a.Name, "must be at most %d characters", *v.MaxLength)
	}
	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil || !re.MatchString(s) {
			return validationErrorf(a.Name, "does not match the required pattern")
		}
	}
	return nil
}

func (a *AttributeDefinition) checkRange(f float64) error {
	v := a.Validation
	if v == nil {
		return nil
	}
	if v.MinValue != nil && f < *v.MinValue {
		return validationErrorf(a.Name, "must be at least %v", *v.MinValue)
	}
	if v.MaxValue != nil && f > *v.MaxValue {
		return validationErrorf(a.Name, "must be at most %v", *v.MaxValue)
	}
	return nil
}

func (a *AttributeDefinition) checkDate(value any) error {
	switch v := value.(type) {
	case time.Time:
		return nil
	case string:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return nil
			}
		}
		return validationErrorf(a.Name, "%q is not a parseable date", v)
	default:
		return validationErrorf(a.Name, "expected a date")
	}
}

func (a *AttributeDefinition) checkFileType(name string) error {
	v := a.Validation
	if v == nil || len(v.AllowedFileTypes) == 0 {
		return nil
	}
	lower := strings.ToLower(name)
	for _, ext := range v.AllowedFileTypes {
		if strings.HasSuffix(lower, "."+strings.ToLower(strings.TrimPrefix(ext, "."))) {
			return nil
		}
	}
	return validationErrorf(a.Name, "file type not allowed (want one of %s)", strings.Join(v.AllowedFileTypes, ", "))
}

func (a *AttributeDefinition) hasOption(value string) bool {
	for _, opt := range a.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func (a *AttributeDefinition) clone() *AttributeDefinition {
	c := *a
	c.Options = append([]AttributeOption(nil), a.Options...)
	if a.Validation != nil {
		v := *a.Validation
		v.AllowedFileTypes = append([]string(nil), a.Validation.AllowedFileTypes...)
		if a.Validation.MinLength != nil {
			n := *a.Validation.MinLength
			v.MinLength = &n
		}
		if a.Validation.MaxLength != nil {
			n := *a.Validation.MaxLength
			v.MaxLength = &n
		}
		if a.Validation.MinValue != nil {
			f := *a.Validation.MinValue
			v.MinValue = &f
		}
		if a.Validation.MaxValue != nil {
			f := *a.Validation.MaxValue
			v.MaxValue = &f
		}
		c.Validation = &v
	}
	return &c
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
