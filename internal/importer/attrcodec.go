package importer

import (
	"fmt"
	"strings"

	"github.com/example/store-catalog/internal/domain/category"
)

// The attributes cell packs a category's attribute definitions into one
// string so a whole category fits on a single spreadsheet row:
//
//	Size:dropdown:required=s|m|l;Material:text
//
// Each definition is "Name:type[:required]" with an optional "=v|v|..."
// option list for the option-bearing types. Semicolons separate definitions.

// ParseAttributeList decodes an attributes cell into attribute specs.
func ParseAttributeList(cell string) ([]category.AttributeSpec, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	var specs []category.AttributeSpec
	for _, raw := range strings.Split(cell, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		spec, err := parseAttribute(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseAttribute(raw string) (category.AttributeSpec, error) {
	head, optPart, hasOpts := strings.Cut(raw, "=")
	parts := strings.Split(head, ":")
	if len(parts) < 2 {
		return category.AttributeSpec{}, fmt.Errorf("attribute %q: want Name:type", raw)
	}

	spec := category.AttributeSpec{
		Name: strings.TrimSpace(parts[0]),
		Type: category.AttributeType(strings.ToLower(strings.TrimSpace(parts[1]))),
	}
	if !spec.Type.Valid() {
		return category.AttributeSpec{}, fmt.Errorf("attribute %q: unrecognized type %q", spec.Name, parts[1])
	}
	for _, flag := range parts[2:] {
		switch strings.ToLower(strings.TrimSpace(flag)) {
		case "required":
			spec.Required = true
		case "":
		default:
			return category.AttributeSpec{}, fmt.Errorf("attribute %q: unknown flag %q", spec.Name, flag)
		}
	}

	if hasOpts {
		for _, v := range strings.Split(optPart, "|") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			spec.Options = append(spec.Options, category.AttributeOption{Value: v})
		}
	}
	return spec, nil
}

// FormatAttributeList is the inverse of ParseAttributeList, used by export.
func FormatAttributeList(attrs []*category.AttributeDefinition) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		var b strings.Builder
		b.WriteString(attr.Name)
		b.WriteString(":")
		b.WriteString(string(attr.Type))
		if attr.Required {
			b.WriteString(":required")
		}
		if len(attr.Options) > 0 {
			values := make([]string, len(attr.Options))
			for i, opt := range attr.Options {
				values[i] = opt.Value
			}
			b.WriteString("=")
			b.WriteString(strings.Join(values, "|"))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ";")
}
