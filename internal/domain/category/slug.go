package category

import (
	"regexp"
	"strings"
)

// slugRegex validates slug format (lowercase letters, numbers, hyphens)
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug reports whether s is an acceptable slug as supplied by a caller.
func IsValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe slug from a display name. It is deterministic
// and idempotent: Slugify(Slugify(x)) == Slugify(x). The same name always
// yields the same slug, which is what sibling duplicate detection relies on.
// Names without any ASCII letters or digits produce an empty slug; callers
// must then supply an explicit slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
