package core

// Store key layout. All keys are additionally namespaced by the store
// implementation (e.g. "libie:<key>").
const (
	// KeyHitsAll is the all-time hit counter.
	KeyHitsAll = "stats:hits:all"

	// KeyHitsDayPrefix is the per-calendar-day hit counter prefix.
	// Format: stats:hits:day:<YYYY-MM-DD>
	KeyHitsDayPrefix = "stats:hits:day:"

	// KeyQuotaPrefix is the per-client quota record prefix.
	// Format: quota:<client-ip>
	KeyQuotaPrefix = "quota:"

	// KeyReportPrefix is the user-report prefix.
	// Format: report:<id>
	KeyReportPrefix = "report:"
)

// APIPrefix is the mount point for every registered capability route.
const APIPrefix = "/api"

// DefaultCategoryPrefix is used for categories missing from the
// category-to-prefix table.
const DefaultCategoryPrefix = "/other"

// categoryPrefixes maps capability categories to their route prefixes.
// Unknown categories fall back to DefaultCategoryPrefix.
var categoryPrefixes = map[string]string{
	"downloader": "/download",
	"anime":      "/anime",
	"ai":         "/ai",
	"tools":      "/tools",
	"info":       "/info",
}

// ResolveCategoryPrefix returns the route prefix for a category,
// case-insensitively.
func ResolveCategoryPrefix(category string) string {
	if prefix, ok := categoryPrefixes[normalizeCategory(category)]; ok {
		return prefix
	}
	return DefaultCategoryPrefix
}
