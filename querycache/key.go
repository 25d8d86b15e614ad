package querycache

import (
	"strconv"
	"strings"

	"github.com/perigee/recall/core"
)

// Key derives the cache key for a query under the given retrieval
// parameters. The query is normalized first so trivially different
// spellings of the same query share an entry.
func Key(query string, topK int, hybrid bool, minSimilarity float32) core.ID {
	parts := []string{
		normalizeQuery(query),
		strconv.Itoa(topK),
		strconv.FormatBool(hybrid),
		strconv.FormatFloat(float64(minSimilarity), 'f', -1, 32),
	}
	return core.IDFromContent(strings.Join(parts, "|"))
}

// normalizeQuery lowercases and collapses runs of whitespace.
func normalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
