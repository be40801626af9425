package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeQuery lower-cases text, trims it and collapses inner whitespace
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// QueryKey derives a stable cache key from query text; texts that differ
// only in case or spacing share a key.
func QueryKey(text string) string {
	return "query:" + hash(NormalizeQuery(text))
}

// ReportKey derives a stable cache key from report parameters
func ReportKey(period, reportType string) string {
	return "report:" + hash(fmt.Sprintf("%s|%s", NormalizeQuery(period), NormalizeQuery(reportType)))
}

func hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
