package utils

import (
	"strconv"
	"strings"
)

// TrailingID extracts the numeric id of a global id such as gid://shopify/Customer/123.
// Query parameters are dropped and plain ids are returned unchanged.
func TrailingID(gid string) string {
	id := gid
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	return id
}

// GlobalID builds a global id of the given resource kind from a numeric id.
func GlobalID(kind, id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/" + kind + "/" + id
}

// SplitTags splits a comma delimited tag string, trimming blanks and dropping empty tags.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParseOrderNumber parses an order name like "#1001". It returns 0 when the name carries
// no number.
func ParseOrderNumber(name string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#")), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatID renders a numeric id, mapping zero to the empty string.
func FormatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
