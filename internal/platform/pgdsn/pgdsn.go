// Package pgdsn prepares Postgres connection strings for lib/pq and the
// otelsql instrumentation.
package pgdsn

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	preparedBinaryParam = "disable_prepared_binary_result"
	maxTracedQueryLen   = 512
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DSN is a normalized connection string plus the database name it targets.
type DSN struct {
	URL  string
	Name string
}

// Parse accepts URL-style (postgres://...) and keyword-style (host=... dbname=...)
// strings. With disablePreparedBinary set, URL-style strings gain
// disable_prepared_binary_result=yes unless the caller already chose a value;
// poolers running in transaction mode need it.
func Parse(raw string, disablePreparedBinary bool) DSN {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return DSN{URL: raw, Name: keywordValue(raw, "dbname")}
	}

	if disablePreparedBinary {
		q := u.Query()
		if !q.Has(preparedBinaryParam) {
			q.Set(preparedBinaryParam, "yes")
			u.RawQuery = q.Encode()
		}
	}
	return DSN{URL: u.String(), Name: strings.Trim(u.Path, "/ ")}
}

func keywordValue(raw, key string) string {
	prefix := key + "="
	for _, field := range strings.Fields(raw) {
		if value, ok := strings.CutPrefix(field, prefix); ok {
			return strings.Trim(value, `"'`)
		}
	}
	return ""
}

// FormatQuery collapses whitespace and caps the length of a statement before
// it is attached to a span.
func FormatQuery(query string) string {
	query = whitespaceRun.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(query) > maxTracedQueryLen {
		return query[:maxTracedQueryLen] + "..."
	}
	return query
}
