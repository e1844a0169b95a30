package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/samber/lo"
)

const (
	countKeyPrefix = "dash_"
	countKeySuffix = "_count"
)

// Key builds the canonical cache key for a backend request, e.g.
// "GET /offers?limit=50&skip=0". Query parameters are sorted by name so
// equivalent requests share an entry.
func Key(method, path string, query url.Values) string {
	k := strings.ToUpper(method) + " " + path
	if len(query) > 0 {
		k += "?" + query.Encode()
	}
	return k
}

// FamilyPrefix is the key prefix covering every GET under /<segment>.
// Mutations clear it so lists and details of the resource refetch.
func FamilyPrefix(segment string) string {
	return Key(http.MethodGet, "/"+strings.Trim(segment, "/"), nil)
}

// CountKey is the cache key of a dashboard counter, e.g. "dash_offers_count".
func CountKey(resource string) string {
	return countKeyPrefix + resource + countKeySuffix
}

// Counter is a dashboard counter and the backend listing it counts.
type Counter struct {
	Query url.Values
	Name  string
	Path  string
}

// Key returns the cache key of the counter.
func (c Counter) Key() string {
	return CountKey(c.Name)
}

// Covers reports whether a request to path touches the counted resource.
func (c Counter) Covers(path string) bool {
	return path == c.Path || strings.HasPrefix(path, c.Path+"/")
}

var counters = []Counter{
	{Name: "offers", Path: "/offers", Query: url.Values{"limit": {"50"}}},
	{Name: "campaigns", Path: "/campaigns", Query: url.Values{"limit": {"50"}}},
	{Name: "templates", Path: "/aff/templates"},
	{Name: "links", Path: "/links"},
}

// Counters returns the dashboard counters in display order.
func Counters() []Counter {
	return slices.Clone(counters)
}

// LookupCounter finds a counter by name.
func LookupCounter(name string) (Counter, bool) {
	return lo.Find(counters, func(c Counter) bool {
		return c.Name == name
	})
}

// CountersFor returns the counters whose resource path covers path.
func CountersFor(path string) []Counter {
	return lo.Filter(counters, func(c Counter, _ int) bool {
		return c.Covers(path)
	})
}

// KeyParts is a parsed cache key.
type KeyParts struct {
	Query    url.Values
	Method   string
	Path     string
	Resource string // counter name, set for count keys only
}

// IsCount reports whether the key was a dashboard counter key.
func (k KeyParts) IsCount() bool {
	return k.Resource != ""
}

// ParseKey reverses Key and CountKey. Count keys resolve to the backend
// listing of their counter; unknown counters are rejected.
func ParseKey(key string) (KeyParts, error) {
	if strings.HasPrefix(key, countKeyPrefix) && strings.HasSuffix(key, countKeySuffix) {
		name := strings.TrimSuffix(strings.TrimPrefix(key, countKeyPrefix), countKeySuffix)
		c, ok := LookupCounter(name)
		if !ok {
			return KeyParts{}, fmt.Errorf("%w: unknown counter %q", ErrInvalidKey, key)
		}
		return KeyParts{Method: http.MethodGet, Path: c.Path, Query: c.Query, Resource: c.Name}, nil
	}

	method, target, ok := strings.Cut(key, " ")
	if !ok || method == "" || !strings.HasPrefix(target, "/") {
		return KeyParts{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	path, rawQuery, _ := strings.Cut(target, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return KeyParts{}, fmt.Errorf("%w: %q: %w", ErrInvalidKey, key, err)
	}
	if len(query) == 0 {
		query = nil
	}
	return KeyParts{Method: method, Path: path, Query: query}, nil
}
