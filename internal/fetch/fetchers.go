package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/omarluq/dashcache/internal/reqcache"
)

// ErrInvalidJSON is returned when the backend answers 2xx with a body that is not JSON.
var ErrInvalidJSON = errors.New("fetch: backend returned invalid JSON")

// JSON returns a fetcher that GETs path and yields the body as json.RawMessage.
func (c *Client) JSON(path string, query url.Values) reqcache.Fetcher {
	return func(ctx context.Context) (any, error) {
		body, err := c.GetRaw(ctx, path, query)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("%w: GET %s", ErrInvalidJSON, path)
		}
		return json.RawMessage(body), nil
	}
}

// CountOf GETs a listing and counts its items.
func (c *Client) CountOf(ctx context.Context, path string, query url.Values) (int, error) {
	body, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return 0, err
	}
	return CountItems(body), nil
}

// Count returns CountOf as a fetcher.
func (c *Client) Count(path string, query url.Values) reqcache.Fetcher {
	return reqcache.Fetch(func(ctx context.Context) (int, error) {
		return c.CountOf(ctx, path, query)
	})
}

// CountItems counts a list payload. A bare array counts its elements, then an
// "items" or "data" array is tried, then a numeric "total". Anything else is 0.
func CountItems(body []byte) int {
	if !gjson.ValidBytes(body) {
		return 0
	}
	res := gjson.ParseBytes(body)
	if res.IsArray() {
		return len(res.Array())
	}
	for _, field := range []string{"items", "data"} {
		if list := res.Get(field); list.IsArray() {
			return len(list.Array())
		}
	}
	if total := res.Get("total"); total.Type == gjson.Number {
		return int(total.Int())
	}
	return 0
}
