package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"

	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/reqcache"
)

// query builds the cache handle for a GET of a backend path.
func (h *Handler) query(r *http.Request) *reqcache.Query {
	path := backendPath(r)
	q := r.URL.Query()
	if len(q) == 0 {
		q = nil
	}
	key := fetch.Key(http.MethodGet, path, q)
	opts := h.cfg.Get().Cache.OptionsFor(path)
	return h.store.Query(key, h.client.JSON(path, q), opts)
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	q := h.query(r)
	if q.Options().Disabled {
		h.bypass(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Get().Server.GetTimeout())
	defer cancel()

	snap := q.Resolve(ctx)
	status := classify(snap)
	if snap.Loading {
		// Settled rather than Wait: a failed fetch must not be retried
		// by the same request.
		var err error
		snap, err = q.Settled(ctx)
		if err != nil {
			writeFetchError(w, err)
			return
		}
	}

	zerolog.Ctx(r.Context()).Debug().
		Str("key", q.Key()).
		Str("cache", status).
		Msg("cache read")

	w.Header().Set(HeaderCache, status)
	if !snap.HasData {
		err := snap.Err
		if err == nil {
			err = reqcache.ErrNoData
		}
		writeFetchError(w, err)
		return
	}

	if snap.Err != nil {
		w.Header().Set(HeaderCacheError, snap.Err.Error())
	}
	w.Header().Set(HeaderCacheAge, strconv.Itoa(int(snap.Age(h.now()).Seconds())))
	writeRawJSON(w, http.StatusOK, rawData(snap.Data))
}

// classify names how a read was served, from the snapshot taken when the
// request first resolved the key.
func classify(snap reqcache.Snapshot) string {
	switch {
	case snap.Loading && snap.HasData:
		return CacheRefresh
	case snap.Loading:
		return CacheMiss
	case snap.Stale:
		return CacheStale
	default:
		return CacheHit
	}
}

// bypass serves a route with caching disabled straight from the backend.
func (h *Handler) bypass(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HeaderCache, CacheBypass)
	q := r.URL.Query()
	body, err := h.client.GetRaw(r.Context(), backendPath(r), q)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// handleQuery reports the cache state of a read without waiting for it.
// The envelope mirrors what a dashboard widget renders: data plus loading,
// stale and refreshing flags.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := h.query(r)
	snap := q.Resolve(r.Context())

	body, err := envelope(snap, h.now)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "encode_error", err.Error())
		return
	}
	w.Header().Set(HeaderCache, classify(snap))
	writeRawJSON(w, http.StatusOK, body)
}

// envelope assembles the query document around the raw cached payload so
// the backend JSON is embedded without a decode and re-encode.
func envelope(snap reqcache.Snapshot, now func() time.Time) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}

	set("key", snap.Key)
	if snap.HasData {
		if err == nil {
			body, err = sjson.SetRawBytes(body, "data", rawData(snap.Data))
		}
	} else {
		set("data", nil)
	}
	if snap.Err != nil {
		set("error", snap.Err.Error())
	} else {
		set("error", nil)
	}
	set("loading", snap.Loading)
	set("stale", snap.Stale)
	set("refreshing", snap.Refreshing)
	set("age_ms", snap.Age(now()).Milliseconds())
	return body, err
}

// rawData returns cached data as JSON. Backend reads store json.RawMessage;
// anything else, such as counts, is marshaled.
func rawData(v any) []byte {
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return data
}
