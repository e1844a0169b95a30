package gateway

import (
	"context"
	"net/http"

	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/reqcache"
)

// StatsResponse is the body of GET /cache/stats.
type StatsResponse struct {
	Breaker  string         `json:"breaker"`
	Stats    reqcache.Stats `json:"stats"`
	HitRatio float64        `json:"hit_ratio"`
	Entries  int            `json:"entries"`
}

// ClearResponse is the body of POST /cache/clear.
type ClearResponse struct {
	Prefix  string `json:"prefix"`
	Cleared int    `json:"cleared"`
}

func (h *Handler) statsResponse() StatsResponse {
	stats := h.store.Stats()
	return StatsResponse{
		Stats:    stats,
		HitRatio: stats.HitRatio(),
		Entries:  h.store.Len(),
		Breaker:  h.client.BreakerState().String(),
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.statsResponse())
}

func (h *Handler) handleResetStats(w http.ResponseWriter, _ *http.Request) {
	h.store.ResetStats()
	writeJSON(w, http.StatusOK, h.statsResponse())
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"keys": h.store.Keys(r.URL.Query().Get("prefix")),
	})
}

// handleClear drops every key starting with ?prefix=. No prefix clears all.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	writeJSON(w, http.StatusOK, ClearResponse{
		Prefix:  prefix,
		Cleared: h.store.Clear(prefix),
	})
}

// handleRefresh forces a refetch of ?key=. The fetcher is rebuilt from the
// key itself. With ?wait=true the response carries the settled envelope,
// otherwise it returns 202 as soon as the fetch is started or joined.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	parts, err := fetch.ParseKey(key)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_key", err.Error())
		return
	}
	if parts.Method != http.MethodGet {
		WriteError(w, http.StatusBadRequest, "invalid_key", "only GET keys can be refreshed")
		return
	}

	var q *reqcache.Query
	if parts.IsCount() {
		q = h.store.Query(key, h.client.Count(parts.Path, parts.Query), h.countOptions(parts.Resource))
	} else {
		q = h.store.Query(key, h.client.JSON(parts.Path, parts.Query), h.cfg.Get().Cache.OptionsFor(parts.Path))
	}

	call := q.Refresh(r.Context())
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, map[string]string{"key": key})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Get().Server.GetTimeout())
	defer cancel()
	if _, err := call.Wait(ctx); err != nil && ctx.Err() != nil {
		writeFetchError(w, ctx.Err())
		return
	}

	body, err := envelope(h.store.Peek(key, q.Options().EffectiveTTL()), h.now)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "encode_error", err.Error())
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"breaker": h.client.BreakerState().String(),
	})
}
