package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/reqcache"
)

// counterTTLs are the freshness windows of the overview counters. Offers and
// campaigns change more often than templates and links.
var counterTTLs = map[string]time.Duration{
	"offers":    20 * time.Second,
	"campaigns": 20 * time.Second,
	"templates": 30 * time.Second,
	"links":     30 * time.Second,
}

// Summary is the dashboard overview document.
type Summary struct {
	Counts map[string]int    `json:"counts"`
	Errors map[string]string `json:"errors,omitempty"`
}

// countOptions are the cache options of a counter key.
func (h *Handler) countOptions(resource string) reqcache.Options {
	ttl, ok := counterTTLs[resource]
	if !ok {
		ttl = reqcache.DefaultTTL
	}
	return reqcache.Options{
		TTL:               ttl,
		StaleWhileRefetch: h.cfg.Get().Cache.StaleWhileRefetch,
	}
}

// Summarize resolves every overview counter concurrently through the cache.
// A counter that fails without cached data is reported under Errors.
func (h *Handler) Summarize(ctx context.Context) (Summary, error) {
	counters := fetch.Counters()
	summary := Summary{Counts: make(map[string]int, len(counters))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counters {
		g.Go(func() error {
			n, err := reqcache.Get(gctx, h.store, c.Key(),
				func(ctx context.Context) (int, error) { return h.client.CountOf(ctx, c.Path, c.Query) },
				h.countOptions(c.Name))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if summary.Errors == nil {
					summary.Errors = make(map[string]string)
				}
				summary.Errors[c.Name] = err.Error()
				return nil
			}
			summary.Counts[c.Name] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Get().Server.GetTimeout())
	defer cancel()

	summary, err := h.Summarize(ctx)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	status := http.StatusOK
	if len(summary.Counts) == 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, summary)
}
