package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/normalize"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// SiteFailure records one site whose fetch failed during a pass.
type SiteFailure struct {
	SiteID string
	Err    error
}

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	Library  []domain.Content
	Failures []SiteFailure
	// SyncFailed is set when every real site failed; the library then
	// carries the surviving local content unchanged.
	SyncFailed bool
}

// Engine rebuilds the authoritative library from the full remote truth
// of every real site plus surviving local drafts.
type Engine struct {
	factory    ports.ClientFactory
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// NewEngine constructs the reconciliation engine.
func NewEngine(factory ports.ClientFactory, normalizer *normalize.Normalizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{factory: factory, normalizer: normalizer, logger: logger}
}

type siteFetch struct {
	site  domain.Site
	posts []ports.RemotePost
	err   error
}

// Reconcile fetches from every real site concurrently, normalizes the
// results, and merges them with the locally authored drafts found in
// current. Remote truth wins for anything carrying a matching post id;
// synced items that no longer appear remotely are dropped, not rescued.
func (e *Engine) Reconcile(ctx context.Context, sites []domain.Site, current []domain.Content) ReconcileResult {
	real := make([]domain.Site, 0, len(sites))
	for _, site := range sites {
		if !site.IsVirtual {
			real = append(real, site)
		}
	}

	// Only locally authored drafts survive a rebuild; every synced item
	// is re-materialized from the remote listings below.
	drafts := make([]domain.Content, 0, len(current))
	for _, item := range current {
		if item.Meta().Origin == domain.OriginNew {
			drafts = append(drafts, item)
		}
	}

	if len(real) == 0 {
		return ReconcileResult{Library: drafts}
	}

	fetches := e.fetchAll(ctx, real)

	var failures []SiteFailure
	synced := make([]domain.Content, 0)
	seen := make(map[string]struct{})
	remotePostIDs := make(map[int64]struct{})

	for _, fetch := range fetches {
		if fetch.err != nil {
			e.logger.Warn("site fetch failed", "site", fetch.site.ID, "error", fetch.err)
			failures = append(failures, SiteFailure{SiteID: fetch.site.ID, Err: fetch.err})
			continue
		}

		for _, raw := range fetch.posts {
			article, err := e.normalizer.Normalize(raw, fetch.site, sites)
			if err != nil {
				e.logger.Warn("skipping unnormalizable post", "site", fetch.site.ID, "post", raw.ID, "error", err)
				continue
			}

			// The derived id is unique per (siteId, postId), so one map
			// enforces the central dedup invariant.
			if _, dup := seen[article.ID]; dup {
				continue
			}
			seen[article.ID] = struct{}{}

			synced = append(synced, article)
			remotePostIDs[article.PostID] = struct{}{}
		}
	}

	if len(failures) == len(real) {
		// Total sync failure degrades to the cached local view rather
		// than presenting an empty library.
		return ReconcileResult{Library: current, Failures: failures, SyncFailed: true}
	}

	// A draft that carries a post id now confirmed remotely is a stale
	// placeholder from a prior publish; the synced row replaces it.
	library := synced
	for _, draft := range drafts {
		if postID := draft.Meta().PostID; postID != 0 {
			if _, confirmed := remotePostIDs[postID]; confirmed {
				continue
			}
		}
		library = append(library, draft)
	}

	e.logger.Info("reconciliation finished",
		"synced", len(synced),
		"drafts", len(library)-len(synced),
		"failed_sites", len(failures))

	return ReconcileResult{Library: library, Failures: failures}
}

// fetchAll fans out one goroutine per site and collects every result
// before any merge logic runs.
func (e *Engine) fetchAll(ctx context.Context, sites []domain.Site) []siteFetch {
	results := make(chan siteFetch, len(sites))

	var wg sync.WaitGroup
	for _, site := range sites {
		wg.Add(1)
		go func(site domain.Site) {
			defer wg.Done()

			client, err := e.factory.ClientFor(site)
			if err != nil {
				results <- siteFetch{site: site, err: err}
				return
			}

			posts, err := client.FetchAllPosts(ctx)
			results <- siteFetch{site: site, posts: posts, err: err}
		}(site)
	}

	wg.Wait()
	close(results)

	collected := make([]siteFetch, 0, len(sites))
	for fetch := range results {
		collected = append(collected, fetch)
	}
	return collected
}
