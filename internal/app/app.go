// Package app wires configuration, adapters and use cases into the
// running application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/config"
	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/llm"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/markup"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/storage"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/telegram"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/wordpress"
	"github.com/shokoko2010/site-Manage-sub000/internal/normalize"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
	"github.com/shokoko2010/site-Manage-sub000/internal/registry"
	"github.com/shokoko2010/site-Manage-sub000/internal/usecase"
)

// Manager owns the library and coordinates every operation against it.
// The library is the only shared mutable state: it is always replaced
// wholesale by a reconciliation result or updated through a single
// publish-result application, never partially mutated concurrently.
type Manager struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLiteStore
	factory   ports.ClientFactory
	registry  *registry.Registry
	engine    *usecase.Engine
	publisher *usecase.Publisher
	generator ports.DraftGenerator
	notifier  ports.Notifier
	now       ports.Clock

	mu      sync.Mutex
	library []domain.Content
	// syncGen implements last-trigger-wins: a reconciliation result is
	// discarded when a newer trigger started after it.
	syncGen uint64
}

// New builds a runnable application instance and loads the persisted
// snapshot.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	markupSvc := markup.New()
	factory := wordpress.NewFactory(nil, logger)
	reg := registry.New(factory, logger.With("component", "registry"))

	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		factory:  factory,
		registry: reg,
		engine: usecase.NewEngine(factory,
			normalize.New(markupSvc, markupSvc),
			logger.With("component", "reconcile")),
		publisher: usecase.NewPublisher(factory, markupSvc, time.Now,
			logger.With("component", "publish")),
		now: time.Now,
	}

	if cfg.Generator.APIKey != "" {
		m.generator = llm.NewGenerator(cfg.Generator, time.Now)
	}
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		m.notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	sites, err := store.LoadSites(ctx)
	if err != nil {
		return nil, err
	}
	reg.Seed(sites)
	m.seedConfiguredSites(cfg.Sites)

	library, err := store.LoadLibrary(ctx)
	if err != nil {
		return nil, err
	}
	m.library = library

	return m, nil
}

// seedConfiguredSites registers config-file sites that are not in the
// snapshot yet, without probing: the config is trusted at startup and
// verified on the first sync.
func (m *Manager) seedConfiguredSites(seeds []config.SiteConfig) {
	known := map[string]struct{}{}
	for _, site := range m.registry.List() {
		known[site.ID] = struct{}{}
	}

	sites := m.registry.List()
	for _, seed := range seeds {
		origin, err := domain.NormalizeOrigin(seed.URL)
		if err != nil {
			m.logger.Warn("skipping configured site with bad url", "url", seed.URL, "error", err)
			continue
		}
		if _, ok := known[origin]; ok {
			continue
		}

		site := domain.Site{ID: origin, URL: seed.URL, Name: origin, IsVirtual: seed.Virtual}
		if !seed.Virtual {
			site.Credentials = &domain.Credentials{Username: seed.Username, AppPassword: seed.AppPassword}
		}
		sites = append(sites, site)
		known[origin] = struct{}{}
	}
	m.registry.Seed(sites)
}

// Close flushes nothing (snapshots are saved per operation) and
// releases the store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Sites returns the registered sites.
func (m *Manager) Sites() []domain.Site {
	return m.registry.List()
}

// Library returns the current in-memory library.
func (m *Manager) Library() []domain.Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Content(nil), m.library...)
}

// Sync runs a full reconciliation pass and installs its result unless
// a newer trigger superseded it while it was in flight.
func (m *Manager) Sync(ctx context.Context) (usecase.ReconcileResult, error) {
	m.mu.Lock()
	m.syncGen++
	gen := m.syncGen
	current := append([]domain.Content(nil), m.library...)
	m.mu.Unlock()

	result := m.engine.Reconcile(ctx, m.registry.List(), current)

	m.mu.Lock()
	stale := gen != m.syncGen
	if !stale {
		m.library = result.Library
	}
	m.mu.Unlock()

	if stale {
		m.logger.Info("discarding superseded reconciliation result")
		return result, nil
	}

	if err := m.store.SaveLibrary(ctx, result.Library); err != nil {
		return result, fmt.Errorf("persist library: %w", err)
	}

	m.refreshStats(ctx, result)

	if len(result.Failures) > 0 {
		m.reportFailures(ctx, result)
	}
	return result, nil
}

// refreshStats re-reads the remote totals for every site that answered
// the pass, so the cached counts track reality. Best effort only.
func (m *Manager) refreshStats(ctx context.Context, result usecase.ReconcileResult) {
	failed := map[string]struct{}{}
	for _, failure := range result.Failures {
		failed[failure.SiteID] = struct{}{}
	}

	refreshed := false
	for _, site := range m.registry.List() {
		if site.IsVirtual {
			continue
		}
		if _, ok := failed[site.ID]; ok {
			continue
		}

		client, err := m.factory.ClientFor(site)
		if err != nil {
			continue
		}
		stats, err := client.FetchStats(ctx)
		if err != nil {
			m.logger.Warn("could not refresh site stats", "site", site.ID, "error", err)
			continue
		}
		m.registry.UpdateStats(site.ID, stats)
		refreshed = true
	}

	if refreshed {
		if err := m.store.SaveSites(ctx, m.registry.List()); err != nil {
			m.logger.Warn("could not persist refreshed site stats", "error", err)
		}
	}
}

func (m *Manager) reportFailures(ctx context.Context, result usecase.ReconcileResult) {
	if m.notifier == nil {
		return
	}

	var b strings.Builder
	b.WriteString("Content sync failed for:\n")
	for _, failure := range result.Failures {
		fmt.Fprintf(&b, "- %s: %v\n", failure.SiteID, failure.Err)
	}
	if result.SyncFailed {
		b.WriteString("All sites failed; showing cached local content.")
	}

	if err := m.notifier.NotifySyncFailure(ctx, b.String()); err != nil {
		m.logger.Warn("could not deliver sync-failure notice", "error", err)
	}
}

// AddSite registers a site (probing real ones), persists the registry
// and re-reconciles.
func (m *Manager) AddSite(ctx context.Context, rawURL, username, appPassword string, virtual bool) (domain.Site, error) {
	var creds *domain.Credentials
	if !virtual {
		creds = &domain.Credentials{Username: username, AppPassword: appPassword}
	}

	site, err := m.registry.Add(ctx, rawURL, creds, virtual)
	if err != nil {
		return domain.Site{}, err
	}

	if err := m.store.SaveSites(ctx, m.registry.List()); err != nil {
		return domain.Site{}, fmt.Errorf("persist sites: %w", err)
	}

	if _, err := m.Sync(ctx); err != nil {
		return site, err
	}
	return site, nil
}

// RemoveSite drops a site, persists the registry and re-reconciles so
// the removed site's content leaves the library.
func (m *Manager) RemoveSite(ctx context.Context, id string) error {
	if _, err := m.registry.Remove(id); err != nil {
		return err
	}

	if err := m.store.SaveSites(ctx, m.registry.List()); err != nil {
		return fmt.Errorf("persist sites: %w", err)
	}

	_, err := m.Sync(ctx)
	return err
}

// Generate produces a new local draft and stores it in the library.
// When siteID names a registered real site, that site's recent posts
// and taxonomy are fetched as prompt context.
func (m *Manager) Generate(ctx context.Context, topic, siteID string) (*domain.Article, error) {
	if m.generator == nil {
		return nil, &domain.ValidationError{Reason: "no draft generator configured (set GENERATOR_API_KEY)"}
	}

	var siteCtx *ports.SiteContext
	if siteID != "" {
		site, ok := m.registry.Get(siteID)
		if !ok {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("site %s is not registered", siteID)}
		}
		if !site.IsVirtual {
			client, err := m.factory.ClientFor(site)
			if err != nil {
				return nil, err
			}
			siteCtx, err = client.FetchContext(ctx, 20)
			if err != nil {
				// Context is an enrichment; the draft is still generated.
				m.logger.Warn("could not fetch site context", "site", site.ID, "error", err)
			}
		}
	}

	article, err := m.generator.GenerateArticle(ctx, topic, siteCtx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.library = append(m.library, article)
	snapshot := append([]domain.Content(nil), m.library...)
	m.mu.Unlock()

	if err := m.store.SaveLibrary(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("persist library: %w", err)
	}
	return article, nil
}

// Publish pushes one content item to a target site, applies the
// remote identifiers locally on success, and re-reconciles.
func (m *Manager) Publish(ctx context.Context, contentID, siteID string, opts usecase.PublishOptions) (ports.PostResult, error) {
	content, site, err := m.lookup(contentID, siteID)
	if err != nil {
		return ports.PostResult{}, err
	}

	result, err := m.publisher.Publish(ctx, content, site, opts)
	if err != nil {
		return ports.PostResult{}, err
	}

	m.applyResult(content, site, result, opts)

	if err := m.store.SaveLibrary(ctx, m.Library()); err != nil {
		return result, fmt.Errorf("persist library: %w", err)
	}

	if _, err := m.Sync(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// Update pushes local edits of a synced item back to its remote post.
func (m *Manager) Update(ctx context.Context, contentID, siteID string, opts usecase.PublishOptions) (ports.PostResult, error) {
	content, site, err := m.lookup(contentID, siteID)
	if err != nil {
		return ports.PostResult{}, err
	}

	result, err := m.publisher.Update(ctx, content, content.Meta().PostID, site, opts)
	if err != nil {
		return ports.PostResult{}, err
	}

	m.applyResult(content, site, result, opts)

	if err := m.store.SaveLibrary(ctx, m.Library()); err != nil {
		return result, fmt.Errorf("persist library: %w", err)
	}

	if _, err := m.Sync(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func (m *Manager) applyResult(content domain.Content, site domain.Site, result ports.PostResult, opts usecase.PublishOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	usecase.ApplyPublishResult(content, result, opts, m.now)
	content.Meta().SiteID = site.ID
}

// RemoveDraft deletes a locally authored draft from the library.
func (m *Manager) RemoveDraft(ctx context.Context, contentID string) error {
	m.mu.Lock()
	found := false
	for i, item := range m.library {
		if item.Meta().ID != contentID {
			continue
		}
		if item.Meta().Origin != domain.OriginNew {
			m.mu.Unlock()
			return &domain.ValidationError{Reason: "synced content is removed by deleting the remote post, not locally"}
		}
		m.library = append(m.library[:i], m.library[i+1:]...)
		found = true
		break
	}
	snapshot := append([]domain.Content(nil), m.library...)
	m.mu.Unlock()

	if !found {
		return &domain.ValidationError{Reason: fmt.Sprintf("no content with id %s", contentID)}
	}
	return m.store.SaveLibrary(ctx, snapshot)
}

// ScheduleAll assigns future publish dates to every unscheduled item.
func (m *Manager) ScheduleAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	assigned := usecase.ScheduleAllUnscheduled(m.library, m.now)
	snapshot := append([]domain.Content(nil), m.library...)
	m.mu.Unlock()

	if assigned == 0 {
		return 0, nil
	}

	if err := m.store.SaveLibrary(ctx, snapshot); err != nil {
		return assigned, fmt.Errorf("persist library: %w", err)
	}
	return assigned, nil
}

func (m *Manager) lookup(contentID, siteID string) (domain.Content, domain.Site, error) {
	site, ok := m.registry.Get(siteID)
	if !ok {
		return nil, domain.Site{}, &domain.ValidationError{Reason: fmt.Sprintf("no target site selected: %s is not registered", siteID)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.library {
		if item.Meta().ID == contentID {
			return item, site, nil
		}
	}
	return nil, domain.Site{}, &domain.ValidationError{Reason: fmt.Sprintf("no content with id %s", contentID)}
}
