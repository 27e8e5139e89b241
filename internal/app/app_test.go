package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/markup"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/storage"
	"github.com/shokoko2010/site-Manage-sub000/internal/normalize"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
	"github.com/shokoko2010/site-Manage-sub000/internal/registry"
	"github.com/shokoko2010/site-Manage-sub000/internal/usecase"
)

const testSiteID = "https://alpha.example"

// gatedClient blocks its first fetch until released, so a test can
// interleave a second reconciliation pass with an in-flight one.
type gatedClient struct {
	mu      sync.Mutex
	fetches int
	started chan struct{}
	release chan struct{}
}

func newGatedClient() *gatedClient {
	return &gatedClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedClient) FetchAllPosts(context.Context) ([]ports.RemotePost, error) {
	g.mu.Lock()
	g.fetches++
	first := g.fetches == 1
	g.mu.Unlock()

	if first {
		close(g.started)
		<-g.release
		return []ports.RemotePost{{
			ID:     1,
			Title:  "Stale pass",
			Status: "publish",
			Link:   testSiteID + "/p/1",
		}}, nil
	}
	return []ports.RemotePost{{
		ID:     2,
		Title:  "Fresh pass",
		Status: "publish",
		Link:   testSiteID + "/p/2",
	}}, nil
}

func (g *gatedClient) Probe(context.Context) (string, error) { return "Alpha", nil }
func (g *gatedClient) FetchStats(context.Context) (domain.SiteStats, error) {
	return domain.SiteStats{}, nil
}
func (g *gatedClient) FetchContext(context.Context, int) (*ports.SiteContext, error) {
	return &ports.SiteContext{}, nil
}
func (g *gatedClient) UploadMedia(context.Context, []byte, string) (int64, error) { return 0, nil }
func (g *gatedClient) ResolveTerms(context.Context, []string, ports.TermKind) ([]int64, error) {
	return nil, nil
}
func (g *gatedClient) CreatePost(context.Context, domain.Kind, ports.PostPayload) (ports.PostResult, error) {
	return ports.PostResult{}, nil
}
func (g *gatedClient) UpdatePost(context.Context, domain.Kind, int64, ports.PostPayload) (ports.PostResult, error) {
	return ports.PostResult{}, nil
}

type stubFactory struct {
	client ports.RemoteClient
}

func (s *stubFactory) ClientFor(site domain.Site) (ports.RemoteClient, error) {
	if site.IsVirtual {
		return nil, &domain.ValidationError{Reason: "virtual site"}
	}
	return s.client, nil
}

func newTestManager(t *testing.T, factory ports.ClientFactory) *Manager {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	markupSvc := markup.New()

	reg := registry.New(factory, logger)
	reg.Seed([]domain.Site{{
		ID:          testSiteID,
		URL:         testSiteID,
		Name:        "Alpha",
		Credentials: &domain.Credentials{Username: "admin", AppPassword: "pw"},
	}})

	return &Manager{
		logger:    logger,
		store:     store,
		factory:   factory,
		registry:  reg,
		engine:    usecase.NewEngine(factory, normalize.New(markupSvc, markupSvc), logger),
		publisher: usecase.NewPublisher(factory, markupSvc, time.Now, logger),
		now:       time.Now,
	}
}

func TestSyncLastTriggerWins(t *testing.T) {
	t.Parallel()

	gated := newGatedClient()
	m := newTestManager(t, &stubFactory{client: gated})
	ctx := context.Background()

	firstDone := make(chan struct{})
	var firstResult usecase.ReconcileResult
	go func() {
		defer close(firstDone)
		firstResult, _ = m.Sync(ctx)
	}()

	// The first pass is now mid-fetch; trigger a newer one.
	<-gated.started
	second, err := m.Sync(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(second.Library) != 1 || second.Library[0].Meta().PostID != 2 {
		t.Fatalf("unexpected second pass library: %+v", second.Library)
	}

	close(gated.release)
	<-firstDone

	if len(firstResult.Library) != 1 || firstResult.Library[0].Meta().PostID != 1 {
		t.Fatalf("unexpected first pass result: %+v", firstResult.Library)
	}

	// The superseded first pass must not have clobbered the newer one.
	library := m.Library()
	if len(library) != 1 {
		t.Fatalf("expected 1 item, got %d", len(library))
	}
	if library[0].Meta().PostID != 2 {
		t.Fatalf("stale pass overwrote the library: %+v", library[0].Meta())
	}
}

func TestSyncPersistsResult(t *testing.T) {
	t.Parallel()

	gated := newGatedClient()
	close(gated.release) // no blocking needed here
	m := newTestManager(t, &stubFactory{client: gated})
	ctx := context.Background()

	if _, err := m.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	persisted, err := m.store.LoadLibrary(ctx)
	if err != nil {
		t.Fatalf("load library: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Meta().Origin != domain.OriginSynced {
		t.Fatalf("library not persisted: %+v", persisted)
	}
}
