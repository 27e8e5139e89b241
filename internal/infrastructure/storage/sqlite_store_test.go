package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSiteSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	sites := []domain.Site{
		{
			ID:          "https://alpha.example",
			URL:         "https://alpha.example",
			Name:        "Alpha",
			Credentials: &domain.Credentials{Username: "admin", AppPassword: "pw"},
			Stats:       domain.SiteStats{Posts: 4, Pages: 2, Products: 1},
		},
		{
			ID:        "https://drafts.local",
			URL:       "drafts.local",
			Name:      "Drafts",
			IsVirtual: true,
		},
	}

	if err := store.SaveSites(ctx, sites); err != nil {
		t.Fatalf("SaveSites error: %v", err)
	}

	loaded, err := store.LoadSites(ctx)
	if err != nil {
		t.Fatalf("LoadSites error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(loaded))
	}

	byID := map[string]domain.Site{}
	for _, site := range loaded {
		byID[site.ID] = site
	}

	alpha := byID["https://alpha.example"]
	if alpha.Credentials == nil || alpha.Credentials.Username != "admin" {
		t.Fatalf("credentials lost: %+v", alpha)
	}
	if alpha.Stats.Posts != 4 {
		t.Fatalf("stats lost: %+v", alpha.Stats)
	}

	drafts := byID["https://drafts.local"]
	if !drafts.IsVirtual || drafts.Credentials != nil {
		t.Fatalf("virtual site mangled: %+v", drafts)
	}
}

func TestLibrarySnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	scheduled := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)

	article := &domain.Article{
		ContentMeta: domain.ContentMeta{
			ID:           "https://alpha.example#7",
			Title:        "Synced",
			Status:       domain.StatusPublished,
			Language:     "en",
			CreatedAt:    time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
			SiteID:       "https://alpha.example",
			ScheduledFor: &scheduled,
			PostID:       7,
			PostLink:     "https://alpha.example/p/7",
			Origin:       domain.OriginSynced,
			Performance:  &domain.PerformanceStats{Views: 120, Clicks: 4},
		},
		Body:            "Some **markdown**.",
		MetaDescription: "Summary.",
	}
	article.SetRemoteMedia(31, "https://alpha.example/img.jpg")

	draft := &domain.Article{
		ContentMeta: domain.ContentMeta{
			ID:     "local-draft",
			Title:  "Draft",
			Status: domain.StatusDraft,
			Origin: domain.OriginNew,
		},
		Body: "wip",
	}
	draft.SetGeneratedImage([]byte{0x89, 0x50, 0x4E, 0x47})

	product := &domain.Product{
		ContentMeta: domain.ContentMeta{
			ID:     "local-product",
			Title:  "Widget",
			Status: domain.StatusDraft,
			Origin: domain.OriginNew,
		},
		LongDescription:  "Long.",
		ShortDescription: "Short.",
	}

	if err := store.SaveLibrary(ctx, []domain.Content{article, draft, product}); err != nil {
		t.Fatalf("SaveLibrary error: %v", err)
	}

	loaded, err := store.LoadLibrary(ctx)
	if err != nil {
		t.Fatalf("LoadLibrary error: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 items, got %d", len(loaded))
	}

	byID := map[string]domain.Content{}
	for _, item := range loaded {
		byID[item.Meta().ID] = item
	}

	syncedItem, ok := byID["https://alpha.example#7"].(*domain.Article)
	if !ok {
		t.Fatalf("synced article missing or wrong kind: %T", byID["https://alpha.example#7"])
	}
	if syncedItem.PostID != 7 || syncedItem.Performance == nil || syncedItem.Performance.Views != 120 {
		t.Fatalf("synced fields lost: %+v", syncedItem.ContentMeta)
	}
	if syncedItem.ScheduledFor == nil || !syncedItem.ScheduledFor.Equal(scheduled) {
		t.Fatalf("schedule lost: %v", syncedItem.ScheduledFor)
	}
	if id, url := syncedItem.RemoteMedia(); id != 31 || url == "" {
		t.Fatalf("media reference lost: %d %s", id, url)
	}

	draftItem := byID["local-draft"].(*domain.Article)
	if len(draftItem.GeneratedImage()) != 4 {
		t.Fatalf("generated image lost: %v", draftItem.GeneratedImage())
	}
	if id, _ := draftItem.RemoteMedia(); id != 0 {
		t.Fatal("generated image and remote media must stay mutually exclusive")
	}

	productItem, ok := byID["local-product"].(*domain.Product)
	if !ok {
		t.Fatalf("product missing or wrong kind: %T", byID["local-product"])
	}
	if productItem.LongDescription != "Long." || productItem.ShortDescription != "Short." {
		t.Fatalf("product fields lost: %+v", productItem)
	}
}

func TestSaveLibraryReplacesSnapshot(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	first := &domain.Article{ContentMeta: domain.ContentMeta{ID: "one", Origin: domain.OriginNew, Status: domain.StatusDraft}}
	second := &domain.Article{ContentMeta: domain.ContentMeta{ID: "two", Origin: domain.OriginNew, Status: domain.StatusDraft}}

	if err := store.SaveLibrary(ctx, []domain.Content{first}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveLibrary(ctx, []domain.Content{second}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := store.LoadLibrary(ctx)
	if err != nil {
		t.Fatalf("LoadLibrary error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Meta().ID != "two" {
		t.Fatalf("snapshot not replaced: %+v", loaded)
	}
}
