package normalize

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/infrastructure/markup"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

func newTestNormalizer() *Normalizer {
	svc := markup.New()
	return New(svc, svc)
}

var knownSites = []domain.Site{
	{ID: "https://alpha.example"},
	{ID: "https://beta.example"},
}

func rawFixture() ports.RemotePost {
	return ports.RemotePost{
		ID:      7,
		Date:    time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC),
		Link:    "https://alpha.example/hello-world",
		Status:  "publish",
		Title:   "Hello &amp; Welcome",
		Content: `<p>Some <strong>bold</strong> text.</p><script>alert("xss")</script>`,
		Excerpt: "<p>A short summary.</p>",
	}
}

func TestNormalizeSanitizesBeforeConverting(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	article, err := n.Normalize(rawFixture(), knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if strings.Contains(article.Body, "script") || strings.Contains(article.Body, "alert") {
		t.Fatalf("executable markup survived normalization: %q", article.Body)
	}
	if !strings.Contains(article.Body, "**bold**") {
		t.Fatalf("expected markdown conversion, got %q", article.Body)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	first, err := n.Normalize(rawFixture(), knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("first Normalize error: %v", err)
	}
	second, err := n.Normalize(rawFixture(), knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("second Normalize error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizeDerivesStableIdentity(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	article, err := n.Normalize(rawFixture(), knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if article.ID != domain.SyncedID("https://alpha.example", 7) {
		t.Fatalf("unexpected derived id: %s", article.ID)
	}
	if article.Origin != domain.OriginSynced || article.PostID != 7 {
		t.Fatalf("synced fields not set: %+v", article.ContentMeta)
	}
	if article.Title != "Hello & Welcome" {
		t.Fatalf("title not unescaped: %q", article.Title)
	}
	if article.MetaDescription != "A short summary." {
		t.Fatalf("excerpt not flattened: %q", article.MetaDescription)
	}
}

func TestNormalizeMatchesSiteByLinkOrigin(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	raw := rawFixture()
	raw.Link = "https://beta.example/cross-post"

	// Fetched through alpha, but the link belongs to beta.
	article, err := n.Normalize(raw, knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if article.SiteID != "https://beta.example" {
		t.Fatalf("expected link origin to win, got %s", article.SiteID)
	}
}

func TestNormalizeFutureStatus(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	raw := rawFixture()
	raw.Status = "future"

	article, err := n.Normalize(raw, knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if article.Status != domain.StatusPublished {
		t.Fatalf("future post should display as published, got %s", article.Status)
	}
	if article.ScheduledFor == nil || !article.ScheduledFor.Equal(raw.Date) {
		t.Fatalf("scheduledFor not taken from remote date: %v", article.ScheduledFor)
	}
}

func TestNormalizeExtractsFeaturedMedia(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	raw := rawFixture()
	raw.FeaturedMediaID = 31
	raw.FeaturedMediaURL = "https://alpha.example/wp-content/img.jpg"

	article, err := n.Normalize(raw, knownSites[0], knownSites)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	id, url := article.RemoteMedia()
	if id != 31 || url != raw.FeaturedMediaURL {
		t.Fatalf("media reference not extracted: %d %s", id, url)
	}
	if article.GeneratedImage() != nil {
		t.Fatal("synced article must not carry a generated image")
	}
}

func TestInferLanguage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"Plain English text", "en"},
		{"שלום עולם", "he"},
		{"مرحبا بالعالم", "ar"},
		{"", "en"},
	}

	for _, tc := range cases {
		if got := inferLanguage(tc.text); got != tc.want {
			t.Fatalf("inferLanguage(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
