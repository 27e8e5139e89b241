package ports

import (
	"context"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
)

// TermKind selects the taxonomy a term name belongs to.
type TermKind string

const (
	TermCategory TermKind = "category"
	TermTag      TermKind = "tag"
)

// RemotePost is the raw remote representation of one post, before
// normalization. Title, Content and Excerpt hold the rendered HTML.
type RemotePost struct {
	ID              int64
	Date            time.Time
	Link            string
	Status          string
	Title           string
	Content         string
	Excerpt         string
	FeaturedMediaID int64
	// FeaturedMediaURL is filled when the listing embedded the media
	// object alongside the post.
	FeaturedMediaURL string
	Performance      *domain.PerformanceStats
}

// Term is a category or tag name/id pair on a remote site.
type Term struct {
	ID   int64
	Name string
}

// Author identifies a remote user account.
type Author struct {
	ID   int64
	Name string
}

// MediaItem references an existing remote media asset.
type MediaItem struct {
	ID        int64
	Title     string
	SourceURL string
}

// SiteContext is a bounded window of recent site material used as
// generation-time context, not by reconciliation.
type SiteContext struct {
	Posts      []RemotePost
	Categories []Term
	Tags       []Term
	Authors    []Author
	Media      []MediaItem
}

// PostPayload carries everything the remote create/update endpoints
// need. Only the fields relevant to the payload's kind are consumed.
type PostPayload struct {
	Title           string
	Content         string
	Excerpt         string
	Status          string
	PublishAt       *time.Time
	CategoryIDs     []int64
	TagIDs          []int64
	FeaturedMediaID int64

	// Commerce-only fields.
	ShortDescription string
	RegularPrice     string
	SKU              string
	StockStatus      string
}

// PostResult is the remote identity returned by a create or update.
type PostResult struct {
	PostID   int64
	PostLink string
}

// RemoteClient talks to one remote site's REST API. Implementations
// perform no retries and no merge logic; every failure maps onto the
// domain error taxonomy.
type RemoteClient interface {
	// Probe validates credentials and returns the account display name.
	Probe(ctx context.Context) (string, error)
	// FetchStats reads the remote totals for posts, pages and products.
	FetchStats(ctx context.Context) (domain.SiteStats, error)
	// FetchAllPosts pages through the full remote post listing.
	FetchAllPosts(ctx context.Context) ([]RemotePost, error)
	// FetchContext returns up to limit recent posts plus taxonomy,
	// author and media windows.
	FetchContext(ctx context.Context, limit int) (*SiteContext, error)
	// UploadMedia stores a binary asset and returns its remote id.
	UploadMedia(ctx context.Context, data []byte, title string) (int64, error)
	// ResolveTerms maps term names to ids, creating missing terms.
	// Matching is exact and case-insensitive.
	ResolveTerms(ctx context.Context, names []string, kind TermKind) ([]int64, error)
	CreatePost(ctx context.Context, kind domain.Kind, payload PostPayload) (PostResult, error)
	UpdatePost(ctx context.Context, kind domain.Kind, postID int64, payload PostPayload) (PostResult, error)
}

// ClientFactory builds a RemoteClient scoped to one site. Virtual
// sites have no client; factories reject them.
type ClientFactory interface {
	ClientFor(site domain.Site) (RemoteClient, error)
}

// Sanitizer strips executable and otherwise unsafe markup from remote
// HTML. It always runs before markup conversion, never after.
type Sanitizer interface {
	Sanitize(html string) string
}

// MarkupConverter converts between HTML and the lightweight markup
// stored on local content.
type MarkupConverter interface {
	ToMarkup(html string) (string, error)
	ToHTML(markup string) string
}

// ContentStore persists the site list and library snapshots.
type ContentStore interface {
	LoadSites(ctx context.Context) ([]domain.Site, error)
	SaveSites(ctx context.Context, sites []domain.Site) error
	LoadLibrary(ctx context.Context) ([]domain.Content, error)
	SaveLibrary(ctx context.Context, library []domain.Content) error
}

// DraftGenerator produces a locally authored draft article from a
// topic prompt. siteCtx may be nil; when present it seeds the prompt
// with the target site's existing material.
type DraftGenerator interface {
	GenerateArticle(ctx context.Context, topic string, siteCtx *SiteContext) (*domain.Article, error)
}

// Notifier delivers operator-facing notices (sync failures).
type Notifier interface {
	NotifySyncFailure(ctx context.Context, message string) error
}

// Clock supplies the current time; injected so scheduling stays
// deterministic under test.
type Clock func() time.Time
