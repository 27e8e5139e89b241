package domain

import (
	"fmt"
	"time"
)

// Status enumerates local publication states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Origin distinguishes locally authored content from content
// materialized out of a remote post.
type Origin string

const (
	OriginNew    Origin = "new"
	OriginSynced Origin = "synced"
)

// Kind tags the content variant.
type Kind string

const (
	KindArticle Kind = "article"
	KindProduct Kind = "product"
)

// PerformanceStats carries remote engagement counters when the remote
// site reports them alongside a post.
type PerformanceStats struct {
	Views       int
	Clicks      int
	Impressions int
}

// ContentMeta holds the fields shared by every content variant.
type ContentMeta struct {
	ID           string
	Title        string
	Status       Status
	Language     string
	CreatedAt    time.Time
	SiteID       string
	ScheduledFor *time.Time
	PostID       int64
	PostLink     string
	Origin       Origin
	Performance  *PerformanceStats
}

// Content is the tagged union over Article and Product. Consumers
// switch on the concrete type; the unexported marker keeps the set of
// variants closed to this package.
type Content interface {
	Meta() *ContentMeta
	Kind() Kind
	isContent()
}

// Article is a blog-post style piece. Its body is lightweight markup,
// already sanitized and converted from the remote HTML when synced.
type Article struct {
	ContentMeta
	Body            string
	MetaDescription string

	// A freshly generated image and a reference to an existing remote
	// media asset are mutually exclusive. Use the setters.
	generatedImage   []byte
	featuredMediaID  int64
	featuredMediaURL string
}

func (a *Article) Meta() *ContentMeta { return &a.ContentMeta }
func (a *Article) Kind() Kind         { return KindArticle }
func (a *Article) isContent()         {}

// SetGeneratedImage attaches not-yet-uploaded image bytes and clears
// any remote media reference.
func (a *Article) SetGeneratedImage(data []byte) {
	a.generatedImage = data
	a.featuredMediaID = 0
	a.featuredMediaURL = ""
}

// SetRemoteMedia records an existing remote media asset and clears any
// pending generated image.
func (a *Article) SetRemoteMedia(id int64, url string) {
	a.featuredMediaID = id
	a.featuredMediaURL = url
	a.generatedImage = nil
}

// GeneratedImage returns pending image bytes, or nil when the article
// references remote media (or has no image at all).
func (a *Article) GeneratedImage() []byte { return a.generatedImage }

// RemoteMedia returns the remote media reference; id 0 means none.
func (a *Article) RemoteMedia() (int64, string) {
	return a.featuredMediaID, a.featuredMediaURL
}

// Product is a commerce item. Price, SKU and stock fields are supplied
// at publish time and are not part of the persisted entity.
type Product struct {
	ContentMeta
	LongDescription  string
	ShortDescription string
}

func (p *Product) Meta() *ContentMeta { return &p.ContentMeta }
func (p *Product) Kind() Kind         { return KindProduct }
func (p *Product) isContent()         {}

// SyncedID derives a stable content id for a remote post so repeated
// reconciliation runs materialize the same identity instead of new rows.
func SyncedID(siteID string, postID int64) string {
	return fmt.Sprintf("%s#%d", siteID, postID)
}

// MarkSynced overwrites the local record's remote-facing fields after a
// publish or update call succeeded. This is the only new→synced
// transition point.
func MarkSynced(c Content, postID int64, postLink string, status Status, scheduledFor *time.Time) {
	meta := c.Meta()
	meta.PostID = postID
	meta.PostLink = postLink
	meta.Status = status
	meta.ScheduledFor = scheduledFor
	meta.Origin = OriginSynced
}
