// Package normalize materializes canonical Content entities out of raw
// remote posts.
package normalize

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// Normalizer converts raw remote posts into Content. It holds no
// mutable state: Normalize is a pure function of its inputs, so
// normalizing the same raw post twice yields identical output.
type Normalizer struct {
	sanitizer ports.Sanitizer
	converter ports.MarkupConverter
}

// New wires the sanitize and convert collaborators.
func New(sanitizer ports.Sanitizer, converter ports.MarkupConverter) *Normalizer {
	return &Normalizer{sanitizer: sanitizer, converter: converter}
}

// Normalize maps one raw remote post onto a synced Article. The post's
// own link origin decides which registered site it belongs to; the
// fetching site is only a fallback, since a multi-site fetch could in
// principle return cross-linked content.
func (n *Normalizer) Normalize(raw ports.RemotePost, site domain.Site, known []domain.Site) (*domain.Article, error) {
	if raw.ID == 0 {
		return nil, fmt.Errorf("remote post from %s has no id", site.ID)
	}

	siteID := matchSiteByLink(raw.Link, known)
	if siteID == "" {
		siteID = site.ID
	}

	sanitized := n.sanitizer.Sanitize(raw.Content)
	body, err := n.converter.ToMarkup(sanitized)
	if err != nil {
		return nil, fmt.Errorf("normalize post %d: %w", raw.ID, err)
	}

	title := plainText(raw.Title)
	status, scheduledFor := mapStatus(raw)

	article := &domain.Article{
		ContentMeta: domain.ContentMeta{
			ID:           domain.SyncedID(siteID, raw.ID),
			Title:        title,
			Status:       status,
			Language:     inferLanguage(title + " " + body),
			CreatedAt:    raw.Date,
			SiteID:       siteID,
			ScheduledFor: scheduledFor,
			PostID:       raw.ID,
			PostLink:     raw.Link,
			Origin:       domain.OriginSynced,
			Performance:  raw.Performance,
		},
		Body:            body,
		MetaDescription: plainText(raw.Excerpt),
	}

	if raw.FeaturedMediaID != 0 {
		article.SetRemoteMedia(raw.FeaturedMediaID, raw.FeaturedMediaURL)
	}

	return article, nil
}

// mapStatus folds remote status strings onto the local enum. A future
// post is shown as published with its remote date as the schedule.
func mapStatus(raw ports.RemotePost) (domain.Status, *time.Time) {
	switch raw.Status {
	case "publish":
		return domain.StatusPublished, nil
	case "future":
		when := raw.Date
		return domain.StatusPublished, &when
	default:
		return domain.StatusDraft, nil
	}
}

// matchSiteByLink resolves the owning site by comparing the post
// link's origin against every registered site id.
func matchSiteByLink(link string, known []domain.Site) string {
	origin, err := domain.NormalizeOrigin(link)
	if err != nil {
		return ""
	}
	for _, site := range known {
		if site.ID == origin {
			return site.ID
		}
	}
	return ""
}

// plainText strips any markup from a rendered fragment and collapses
// the result to trimmed text.
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(html.UnescapeString(fragment))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

// inferLanguage is a coarse script check: a text dominated by Hebrew
// or Arabic letters is tagged accordingly, everything else as English.
func inferLanguage(text string) string {
	var hebrew, arabic, latin int
	for _, r := range text {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			hebrew++
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	switch {
	case hebrew > latin && hebrew > arabic:
		return "he"
	case arabic > latin && arabic > hebrew:
		return "ar"
	default:
		return "en"
	}
}
