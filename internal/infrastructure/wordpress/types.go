package wordpress

import (
	"encoding/json"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// rendered unwraps the {"rendered": "..."} envelopes the post listing
// uses for title, content and excerpt.
type rendered struct {
	Rendered string `json:"rendered"`
}

type rawPost struct {
	ID            int64    `json:"id"`
	Date          string   `json:"date"`
	DateGMT       string   `json:"date_gmt"`
	Link          string   `json:"link"`
	Status        string   `json:"status"`
	Title         rendered `json:"title"`
	Content       rendered `json:"content"`
	Excerpt       rendered `json:"excerpt"`
	FeaturedMedia int64    `json:"featured_media"`
	// Stats is absent on stock installations; some sites attach an
	// engagement sub-object through a stats plugin. Kept raw because
	// misbehaving plugins emit [] instead of an object.
	Stats    json.RawMessage `json:"stats"`
	Embedded struct {
		FeaturedMedia []struct {
			ID        int64  `json:"id"`
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

type rawStats struct {
	Views       int `json:"views"`
	Clicks      int `json:"clicks"`
	Impressions int `json:"impressions"`
}

type rawTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawMedia struct {
	ID        int64    `json:"id"`
	Title     rendered `json:"title"`
	SourceURL string   `json:"source_url"`
}

type rawPostResult struct {
	ID        int64  `json:"id"`
	Link      string `json:"link"`
	Permalink string `json:"permalink"`
}

type rawAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wordpressDate is the zone-less timestamp format the post listing uses.
const wordpressDate = "2006-01-02T15:04:05"

func (p rawPost) toRemotePost() ports.RemotePost {
	post := ports.RemotePost{
		ID:              p.ID,
		Link:            p.Link,
		Status:          p.Status,
		Title:           p.Title.Rendered,
		Content:         p.Content.Rendered,
		Excerpt:         p.Excerpt.Rendered,
		FeaturedMediaID: p.FeaturedMedia,
	}

	if ts, err := time.Parse(wordpressDate, p.DateGMT); err == nil {
		post.Date = ts.UTC()
	} else if ts, err := time.Parse(wordpressDate, p.Date); err == nil {
		post.Date = ts.UTC()
	}

	if len(p.Embedded.FeaturedMedia) > 0 {
		post.FeaturedMediaURL = p.Embedded.FeaturedMedia[0].SourceURL
		if post.FeaturedMediaID == 0 {
			post.FeaturedMediaID = p.Embedded.FeaturedMedia[0].ID
		}
	}

	if len(p.Stats) > 0 && string(p.Stats) != "null" {
		var stats rawStats
		if err := json.Unmarshal(p.Stats, &stats); err == nil {
			post.Performance = &domain.PerformanceStats{
				Views:       stats.Views,
				Clicks:      stats.Clicks,
				Impressions: stats.Impressions,
			}
		}
	}

	return post
}
