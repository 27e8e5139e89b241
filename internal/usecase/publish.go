package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// ProductFields carries the commerce values that exist only in the
// publish request, never on the persisted entity.
type ProductFields struct {
	RegularPrice string
	SKU          string
	StockStatus  string
}

// PublishOptions parameterize one publish or update call.
type PublishOptions struct {
	Status     domain.Status
	PublishAt  *time.Time
	Categories []string
	Tags       []string
	Product    *ProductFields
}

// Publisher performs the ordered media → taxonomy → create/update
// sequence against one target site. It never mutates local state; the
// caller applies the returned result (see ApplyPublishResult) only
// after full success.
//
// The create call is not idempotent at the HTTP layer: retrying after
// a timeout can create a duplicate remote post. Callers that retry
// must first check whether the post was actually created.
type Publisher struct {
	factory   ports.ClientFactory
	converter ports.MarkupConverter
	now       ports.Clock
	logger    *slog.Logger
}

// NewPublisher constructs the orchestrator. now may be nil (wall clock).
func NewPublisher(factory ports.ClientFactory, converter ports.MarkupConverter, now ports.Clock, logger *slog.Logger) *Publisher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{factory: factory, converter: converter, now: now, logger: logger}
}

// Publish creates the content on the target site.
func (p *Publisher) Publish(ctx context.Context, content domain.Content, site domain.Site, opts PublishOptions) (ports.PostResult, error) {
	client, err := p.preflight(content, site)
	if err != nil {
		return ports.PostResult{}, err
	}

	payload, err := p.buildPayload(ctx, client, content, opts)
	if err != nil {
		return ports.PostResult{}, err
	}

	result, err := client.CreatePost(ctx, content.Kind(), payload)
	if err != nil {
		return ports.PostResult{}, err
	}

	p.logger.Info("content published", "site", site.ID, "post", result.PostID)
	return result, nil
}

// Update overwrites an existing remote post. The content must already
// be synced and carry a post id.
func (p *Publisher) Update(ctx context.Context, content domain.Content, postID int64, site domain.Site, opts PublishOptions) (ports.PostResult, error) {
	if content.Meta().Origin != domain.OriginSynced || postID == 0 {
		return ports.PostResult{}, &domain.ValidationError{Reason: "only synced content with a post id can be updated"}
	}

	client, err := p.preflight(content, site)
	if err != nil {
		return ports.PostResult{}, err
	}

	payload, err := p.buildPayload(ctx, client, content, opts)
	if err != nil {
		return ports.PostResult{}, err
	}

	result, err := client.UpdatePost(ctx, content.Kind(), postID, payload)
	if err != nil {
		return ports.PostResult{}, err
	}

	p.logger.Info("content updated", "site", site.ID, "post", result.PostID)
	return result, nil
}

func (p *Publisher) preflight(content domain.Content, site domain.Site) (ports.RemoteClient, error) {
	if site.IsVirtual {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("site %s is virtual: select a real target site", site.ID)}
	}
	if content == nil {
		return nil, &domain.ValidationError{Reason: "no content selected"}
	}
	return p.factory.ClientFor(site)
}

// buildPayload runs the side-effecting preparation steps in their
// mandatory order: media upload first (its failure aborts everything
// before any post mutation), then category and tag resolution, which
// are independent and run concurrently with each other.
func (p *Publisher) buildPayload(ctx context.Context, client ports.RemoteClient, content domain.Content, opts PublishOptions) (ports.PostPayload, error) {
	meta := content.Meta()

	payload := ports.PostPayload{Title: meta.Title}
	payload.Status, payload.PublishAt = p.remoteStatus(opts)

	switch c := content.(type) {
	case *domain.Article:
		payload.Content = p.converter.ToHTML(c.Body)
		payload.Excerpt = c.MetaDescription

		if image := c.GeneratedImage(); len(image) > 0 {
			mediaID, err := client.UploadMedia(ctx, image, meta.Title)
			if err != nil {
				return ports.PostPayload{}, err
			}
			payload.FeaturedMediaID = mediaID
		} else if id, _ := c.RemoteMedia(); id != 0 {
			payload.FeaturedMediaID = id
		}

	case *domain.Product:
		payload.Content = p.converter.ToHTML(c.LongDescription)
		payload.ShortDescription = p.converter.ToHTML(c.ShortDescription)
		if opts.Product != nil {
			payload.RegularPrice = opts.Product.RegularPrice
			payload.SKU = opts.Product.SKU
			payload.StockStatus = opts.Product.StockStatus
		}

	default:
		return ports.PostPayload{}, &domain.ValidationError{Reason: fmt.Sprintf("unknown content kind %q", content.Kind())}
	}

	categoryIDs, tagIDs, err := p.resolveTaxonomy(ctx, client, opts)
	if err != nil {
		return ports.PostPayload{}, err
	}
	payload.CategoryIDs = categoryIDs
	payload.TagIDs = tagIDs

	return payload, nil
}

// resolveTaxonomy resolves the two term kinds concurrently; within one
// kind names resolve sequentially to avoid duplicate-creation races.
func (p *Publisher) resolveTaxonomy(ctx context.Context, client ports.RemoteClient, opts PublishOptions) ([]int64, []int64, error) {
	var (
		wg           sync.WaitGroup
		categoryIDs  []int64
		tagIDs       []int64
		catErr, tErr error
	)

	if len(opts.Categories) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			categoryIDs, catErr = client.ResolveTerms(ctx, opts.Categories, ports.TermCategory)
		}()
	}
	if len(opts.Tags) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tagIDs, tErr = client.ResolveTerms(ctx, opts.Tags, ports.TermTag)
		}()
	}
	wg.Wait()

	if catErr != nil {
		return nil, nil, catErr
	}
	if tErr != nil {
		return nil, nil, tErr
	}
	return categoryIDs, tagIDs, nil
}

// remoteStatus couples the remote status string with the publish
// timestamp: a requested future date always travels as status=future
// plus an explicit date, regardless of what the caller set.
func (p *Publisher) remoteStatus(opts PublishOptions) (string, *time.Time) {
	if opts.PublishAt != nil && opts.PublishAt.After(p.now()) {
		return "future", opts.PublishAt
	}
	if opts.Status == domain.StatusPublished {
		return "publish", nil
	}
	return "draft", nil
}

// ApplyPublishResult overwrites the local record's remote-facing
// fields from a successful publish or update. Callers invoke it only
// after the orchestrator returned without error.
func ApplyPublishResult(content domain.Content, result ports.PostResult, opts PublishOptions, now ports.Clock) {
	if now == nil {
		now = time.Now
	}

	status := opts.Status
	scheduledFor := content.Meta().ScheduledFor
	if opts.PublishAt != nil && opts.PublishAt.After(now()) {
		status = domain.StatusPublished
		scheduledFor = opts.PublishAt
	}

	domain.MarkSynced(content, result.PostID, result.PostLink, status, scheduledFor)
}
