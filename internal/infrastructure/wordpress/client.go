package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

const (
	postsPerPage   = 100
	totalHeader    = "X-WP-Total"
	totalPagesHdr  = "X-WP-TotalPages"
	coreAPIPath    = "/wp-json/wp/v2"
	commerceAPIURL = "/wp-json/wc/v3"
)

// Client talks to one WordPress (and optionally WooCommerce) site over
// its REST API. It carries no merge logic and performs no retries.
type Client struct {
	site    domain.Site
	http    *http.Client
	logger  *slog.Logger
	termReq *singleflight.Group
}

var _ ports.RemoteClient = (*Client)(nil)

// NewClient wires an HTTP client for one site; client defaults to a
// 30-second-timeout transport.
func NewClient(site domain.Site, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		site:    site,
		http:    client,
		logger:  logger,
		termReq: &singleflight.Group{},
	}
}

// Factory builds and caches one Client per site, so concurrent callers
// share the same term-resolution coalescer.
type Factory struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

var _ ports.ClientFactory = (*Factory)(nil)

// NewFactory creates a client factory; httpClient may be nil.
func NewFactory(httpClient *http.Client, logger *slog.Logger) *Factory {
	return &Factory{
		httpClient: httpClient,
		logger:     logger,
		clients:    map[string]*Client{},
	}
}

// ClientFor returns the cached client for a real site. A cached entry
// is only reused while the site's URL and credentials are unchanged;
// a site re-added with rotated credentials gets a fresh client.
func (f *Factory) ClientFor(site domain.Site) (ports.RemoteClient, error) {
	if site.IsVirtual {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("site %s is virtual and accepts no remote operations", site.ID)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[site.ID]; ok {
		if sameRemoteIdentity(client.site, site) {
			return client, nil
		}
		delete(f.clients, site.ID)
	}

	var child *slog.Logger
	if f.logger != nil {
		child = f.logger.With("component", "wordpress", "site", site.ID)
	}
	client := NewClient(site, f.httpClient, child)
	f.clients[site.ID] = client
	return client, nil
}

func sameRemoteIdentity(a, b domain.Site) bool {
	if a.URL != b.URL {
		return false
	}
	switch {
	case a.Credentials == nil && b.Credentials == nil:
		return true
	case a.Credentials == nil || b.Credentials == nil:
		return false
	default:
		return *a.Credentials == *b.Credentials
	}
}

func (c *Client) coreURL(path string) string {
	return c.site.ID + coreAPIPath + path
}

func (c *Client) commerceURL(path string) string {
	return c.site.ID + commerceAPIURL + path
}

// Probe validates credentials by fetching the account identity document.
func (c *Client) Probe(ctx context.Context) (string, error) {
	var me rawUser
	if _, err := c.getJSON(ctx, c.coreURL("/users/me?context=edit"), &me); err != nil {
		return "", err
	}
	if me.Name == "" {
		me.Name = c.site.URL
	}
	return me.Name, nil
}

// FetchStats reads the remote totals headers for posts, pages and
// products. A site without the commerce API simply reports 0 products.
func (c *Client) FetchStats(ctx context.Context) (domain.SiteStats, error) {
	stats := domain.SiteStats{}

	posts, err := c.fetchTotal(ctx, c.coreURL("/posts?per_page=1"))
	if err != nil {
		return domain.SiteStats{}, err
	}
	stats.Posts = posts

	pages, err := c.fetchTotal(ctx, c.coreURL("/pages?per_page=1"))
	if err != nil {
		return domain.SiteStats{}, err
	}
	stats.Pages = pages

	products, err := c.fetchTotal(ctx, c.commerceURL("/products?per_page=1"))
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return domain.SiteStats{}, err
		}
		products = 0
	}
	stats.Products = products

	return stats, nil
}

// FetchAllPosts pages through the full post listing. Pages are fetched
// strictly in order because the terminating page count is only known
// once the first response arrives.
func (c *Client) FetchAllPosts(ctx context.Context) ([]ports.RemotePost, error) {
	var (
		collected  []ports.RemotePost
		totalPages = 1
	)

	for page := 1; page <= totalPages; page++ {
		listURL := c.coreURL(fmt.Sprintf("/posts?per_page=%d&page=%d&_embed=wp:featuredmedia", postsPerPage, page))

		var raws []rawPost
		header, err := c.getJSON(ctx, listURL, &raws)
		if err != nil {
			return nil, fmt.Errorf("fetch posts page %d: %w", page, err)
		}

		if page == 1 {
			if reported, convErr := strconv.Atoi(header.Get(totalPagesHdr)); convErr == nil && reported > 0 {
				totalPages = reported
			}
		}

		for _, raw := range raws {
			collected = append(collected, raw.toRemotePost())
		}
		c.debug("fetched posts page", "page", page, "of", totalPages, "batch", len(raws))
	}

	return collected, nil
}

// FetchContext returns a bounded window of recent posts, taxonomy
// terms, authors and media for generation-time context.
func (c *Client) FetchContext(ctx context.Context, limit int) (*ports.SiteContext, error) {
	if limit <= 0 {
		limit = 20
	}

	sc := &ports.SiteContext{}

	var raws []rawPost
	if _, err := c.getJSON(ctx, c.coreURL(fmt.Sprintf("/posts?per_page=%d&_embed=wp:featuredmedia", limit)), &raws); err != nil {
		return nil, fmt.Errorf("fetch recent posts: %w", err)
	}
	for _, raw := range raws {
		sc.Posts = append(sc.Posts, raw.toRemotePost())
	}

	var cats []rawTerm
	if _, err := c.getJSON(ctx, c.coreURL(fmt.Sprintf("/categories?per_page=%d", limit)), &cats); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	for _, t := range cats {
		sc.Categories = append(sc.Categories, ports.Term{ID: t.ID, Name: t.Name})
	}

	var tags []rawTerm
	if _, err := c.getJSON(ctx, c.coreURL(fmt.Sprintf("/tags?per_page=%d", limit)), &tags); err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	for _, t := range tags {
		sc.Tags = append(sc.Tags, ports.Term{ID: t.ID, Name: t.Name})
	}

	var users []rawUser
	if _, err := c.getJSON(ctx, c.coreURL(fmt.Sprintf("/users?per_page=%d", limit)), &users); err != nil {
		return nil, fmt.Errorf("fetch authors: %w", err)
	}
	for _, u := range users {
		sc.Authors = append(sc.Authors, ports.Author{ID: u.ID, Name: u.Name})
	}

	var media []rawMedia
	if _, err := c.getJSON(ctx, c.coreURL(fmt.Sprintf("/media?per_page=%d", limit)), &media); err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	for _, m := range media {
		sc.Media = append(sc.Media, ports.MediaItem{ID: m.ID, Title: m.Title.Rendered, SourceURL: m.SourceURL})
	}

	return sc, nil
}

// UploadMedia posts a binary asset as multipart form data. A 2xx
// response without a media id is reported as a failed upload, never as
// success.
func (c *Client) UploadMedia(ctx context.Context, data []byte, title string) (int64, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	filename := uploadFilename(title, data)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "build multipart form", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "write image bytes", Err: err}
	}
	if err := form.WriteField("title", title); err != nil {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "write title field", Err: err}
	}
	if err := form.Close(); err != nil {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "finalize multipart form", Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.coreURL("/media"), &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	resp, err := c.do(req)
	if err != nil {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "upload request failed", Err: err}
	}
	defer resp.Body.Close()

	var uploaded rawMedia
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "malformed upload response", Err: err}
	}
	if uploaded.ID == 0 {
		return 0, &domain.MediaUploadError{SiteID: c.site.ID, Reason: "upload response carries no media id"}
	}

	return uploaded.ID, nil
}

// ResolveTerms performs an exact case-insensitive get-or-create for
// each term name, in order. Concurrent resolutions of the same new
// name on this site are coalesced into one create.
func (c *Client) ResolveTerms(ctx context.Context, names []string, kind ports.TermKind) ([]int64, error) {
	endpoint, err := termEndpoint(kind)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}

		key := string(kind) + "|" + strings.ToLower(trimmed)
		resolved, err, _ := c.termReq.Do(key, func() (any, error) {
			return c.resolveTerm(ctx, endpoint, trimmed)
		})
		if err != nil {
			return nil, fmt.Errorf("resolve %s %q: %w", kind, trimmed, err)
		}
		ids = append(ids, resolved.(int64))
	}

	return ids, nil
}

func (c *Client) resolveTerm(ctx context.Context, endpoint, name string) (int64, error) {
	searchURL := c.coreURL(fmt.Sprintf("/%s?per_page=%d&search=%s", endpoint, postsPerPage, url.QueryEscape(name)))

	var candidates []rawTerm
	if _, err := c.getJSON(ctx, searchURL, &candidates); err != nil {
		return 0, err
	}
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Name, name) {
			return candidate.ID, nil
		}
	}

	var created rawTerm
	if err := c.postJSON(ctx, c.coreURL("/"+endpoint), map[string]any{"name": name}, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, &domain.RemoteAPIError{SiteID: c.site.ID, StatusCode: http.StatusOK, Message: fmt.Sprintf("created term %q has no id", name)}
	}
	return created.ID, nil
}

// CreatePost issues the kind-specific create call. Not idempotent: a
// retry after a timeout can create a duplicate remote post, so callers
// must check remote state before retrying.
func (c *Client) CreatePost(ctx context.Context, kind domain.Kind, payload ports.PostPayload) (ports.PostResult, error) {
	endpoint, body, err := c.postRequest(kind, payload, 0)
	if err != nil {
		return ports.PostResult{}, err
	}

	var result rawPostResult
	if err := c.postJSON(ctx, endpoint, body, &result); err != nil {
		return ports.PostResult{}, fmt.Errorf("create %s: %w", kind, err)
	}
	return toPostResult(result), nil
}

// UpdatePost issues the kind-specific update call for an existing post.
func (c *Client) UpdatePost(ctx context.Context, kind domain.Kind, postID int64, payload ports.PostPayload) (ports.PostResult, error) {
	endpoint, body, err := c.postRequest(kind, payload, postID)
	if err != nil {
		return ports.PostResult{}, err
	}

	var result rawPostResult
	if err := c.postJSON(ctx, endpoint, body, &result); err != nil {
		return ports.PostResult{}, fmt.Errorf("update %s %d: %w", kind, postID, err)
	}
	return toPostResult(result), nil
}

func (c *Client) postRequest(kind domain.Kind, payload ports.PostPayload, postID int64) (string, map[string]any, error) {
	switch kind {
	case domain.KindArticle:
		body := map[string]any{
			"title":   payload.Title,
			"content": payload.Content,
			"status":  payload.Status,
		}
		if payload.Excerpt != "" {
			body["excerpt"] = payload.Excerpt
		}
		if len(payload.CategoryIDs) > 0 {
			body["categories"] = payload.CategoryIDs
		}
		if len(payload.TagIDs) > 0 {
			body["tags"] = payload.TagIDs
		}
		if payload.FeaturedMediaID != 0 {
			body["featured_media"] = payload.FeaturedMediaID
		}
		if payload.PublishAt != nil {
			body["date_gmt"] = payload.PublishAt.UTC().Format(wordpressDate)
		}
		endpoint := c.coreURL("/posts")
		if postID != 0 {
			endpoint = c.coreURL(fmt.Sprintf("/posts/%d", postID))
		}
		return endpoint, body, nil

	case domain.KindProduct:
		body := map[string]any{
			"name":              payload.Title,
			"description":       payload.Content,
			"short_description": payload.ShortDescription,
			"status":            payload.Status,
		}
		if payload.RegularPrice != "" {
			body["regular_price"] = payload.RegularPrice
		}
		if payload.SKU != "" {
			body["sku"] = payload.SKU
		}
		if payload.StockStatus != "" {
			body["stock_status"] = payload.StockStatus
		}
		if payload.PublishAt != nil {
			body["date_created_gmt"] = payload.PublishAt.UTC().Format(wordpressDate)
		}
		endpoint := c.commerceURL("/products")
		if postID != 0 {
			endpoint = c.commerceURL(fmt.Sprintf("/products/%d", postID))
		}
		return endpoint, body, nil

	default:
		return "", nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown content kind %q", kind)}
	}
}

func (c *Client) fetchTotal(ctx context.Context, listURL string) (int, error) {
	var ignored []json.RawMessage
	header, err := c.getJSON(ctx, listURL, &ignored)
	if err != nil {
		return 0, err
	}
	total, convErr := strconv.Atoi(header.Get(totalHeader))
	if convErr != nil {
		return 0, nil
	}
	return total, nil
}

func (c *Client) newRequest(ctx context.Context, method, requestURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if creds := c.site.Credentials; creds != nil {
		req.SetBasicAuth(creds.Username, creds.AppPassword)
	}
	return req, nil
}

// do executes the request and maps failures onto the error taxonomy.
// On success the response body is left open for the caller.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{SiteID: c.site.ID, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &domain.AuthError{SiteID: c.site.ID, Err: fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))}
	case http.StatusNotFound:
		return nil, &domain.NotFoundError{SiteID: c.site.ID, URL: req.URL.String()}
	default:
		message := ""
		var apiErr rawAPIError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		} else {
			message = strings.TrimSpace(string(raw))
		}
		return nil, &domain.RemoteAPIError{SiteID: c.site.ID, StatusCode: resp.StatusCode, Message: message}
	}
}

func (c *Client) getJSON(ctx context.Context, requestURL string, v any) (http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", requestURL, err)
	}
	return resp.Header, nil
}

func (c *Client) postJSON(ctx context.Context, requestURL string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", requestURL, err)
	}
	return nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func termEndpoint(kind ports.TermKind) (string, error) {
	switch kind {
	case ports.TermCategory:
		return "categories", nil
	case ports.TermTag:
		return "tags", nil
	default:
		return "", &domain.ValidationError{Reason: fmt.Sprintf("unknown term kind %q", kind)}
	}
}

func toPostResult(raw rawPostResult) ports.PostResult {
	link := raw.Link
	if link == "" {
		link = raw.Permalink
	}
	return ports.PostResult{PostID: raw.ID, PostLink: link}
}

// uploadFilename slugs the title and picks the extension from the
// sniffed content type of the actual bytes.
func uploadFilename(title string, data []byte) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "upload"
	}
	return name + imageExtension(data)
}

func imageExtension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
