package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shokoko2010/site-Manage-sub000/internal/config"
	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// Generator produces draft articles through an OpenAI-compatible chat
// completion API.
type Generator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	now          ports.Clock
}

var _ ports.DraftGenerator = (*Generator)(nil)

// NewGenerator builds a client from configuration.
func NewGenerator(cfg config.GeneratorConfig, now ports.Clock) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		now:          now,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type draftResponse struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	MetaDescription string `json:"metaDescription"`
}

// GenerateArticle asks the model for a complete draft and returns it
// as a locally authored Article (origin new, no post id). When siteCtx
// is present, the target site's taxonomy and recent titles are folded
// into the prompt so the draft matches the site's existing material.
func (g *Generator) GenerateArticle(ctx context.Context, topic string, siteCtx *ports.SiteContext) (*domain.Article, error) {
	if g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return nil, fmt.Errorf("draft generator misconfigured")
	}

	instruction := `Write a blog article about the topic below. Respond with a single JSON object: {"title": ..., "body": <markdown>, "metaDescription": ...}.` +
		siteContextPrompt(siteCtx) +
		"\n\nTopic: " + topic

	body, err := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": g.systemPrompt},
			{"role": "user", "content": instruction},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("generator error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("generator returned no choices")
	}

	var draft draftResponse
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &draft); err != nil {
		return nil, fmt.Errorf("decode draft content: %w", err)
	}
	if draft.Title == "" || draft.Body == "" {
		return nil, fmt.Errorf("generator returned an incomplete draft")
	}

	return &domain.Article{
		ContentMeta: domain.ContentMeta{
			ID:        uuid.NewString(),
			Title:     draft.Title,
			Status:    domain.StatusDraft,
			CreatedAt: g.now().UTC(),
			Origin:    domain.OriginNew,
		},
		Body:            draft.Body,
		MetaDescription: draft.MetaDescription,
	}, nil
}

func siteContextPrompt(sc *ports.SiteContext) string {
	if sc == nil {
		return ""
	}

	var b strings.Builder
	if len(sc.Categories) > 0 {
		b.WriteString("\n\nPrefer these existing categories: ")
		b.WriteString(termNames(sc.Categories))
		b.WriteString(".")
	}
	if len(sc.Tags) > 0 {
		b.WriteString("\nPrefer these existing tags: ")
		b.WriteString(termNames(sc.Tags))
		b.WriteString(".")
	}
	if len(sc.Posts) > 0 {
		b.WriteString("\nRecent articles on the site (avoid duplicating them):")
		for i, post := range sc.Posts {
			if i == 10 {
				break
			}
			b.WriteString("\n- ")
			b.WriteString(post.Title)
		}
	}
	return b.String()
}

func termNames(terms []ports.Term) string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
