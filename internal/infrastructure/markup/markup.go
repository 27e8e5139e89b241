// Package markup adapts the HTML sanitizer and the HTML⇄markdown
// converters behind the pipeline's collaborator ports. Sanitization
// always runs before conversion so unsafe markup never round-trips
// through the converter.
package markup

import (
	"bytes"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// Service bundles the sanitize and convert collaborators.
type Service struct {
	policy    *bluemonday.Policy
	toMd      *md.Converter
	toHTMLMkd goldmark.Markdown
}

var (
	_ ports.Sanitizer       = (*Service)(nil)
	_ ports.MarkupConverter = (*Service)(nil)
)

// New builds the service with a UGC sanitization policy.
func New() *Service {
	return &Service{
		policy:    bluemonday.UGCPolicy(),
		toMd:      md.NewConverter("", true, nil),
		toHTMLMkd: goldmark.New(),
	}
}

// Sanitize strips executable and otherwise unsafe markup.
func (s *Service) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}

// ToMarkup converts (already sanitized) HTML to markdown.
func (s *Service) ToMarkup(html string) (string, error) {
	text, err := s.toMd.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html to markup: %w", err)
	}
	return text, nil
}

// ToHTML renders local markdown back to HTML for publishing.
func (s *Service) ToHTML(markup string) string {
	var buf bytes.Buffer
	if err := s.toHTMLMkd.Convert([]byte(markup), &buf); err != nil {
		// goldmark only fails on writer errors; a bytes.Buffer cannot.
		return markup
	}
	return buf.String()
}
