package markup

import (
	"strings"
	"testing"
)

func TestSanitizeStripsScripts(t *testing.T) {
	t.Parallel()

	svc := New()
	out := svc.Sanitize(`<p>Hello</p><script>alert("x")</script><img src="x" onerror="alert(1)">`)

	if strings.Contains(out, "script") || strings.Contains(out, "alert") {
		t.Fatalf("unsafe markup survived: %q", out)
	}
	if strings.Contains(out, "onerror") {
		t.Fatalf("event handler survived: %q", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Fatalf("benign content lost: %q", out)
	}
}

func TestToMarkupKeepsEmphasis(t *testing.T) {
	t.Parallel()

	svc := New()
	out, err := svc.ToMarkup(`<p>A <strong>bold</strong> and <em>subtle</em> point.</p>`)
	if err != nil {
		t.Fatalf("ToMarkup error: %v", err)
	}
	if !strings.Contains(out, "**bold**") {
		t.Fatalf("bold not converted: %q", out)
	}
	if !strings.Contains(out, "_subtle_") && !strings.Contains(out, "*subtle*") {
		t.Fatalf("emphasis not converted: %q", out)
	}
}

func TestToHTMLRendersMarkdown(t *testing.T) {
	t.Parallel()

	svc := New()
	out := svc.ToHTML("A **bold** point.")
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Fatalf("markdown not rendered: %q", out)
	}
}

func TestRoundTripIsStable(t *testing.T) {
	t.Parallel()

	svc := New()
	first, err := svc.ToMarkup(svc.Sanitize(`<p>Plain paragraph with a <a href="https://example.com">link</a>.</p>`))
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := svc.ToMarkup(svc.Sanitize(svc.ToHTML(first)))
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if strings.TrimSpace(first) != strings.TrimSpace(second) {
		t.Fatalf("round trip drifted:\nfirst:  %q\nsecond: %q", first, second)
	}
}
