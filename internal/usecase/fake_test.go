package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

// fakeClient is a scriptable RemoteClient double that records the
// order of side-effecting calls.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	posts    []ports.RemotePost
	fetchErr error

	uploadID  int64
	uploadErr error

	terms   map[string]int64
	termErr error

	createResult ports.PostResult
	createErr    error
	updateResult ports.PostResult
	updateErr    error

	lastPayload ports.PostPayload
	lastKind    domain.Kind
}

var _ ports.RemoteClient = (*fakeClient)(nil)

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) Probe(context.Context) (string, error) {
	f.record("probe")
	return "Fake Site", nil
}

func (f *fakeClient) FetchStats(context.Context) (domain.SiteStats, error) {
	f.record("stats")
	return domain.SiteStats{Posts: len(f.posts)}, nil
}

func (f *fakeClient) FetchAllPosts(context.Context) ([]ports.RemotePost, error) {
	f.record("fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.posts, nil
}

func (f *fakeClient) FetchContext(context.Context, int) (*ports.SiteContext, error) {
	f.record("context")
	return &ports.SiteContext{Posts: f.posts}, nil
}

func (f *fakeClient) UploadMedia(_ context.Context, _ []byte, _ string) (int64, error) {
	f.record("upload")
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	return f.uploadID, nil
}

func (f *fakeClient) ResolveTerms(_ context.Context, names []string, kind ports.TermKind) ([]int64, error) {
	f.record("resolve:" + string(kind))
	if f.termErr != nil {
		return nil, f.termErr
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if id, ok := f.terms[name]; ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, int64(len(name)))
		}
	}
	return ids, nil
}

func (f *fakeClient) CreatePost(_ context.Context, kind domain.Kind, payload ports.PostPayload) (ports.PostResult, error) {
	f.record("create")
	f.mu.Lock()
	f.lastPayload = payload
	f.lastKind = kind
	f.mu.Unlock()
	if f.createErr != nil {
		return ports.PostResult{}, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeClient) UpdatePost(_ context.Context, kind domain.Kind, _ int64, payload ports.PostPayload) (ports.PostResult, error) {
	f.record("update")
	f.mu.Lock()
	f.lastPayload = payload
	f.lastKind = kind
	f.mu.Unlock()
	if f.updateErr != nil {
		return ports.PostResult{}, f.updateErr
	}
	return f.updateResult, nil
}

// fakeFactory hands out per-site scripted clients.
type fakeFactory struct {
	clients map[string]*fakeClient
}

var _ ports.ClientFactory = (*fakeFactory)(nil)

func (f *fakeFactory) ClientFor(site domain.Site) (ports.RemoteClient, error) {
	if site.IsVirtual {
		return nil, &domain.ValidationError{Reason: "virtual site"}
	}
	client, ok := f.clients[site.ID]
	if !ok {
		return nil, fmt.Errorf("no fake client for %s", site.ID)
	}
	return client, nil
}

// passthroughMarkup is an identity converter for orchestrator tests.
type passthroughMarkup struct{}

func (passthroughMarkup) Sanitize(html string) string          { return html }
func (passthroughMarkup) ToMarkup(html string) (string, error) { return html, nil }
func (passthroughMarkup) ToHTML(markup string) string          { return markup }
