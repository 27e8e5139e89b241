// Package storage persists site and library snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
    id           TEXT PRIMARY KEY,
    url          TEXT NOT NULL,
    name         TEXT NOT NULL DEFAULT '',
    is_virtual   INTEGER NOT NULL DEFAULT 0,
    username     TEXT NOT NULL DEFAULT '',
    app_password TEXT NOT NULL DEFAULT '',
    posts        INTEGER NOT NULL DEFAULT 0,
    pages        INTEGER NOT NULL DEFAULT 0,
    products     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS library (
    id      TEXT PRIMARY KEY,
    kind    TEXT NOT NULL,
    payload TEXT NOT NULL
);`

// SQLiteStore keeps the whole local state as replaceable snapshots:
// the library is rebuilt wholesale on every reconciliation, so rows
// are swapped in one transaction rather than patched.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.ContentStore = (*SQLiteStore)(nil)

// Open creates (or opens) the snapshot database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadSites reads the persisted site list.
func (s *SQLiteStore) LoadSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := sq.Select("id", "url", "name", "is_virtual", "username", "app_password", "posts", "pages", "products").
		From("sites").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		var (
			site               domain.Site
			virtual            int
			username, password string
		)
		if err := rows.Scan(&site.ID, &site.URL, &site.Name, &virtual, &username, &password,
			&site.Stats.Posts, &site.Stats.Pages, &site.Stats.Products); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		site.IsVirtual = virtual != 0
		if username != "" || password != "" {
			site.Credentials = &domain.Credentials{Username: username, AppPassword: password}
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

// SaveSites replaces the persisted site list.
func (s *SQLiteStore) SaveSites(ctx context.Context, sites []domain.Site) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin site snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sites"); err != nil {
		return fmt.Errorf("clear sites: %w", err)
	}

	for _, site := range sites {
		virtual := 0
		if site.IsVirtual {
			virtual = 1
		}
		var username, password string
		if site.Credentials != nil {
			username = site.Credentials.Username
			password = site.Credentials.AppPassword
		}

		_, err := sq.Insert("sites").
			Columns("id", "url", "name", "is_virtual", "username", "app_password", "posts", "pages", "products").
			Values(site.ID, site.URL, site.Name, virtual, username, password,
				site.Stats.Posts, site.Stats.Pages, site.Stats.Products).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert site %s: %w", site.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit site snapshot: %w", err)
	}
	return nil
}

// contentRow is the serialized form of one content entity.
type contentRow struct {
	ID           string                   `json:"id"`
	Title        string                   `json:"title"`
	Status       domain.Status            `json:"status"`
	Language     string                   `json:"language,omitempty"`
	CreatedAt    time.Time                `json:"createdAt"`
	SiteID       string                   `json:"siteId,omitempty"`
	ScheduledFor *time.Time               `json:"scheduledFor,omitempty"`
	PostID       int64                    `json:"postId,omitempty"`
	PostLink     string                   `json:"postLink,omitempty"`
	Origin       domain.Origin            `json:"origin"`
	Performance  *domain.PerformanceStats `json:"performance,omitempty"`

	Body            string `json:"body,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`
	GeneratedImage  []byte `json:"generatedImage,omitempty"`
	MediaID         int64  `json:"mediaId,omitempty"`
	MediaURL        string `json:"mediaUrl,omitempty"`

	LongDescription  string `json:"longDescription,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
}

func metaToRow(meta domain.ContentMeta) contentRow {
	return contentRow{
		ID:           meta.ID,
		Title:        meta.Title,
		Status:       meta.Status,
		Language:     meta.Language,
		CreatedAt:    meta.CreatedAt,
		SiteID:       meta.SiteID,
		ScheduledFor: meta.ScheduledFor,
		PostID:       meta.PostID,
		PostLink:     meta.PostLink,
		Origin:       meta.Origin,
		Performance:  meta.Performance,
	}
}

func (r contentRow) toMeta() domain.ContentMeta {
	return domain.ContentMeta{
		ID:           r.ID,
		Title:        r.Title,
		Status:       r.Status,
		Language:     r.Language,
		CreatedAt:    r.CreatedAt,
		SiteID:       r.SiteID,
		ScheduledFor: r.ScheduledFor,
		PostID:       r.PostID,
		PostLink:     r.PostLink,
		Origin:       r.Origin,
		Performance:  r.Performance,
	}
}

// LoadLibrary reads the persisted content snapshot.
func (s *SQLiteStore) LoadLibrary(ctx context.Context) ([]domain.Content, error) {
	rows, err := sq.Select("kind", "payload").
		From("library").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query library: %w", err)
	}
	defer rows.Close()

	var library []domain.Content
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}

		var row contentRow
		if err := json.Unmarshal([]byte(payload), &row); err != nil {
			return nil, fmt.Errorf("decode content %s: %w", kind, err)
		}

		switch domain.Kind(kind) {
		case domain.KindArticle:
			article := &domain.Article{
				ContentMeta:     row.toMeta(),
				Body:            row.Body,
				MetaDescription: row.MetaDescription,
			}
			if len(row.GeneratedImage) > 0 {
				article.SetGeneratedImage(row.GeneratedImage)
			} else if row.MediaID != 0 {
				article.SetRemoteMedia(row.MediaID, row.MediaURL)
			}
			library = append(library, article)
		case domain.KindProduct:
			library = append(library, &domain.Product{
				ContentMeta:      row.toMeta(),
				LongDescription:  row.LongDescription,
				ShortDescription: row.ShortDescription,
			})
		default:
			return nil, fmt.Errorf("unknown content kind %q in store", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library: %w", err)
	}
	return library, nil
}

// SaveLibrary replaces the content snapshot.
func (s *SQLiteStore) SaveLibrary(ctx context.Context, library []domain.Content) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin library snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM library"); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}

	for _, item := range library {
		row := metaToRow(*item.Meta())

		switch c := item.(type) {
		case *domain.Article:
			row.Body = c.Body
			row.MetaDescription = c.MetaDescription
			row.GeneratedImage = c.GeneratedImage()
			row.MediaID, row.MediaURL = c.RemoteMedia()
		case *domain.Product:
			row.LongDescription = c.LongDescription
			row.ShortDescription = c.ShortDescription
		default:
			return fmt.Errorf("unknown content kind %q", item.Kind())
		}

		payload, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode content %s: %w", row.ID, err)
		}

		_, err = sq.Insert("library").
			Columns("id", "kind", "payload").
			Values(row.ID, string(item.Kind()), string(payload)).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert content %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit library snapshot: %w", err)
	}
	return nil
}
