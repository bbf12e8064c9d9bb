package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Get when no organization has the requested id
var ErrNotFound = errors.New("organization not found")

// Storage handles all database operations
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// NewStorage creates a new Storage instance, opening/creating the DB and migrating the schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; concurrent upserts queue on the pool instead of failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logrus.Debugf("Database schema at version %d (dirty=%t)", version, dirty)

	return &Storage{db: db, now: time.Now}, nil
}

// Upsert inserts an organization or overwrites every field of the one sharing its source URL.
// The stored record is returned with ID, IsActive and LastScrapedAt filled in.
func (s *Storage) Upsert(ctx context.Context, org Organization) (Organization, error) {
	if org.SourceURL == "" {
		return Organization{}, fmt.Errorf("failed to upsert organization: source url is required")
	}

	social, err := json.Marshal(org.SocialMedia)
	if err != nil {
		return Organization{}, fmt.Errorf("failed to encode social media: %w", err)
	}
	contact, err := json.Marshal(org.Contact)
	if err != nil {
		return Organization{}, fmt.Errorf("failed to encode contact: %w", err)
	}
	raw, err := json.Marshal(org.RawContent)
	if err != nil {
		return Organization{}, fmt.Errorf("failed to encode raw content: %w", err)
	}
	var location sql.NullString
	if org.Location != nil {
		b, err := json.Marshal(org.Location)
		if err != nil {
			return Organization{}, fmt.Errorf("failed to encode location: %w", err)
		}
		location = sql.NullString{String: string(b), Valid: true}
	}

	scrapedAt := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Organization{}, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organizations (id, name, description, source_url, website_url, social_media,
			contact, location, image, raw_content, is_active, last_scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(source_url) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			website_url = EXCLUDED.website_url,
			social_media = EXCLUDED.social_media,
			contact = EXCLUDED.contact,
			location = EXCLUDED.location,
			image = EXCLUDED.image,
			raw_content = EXCLUDED.raw_content,
			is_active = 1,
			last_scraped_at = EXCLUDED.last_scraped_at
	`, ulid.Make().String(), org.Name, org.Description, org.SourceURL, org.WebsiteURL, string(social),
		string(contact), location, org.Image, string(raw), scrapedAt)
	if err != nil {
		return Organization{}, fmt.Errorf("failed to upsert organization: %w", err)
	}

	var id string
	if err := tx.QueryRowContext(ctx, "SELECT id FROM organizations WHERE source_url = ?", org.SourceURL).Scan(&id); err != nil {
		return Organization{}, fmt.Errorf("failed to retrieve organization id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM organization_categories WHERE organization_id = ?", id); err != nil {
		return Organization{}, fmt.Errorf("failed to clear categories: %w", err)
	}
	for i, category := range org.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO organization_categories (organization_id, category, position)
			VALUES (?, ?, ?)
			ON CONFLICT(organization_id, category) DO NOTHING
		`, id, category, i); err != nil {
			return Organization{}, fmt.Errorf("failed to store category %q: %w", category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Organization{}, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return s.getBy(ctx, "o.id = ?", id)
}

// Get retrieves an organization by id
func (s *Storage) Get(ctx context.Context, id string) (Organization, error) {
	return s.getBy(ctx, "o.id = ?", id)
}

// GetBySourceURL retrieves an organization by its canonical directory URL
func (s *Storage) GetBySourceURL(ctx context.Context, sourceURL string) (Organization, error) {
	return s.getBy(ctx, "o.source_url = ?", sourceURL)
}

func (s *Storage) getBy(ctx context.Context, where string, arg any) (Organization, error) {
	orgs, err := s.query(ctx, "WHERE "+where, []any{arg}, 1)
	if err != nil {
		return Organization{}, err
	}
	if len(orgs) == 0 {
		return Organization{}, ErrNotFound
	}
	return orgs[0], nil
}

// List returns stored organizations ordered by name
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]Organization, error) {
	var clauses []string
	var args []any
	if filter.Category != "" {
		clauses = append(clauses, "o.id IN (SELECT organization_id FROM organization_categories WHERE category = ?)")
		args = append(args, filter.Category)
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "o.is_active = 1")
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return s.query(ctx, where, args, filter.Limit)
}

// Count returns the number of stored organizations
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return n, nil
}

func (s *Storage) query(ctx context.Context, where string, args []any, limit int) ([]Organization, error) {
	q := `
		SELECT o.id, o.name, o.description, o.source_url, o.website_url, o.social_media, o.contact,
			o.location, o.image, o.raw_content, o.is_active, o.last_scraped_at, o.created_at
		FROM organizations o
		` + where + `
		ORDER BY o.name ASC, o.source_url ASC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		var (
			org                  Organization
			social, contact, raw string
			location             sql.NullString
		)
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.SourceURL, &org.WebsiteURL,
			&social, &contact, &location, &org.Image, &raw, &org.IsActive, &org.LastScrapedAt, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		if err := json.Unmarshal([]byte(social), &org.SocialMedia); err != nil {
			return nil, fmt.Errorf("failed to decode social media for %s: %w", org.SourceURL, err)
		}
		if err := json.Unmarshal([]byte(contact), &org.Contact); err != nil {
			return nil, fmt.Errorf("failed to decode contact for %s: %w", org.SourceURL, err)
		}
		if err := json.Unmarshal([]byte(raw), &org.RawContent); err != nil {
			return nil, fmt.Errorf("failed to decode raw content for %s: %w", org.SourceURL, err)
		}
		if location.Valid {
			org.Location = &Location{}
			if err := json.Unmarshal([]byte(location.String), org.Location); err != nil {
				return nil, fmt.Errorf("failed to decode location for %s: %w", org.SourceURL, err)
			}
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	for i := range orgs {
		categories, err := s.categories(ctx, orgs[i].ID)
		if err != nil {
			return nil, err
		}
		orgs[i].Categories = categories
	}

	return orgs, nil
}

func (s *Storage) categories(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category FROM organization_categories
		WHERE organization_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
