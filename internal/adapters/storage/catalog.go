package storage

// catalog.go — caché local de catálogos en SQLite.
//
// Los listados de deportes y casas cambian poco y cada fetch de deportes
// gasta créditos del proveedor. Guardamos la última copia con su timestamp
// y el lector decide la frescura que exige (maxAge). Cada Put reemplaza el
// catálogo completo: son tablas pequeñas y el diff no compensa.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sports (
    key      TEXT PRIMARY KEY,
    title    TEXT NOT NULL,
    grp      TEXT NOT NULL DEFAULT 'Other',
    active   INTEGER NOT NULL DEFAULT 1,
    position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bookmakers (
    key      TEXT PRIMARY KEY,
    name     TEXT NOT NULL,
    position INTEGER NOT NULL
);

-- Una fila por catálogo con su última actualización
CREATE TABLE IF NOT EXISTS catalog_meta (
    name       TEXT PRIMARY KEY,  -- 'sports' | 'bookmakers'
    fetched_at DATETIME NOT NULL,
    credits    TEXT NOT NULL DEFAULT ''
);
`

// CatalogStore implementa ports.CatalogCache usando SQLite (pure Go, sin CGo).
type CatalogStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewCatalogStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewCatalogStore(path string) (*CatalogStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewCatalogStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewCatalogStore: apply schema: %w", err)
	}

	return &CatalogStore{db: db}, nil
}

// GetSports devuelve el catálogo de deportes si existe y es más reciente
// que maxAge. El segundo valor indica hit/miss.
func (s *CatalogStore) GetSports(ctx context.Context, maxAge time.Duration) (domain.SportsCatalog, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetchedAt, credits, ok, err := s.meta(ctx, "sports")
	if err != nil || !ok || time.Since(fetchedAt) > maxAge {
		return domain.SportsCatalog{}, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, title, grp, active FROM sports ORDER BY position`)
	if err != nil {
		return domain.SportsCatalog{}, false, fmt.Errorf("storage.GetSports: query: %w", err)
	}
	defer rows.Close()

	var sports []domain.Sport
	for rows.Next() {
		var sp domain.Sport
		if err := rows.Scan(&sp.Key, &sp.Title, &sp.Group, &sp.Active); err != nil {
			return domain.SportsCatalog{}, false, fmt.Errorf("storage.GetSports: scan: %w", err)
		}
		sports = append(sports, sp)
	}
	if err := rows.Err(); err != nil {
		return domain.SportsCatalog{}, false, fmt.Errorf("storage.GetSports: rows: %w", err)
	}

	return domain.SportsCatalog{Sports: sports, RemainingCredits: credits}, true, nil
}

// PutSports reemplaza el catálogo de deportes completo.
func (s *CatalogStore) PutSports(ctx context.Context, catalog domain.SportsCatalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.PutSports: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sports`); err != nil {
		return fmt.Errorf("storage.PutSports: clear: %w", err)
	}
	for i, sp := range catalog.Sports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sports (key, title, grp, active, position) VALUES (?, ?, ?, ?, ?)`,
			sp.Key, sp.Title, sp.Group, sp.Active, i,
		); err != nil {
			return fmt.Errorf("storage.PutSports: insert %q: %w", sp.Key, err)
		}
	}

	if err := upsertMeta(ctx, tx, "sports", catalog.RemainingCredits); err != nil {
		return fmt.Errorf("storage.PutSports: meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.PutSports: commit: %w", err)
	}
	return nil
}

// GetBookmakers devuelve el catálogo de casas si existe y es fresco.
func (s *CatalogStore) GetBookmakers(ctx context.Context, maxAge time.Duration) ([]domain.Bookmaker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetchedAt, _, ok, err := s.meta(ctx, "bookmakers")
	if err != nil || !ok || time.Since(fetchedAt) > maxAge {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name FROM bookmakers ORDER BY position`)
	if err != nil {
		return nil, false, fmt.Errorf("storage.GetBookmakers: query: %w", err)
	}
	defer rows.Close()

	var bms []domain.Bookmaker
	for rows.Next() {
		var bm domain.Bookmaker
		if err := rows.Scan(&bm.Key, &bm.Name); err != nil {
			return nil, false, fmt.Errorf("storage.GetBookmakers: scan: %w", err)
		}
		bms = append(bms, bm)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("storage.GetBookmakers: rows: %w", err)
	}
	return bms, true, nil
}

// PutBookmakers reemplaza el catálogo de casas completo.
func (s *CatalogStore) PutBookmakers(ctx context.Context, bookmakers []domain.Bookmaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.PutBookmakers: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookmakers`); err != nil {
		return fmt.Errorf("storage.PutBookmakers: clear: %w", err)
	}
	for i, bm := range bookmakers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bookmakers (key, name, position) VALUES (?, ?, ?)`,
			bm.Key, bm.Name, i,
		); err != nil {
			return fmt.Errorf("storage.PutBookmakers: insert %q: %w", bm.Key, err)
		}
	}

	if err := upsertMeta(ctx, tx, "bookmakers", ""); err != nil {
		return fmt.Errorf("storage.PutBookmakers: meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.PutBookmakers: commit: %w", err)
	}
	return nil
}

// Close cierra la base de datos.
func (s *CatalogStore) Close() error {
	return s.db.Close()
}

// meta lee fetched_at y credits para un catálogo. ok=false si nunca se guardó.
func (s *CatalogStore) meta(ctx context.Context, name string) (fetchedAt time.Time, credits string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, credits FROM catalog_meta WHERE name = ?`, name)
	switch err = row.Scan(&fetchedAt, &credits); err {
	case nil:
		return fetchedAt, credits, true, nil
	case sql.ErrNoRows:
		return time.Time{}, "", false, nil
	default:
		return time.Time{}, "", false, fmt.Errorf("storage.meta %q: %w", name, err)
	}
}

func upsertMeta(ctx context.Context, tx *sql.Tx, name, credits string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_meta (name, fetched_at, credits) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			credits    = excluded.credits`,
		name, time.Now().UTC(), credits,
	)
	return err
}
