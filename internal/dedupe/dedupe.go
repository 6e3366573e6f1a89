// Package dedupe keeps a ledger of ALT text already written to the CMS so
// repeated update runs do not rewrite the same descriptions.
package dedupe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Tracker records description updates per asset and locale
type Tracker struct {
	db *sql.DB
}

// Entry is one recorded update
type Entry struct {
	AssetUID    string
	Locale      string
	AltText     string
	RunID       string
	UpdateCount int
}

// NewTracker creates a tracker and its table
func NewTracker(ctx context.Context, db *sql.DB) (*Tracker, error) {
	tracker := &Tracker{db: db}
	if err := tracker.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}
	return tracker, nil
}

func (t *Tracker) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS alt_update_ledger (
			asset_uid TEXT NOT NULL,
			locale TEXT NOT NULL,
			alt_text TEXT NOT NULL,
			run_id TEXT,
			first_updated_at TIMESTAMPTZ DEFAULT NOW(),
			last_updated_at TIMESTAMPTZ DEFAULT NOW(),
			update_count INTEGER DEFAULT 1,
			PRIMARY KEY (asset_uid, locale)
		)
	`
	if _, err := t.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create alt_update_ledger table: %w", err)
	}

	log.Debug().Msg("alt_update_ledger table ready")
	return nil
}

// Record stores the ALT text written for an asset locale
func (t *Tracker) Record(ctx context.Context, assetUID, locale, altText, runID string) error {
	query := `
		INSERT INTO alt_update_ledger (asset_uid, locale, alt_text, run_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asset_uid, locale) DO UPDATE
		SET alt_text = EXCLUDED.alt_text,
		    run_id = EXCLUDED.run_id,
		    last_updated_at = NOW(),
		    update_count = alt_update_ledger.update_count + 1
	`
	if _, err := t.db.ExecContext(ctx, query, assetUID, locale, altText, runID); err != nil {
		return fmt.Errorf("failed to record update: %w", err)
	}
	return nil
}

// Has reports whether an update was recorded for the asset locale
func (t *Tracker) Has(ctx context.Context, assetUID, locale string) (bool, error) {
	_, err := t.Get(ctx, assetUID, locale)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the recorded update, or sql.ErrNoRows
func (t *Tracker) Get(ctx context.Context, assetUID, locale string) (*Entry, error) {
	query := `
		SELECT asset_uid, locale, alt_text, COALESCE(run_id, ''), update_count
		FROM alt_update_ledger
		WHERE asset_uid = $1 AND locale = $2
	`
	var e Entry
	err := t.db.QueryRowContext(ctx, query, assetUID, locale).Scan(&e.AssetUID, &e.Locale, &e.AltText, &e.RunID, &e.UpdateCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return &e, nil
}
