package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/absorbot/internal/domain"
)

// AbsorptionEventStore implements domain.AbsorptionEventStore using PostgreSQL.
type AbsorptionEventStore struct {
	pool *pgxpool.Pool
}

// NewAbsorptionEventStore creates a new AbsorptionEventStore backed by the
// given connection pool.
func NewAbsorptionEventStore(pool *pgxpool.Pool) *AbsorptionEventStore {
	return &AbsorptionEventStore{pool: pool}
}

const absorptionSelectCols = `id, asset_id, strategy_name,
	bid_volume, ask_volume, bid_prices, ask_prices,
	trade_side, trade_size, created_at`

// Insert stores a new absorption event. bid_prices and ask_prices are kept
// as float arrays, in the discovery order the calculator produced.
func (s *AbsorptionEventStore) Insert(ctx context.Context, evt domain.AbsorptionEvent) error {
	const query = `
		INSERT INTO absorption_events (
			id, asset_id, strategy_name,
			bid_volume, ask_volume, bid_prices, ask_prices,
			trade_side, trade_size, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10
		)`

	// trade_side is NULL when the event did not result in an entry.
	var side *string
	if evt.Side != "" {
		v := string(evt.Side)
		side = &v
	}

	_, err := s.pool.Exec(ctx, query,
		evt.ID, evt.AssetID, evt.Strategy,
		evt.BidVolume, evt.AskVolume, evt.BidPrices, evt.AskPrices,
		side, evt.TradeSize, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert absorption event %s: %w", evt.ID, err)
	}
	return nil
}

func scanAbsorptionRows(rows pgx.Rows) ([]domain.AbsorptionEvent, error) {
	var evts []domain.AbsorptionEvent
	for rows.Next() {
		var evt domain.AbsorptionEvent
		var side *string

		if err := rows.Scan(
			&evt.ID, &evt.AssetID, &evt.Strategy,
			&evt.BidVolume, &evt.AskVolume, &evt.BidPrices, &evt.AskPrices,
			&side, &evt.TradeSize, &evt.CreatedAt,
		); err != nil {
			return nil, err
		}
		if side != nil {
			evt.Side = domain.OrderSide(*side)
		}
		evts = append(evts, evt)
	}
	return evts, rows.Err()
}

// ListRecent returns the most recent absorption events across all assets,
// newest first.
func (s *AbsorptionEventStore) ListRecent(ctx context.Context, limit int) ([]domain.AbsorptionEvent, error) {
	query := `SELECT ` + absorptionSelectCols + ` FROM absorption_events ORDER BY created_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent absorption events: %w", err)
	}
	defer rows.Close()

	evts, err := scanAbsorptionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan absorption events: %w", err)
	}
	return evts, nil
}

// ListByAsset returns absorption events for one asset with pagination and
// optional time filtering, newest first.
func (s *AbsorptionEventStore) ListByAsset(ctx context.Context, assetID string, opts domain.ListOpts) ([]domain.AbsorptionEvent, error) {
	query := `SELECT ` + absorptionSelectCols + ` FROM absorption_events WHERE asset_id = $1`
	args := []any{assetID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list absorption events by asset: %w", err)
	}
	defer rows.Close()

	evts, err := scanAbsorptionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan absorption events by asset: %w", err)
	}
	return evts, nil
}

// ListBefore returns all absorption events recorded strictly before the
// given cutoff time, oldest first. Used by the archiver.
func (s *AbsorptionEventStore) ListBefore(ctx context.Context, before time.Time) ([]domain.AbsorptionEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+absorptionSelectCols+` FROM absorption_events
		 WHERE created_at < $1
		 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list absorption events before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	evts, err := scanAbsorptionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan absorption events before cutoff: %w", err)
	}
	return evts, nil
}

// Compile-time interface check.
var _ domain.AbsorptionEventStore = (*AbsorptionEventStore)(nil)
