package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-voucher/internal/voucher"
)

const (
	selectColumns = `SELECT id::text, type, details, active, creation_date, expiration_date FROM vouchers`

	upsertVoucher = `INSERT INTO vouchers (id, type, details, active, creation_date, expiration_date)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    type = EXCLUDED.type,
    details = EXCLUDED.details,
    active = EXCLUDED.active,
    creation_date = EXCLUDED.creation_date,
    expiration_date = EXCLUDED.expiration_date,
    updated_at = NOW()
RETURNING id::text, type, details, active, creation_date, expiration_date`
)

// Postgres stores vouchers in the vouchers table.
type Postgres struct {
	Pool   *pgxpool.Pool
	Logger *zerolog.Logger
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

// FindByID implements voucher.Store. Ids that are not UUIDs cannot exist and
// report voucher.ErrNotFound.
func (p *Postgres) FindByID(ctx context.Context, id string) (voucher.Voucher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return voucher.Voucher{}, voucher.ErrNotFound
	}
	v, err := scanVoucher(p.Pool.QueryRow(ctx, selectColumns+` WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return voucher.Voucher{}, voucher.ErrNotFound
	}
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("select voucher: %w", err)
	}
	return v, nil
}

// FindAll implements voucher.Store, ordered by insertion time. Rows whose
// type or details no longer decode are logged and left out of the listing.
func (p *Postgres) FindAll(ctx context.Context) ([]voucher.Voucher, error) {
	rows, err := p.Pool.Query(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select vouchers: %w", err)
	}
	defer rows.Close()
	out := make([]voucher.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if errors.Is(err, voucher.ErrMalformedDetails) {
			if p.Logger != nil {
				p.Logger.Warn().Err(err).Msg("skipping malformed voucher row")
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vouchers: %w", err)
	}
	return out, nil
}

// Save implements voucher.Store as an upsert keyed by id.
func (p *Postgres) Save(ctx context.Context, v voucher.Voucher) (voucher.Voucher, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	} else if _, err := uuid.Parse(v.ID); err != nil {
		return voucher.Voucher{}, fmt.Errorf("voucher id %q is not a uuid: %w", v.ID, err)
	}
	details, err := voucher.EncodeDetails(v.Details)
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("encode details: %w", err)
	}
	saved, err := scanVoucher(p.Pool.QueryRow(ctx, upsertVoucher,
		v.ID,
		string(v.Variant),
		[]byte(details),
		v.Active,
		toPgDate(v.CreationDate),
		toPgDate(v.ExpirationDate),
	))
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("upsert voucher: %w", err)
	}
	return saved, nil
}

// DeleteByID implements voucher.Store.
func (p *Postgres) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := p.Pool.Exec(ctx, `DELETE FROM vouchers WHERE id = $1::uuid`, id); err != nil {
		return fmt.Errorf("delete voucher: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func scanVoucher(row pgx.Row) (voucher.Voucher, error) {
	var (
		id, kind             string
		details              []byte
		active               bool
		creation, expiration pgtype.Date
	)
	if err := row.Scan(&id, &kind, &details, &active, &creation, &expiration); err != nil {
		return voucher.Voucher{}, err
	}
	variant, err := voucher.ParseVariant(kind)
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("voucher %s: %w", id, err)
	}
	d, err := voucher.DecodeDetails(variant, details)
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("voucher %s: %w", id, err)
	}
	return voucher.Voucher{
		ID:             id,
		Variant:        variant,
		Details:        d,
		Active:         active,
		CreationDate:   fromPgDate(creation),
		ExpirationDate: fromPgDate(expiration),
	}, nil
}

func toPgDate(d voucher.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func fromPgDate(d pgtype.Date) voucher.Date {
	if !d.Valid {
		return voucher.Date{}
	}
	return voucher.DateOf(d.Time)
}
