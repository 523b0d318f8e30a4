// Package filehashes implements the file_hashes repository on PostgreSQL.
package filehashes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/dbx"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/google/uuid"
)

const columns = `id, user_wallet, file_name, file_type, file_size, modified_at, sha256, sha1, sha512,
	simple_hash, tags, notes, ipfs_cid, blockchain_tx, is_registered, created_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func storeErr(op string, err error) error {
	return &records.StoreError{Op: op, Err: err}
}

// Insert adds a row. Duplicated digests are allowed.
func (r *PostgresRepository) Insert(ctx context.Context, rec *records.FileRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query := `
		INSERT INTO file_hashes (id, user_wallet, file_name, file_type, file_size, modified_at, sha256, sha1, sha512,
			simple_hash, tags, notes, ipfs_cid, blockchain_tx, is_registered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	var modified sql.NullTime
	if !rec.ModifiedAt.IsZero() {
		modified = sql.NullTime{Time: rec.ModifiedAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.OwnerAddress, rec.FileName, rec.FileType, rec.FileSize, modified,
		rec.SHA256, rec.SHA1, rec.SHA512, rec.SimpleHash,
		rec.Tags, rec.Notes, rec.IPFSCID, rec.BlockchainTx, rec.IsRegistered,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return storeErr("insert", err)
	}
	return nil
}

// buildPatch renders the SET clause of p. Placeholders start at $next.
func buildPatch(p records.Patch, next int) (string, []any) {
	var sets []string
	var args []any

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, next))
		args = append(args, v)
		next++
	}
	if p.IPFSCID != nil {
		add("ipfs_cid", *p.IPFSCID)
	}
	if p.BlockchainTx != nil {
		add("blockchain_tx", *p.BlockchainTx)
	}
	if p.IsRegistered != nil {
		add("is_registered", *p.IsRegistered)
	}
	if p.Tags != nil {
		add("tags", *p.Tags)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	return strings.Join(sets, ", "), args
}

func (r *PostgresRepository) update(ctx context.Context, op, where string, whereArgs []any, p records.Patch) (int64, error) {
	if p.Empty() {
		return 0, nil
	}
	set, args := buildPatch(p, len(whereArgs)+1)
	query := "UPDATE file_hashes SET " + set + " WHERE " + where

	res, err := r.db.ExecContext(ctx, query, append(whereArgs, args...)...)
	if err != nil {
		return 0, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

// UpdateByDigest patches every row with the given sha256.
func (r *PostgresRepository) UpdateByDigest(ctx context.Context, sha256 string, p records.Patch) (int64, error) {
	return r.update(ctx, "update", "sha256 = $1", []any{sha256}, p)
}

// UpdateOwnedByDigest is UpdateByDigest restricted to owner's rows.
func (r *PostgresRepository) UpdateOwnedByDigest(ctx context.Context, owner, sha256 string, p records.Patch) (int64, error) {
	return r.update(ctx, "update", "sha256 = $1 AND lower(user_wallet) = lower($2)", []any{sha256, owner}, p)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM file_hashes WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*records.FileRecord, error) {
	var (
		rec      records.FileRecord
		modified sql.NullTime
		tags     sql.NullString
		notes    sql.NullString
		cid      sql.NullString
		tx       sql.NullString
	)
	err := s.Scan(&rec.ID, &rec.OwnerAddress, &rec.FileName, &rec.FileType, &rec.FileSize, &modified,
		&rec.SHA256, &rec.SHA1, &rec.SHA512, &rec.SimpleHash, &tags, &notes, &cid, &tx,
		&rec.IsRegistered, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if modified.Valid {
		rec.ModifiedAt = modified.Time
	}
	rec.Tags = nullable(tags)
	rec.Notes = nullable(notes)
	rec.IPFSCID = nullable(cid)
	rec.BlockchainTx = nullable(tx)
	return &rec, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return records.Ptr(s.String)
}

func (r *PostgresRepository) list(ctx context.Context, op, query string, args ...any) ([]*records.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	result := make([]*records.FileRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*records.FileRecord, error) {
	query := `SELECT ` + columns + ` FROM file_hashes WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	return rec, nil
}

func (r *PostgresRepository) QueryByOwner(ctx context.Context, owner string) ([]*records.FileRecord, error) {
	query := `SELECT ` + columns + ` FROM file_hashes WHERE lower(user_wallet) = lower($1) ORDER BY created_at DESC`
	return r.list(ctx, "query by owner", query, owner)
}

// QueryByDigestAny ORs the non-empty digests. With none given it returns
// an empty list without touching the database.
func (r *PostgresRepository) QueryByDigestAny(ctx context.Context, sha256, sha1, sha512 string) ([]*records.FileRecord, error) {
	var conds []string
	var args []any
	for _, c := range []struct{ col, v string }{{"sha256", sha256}, {"sha1", sha1}, {"sha512", sha512}} {
		if c.v == "" {
			continue
		}
		args = append(args, c.v)
		conds = append(conds, fmt.Sprintf("%s = $%d", c.col, len(args)))
	}
	if len(conds) == 0 {
		return []*records.FileRecord{}, nil
	}

	query := `SELECT ` + columns + ` FROM file_hashes WHERE ` + strings.Join(conds, " OR ") + ` ORDER BY created_at DESC`
	return r.list(ctx, "query by digest", query, args...)
}

func (r *PostgresRepository) QueryAll(ctx context.Context) ([]*records.FileRecord, error) {
	return r.list(ctx, "query all", `SELECT `+columns+` FROM file_hashes ORDER BY created_at DESC`)
}

func (r *PostgresRepository) QueryByCID(ctx context.Context, cid string) ([]*records.FileRecord, error) {
	query := `SELECT ` + columns + ` FROM file_hashes WHERE ipfs_cid = $1 ORDER BY created_at DESC`
	return r.list(ctx, "query by cid", query, cid)
}

func likeArg(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Search applies f with case-insensitive substring matching.
func (r *PostgresRepository) Search(ctx context.Context, f records.Filter) ([]*records.FileRecord, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, c := range []struct{ col, v string }{
		{"file_name", f.FileName},
		{"coalesce(tags, '')", f.Tag},
		{"user_wallet", f.Owner},
		{"coalesce(blockchain_tx, '')", f.BlockchainTx},
		{"sha256", f.SHA256},
	} {
		if c.v != "" {
			conds = append(conds, c.col+" ILIKE "+arg(likeArg(c.v)))
		}
	}
	if f.RegisteredOnly {
		conds = append(conds, "is_registered")
	}
	if f.From != nil {
		conds = append(conds, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "created_at <= "+arg(*f.To))
	}

	query := `SELECT ` + columns + ` FROM file_hashes`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	return r.list(ctx, "search", query, args...)
}

func (r *PostgresRepository) Stats(ctx context.Context, owner string) (records.Stats, error) {
	query := `
		SELECT count(*),
			count(*) FILTER (WHERE is_registered),
			count(*) FILTER (WHERE coalesce(ipfs_cid, '') <> ''),
			coalesce(sum(file_size), 0)
		FROM file_hashes WHERE lower(user_wallet) = lower($1)
	`
	var st records.Stats
	if err := r.db.QueryRowContext(ctx, query, owner).Scan(&st.Total, &st.Registered, &st.Pinned, &st.TotalBytes); err != nil {
		return records.Stats{}, storeErr("stats", err)
	}
	return st, nil
}
