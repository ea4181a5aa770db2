// Package warehouse is the clickhouse target: counting, purging, and loading
// one window's worth of staged files into the destination table
package warehouse

import (
	"context"
	"fmt"
	"strings"

	perr "slipway/internal/platform/errors"
	"slipway/internal/platform/logger"
	"slipway/internal/platform/store"
	"slipway/internal/services/pipeline/domain"
)

// Config holds the warehouse side of the flow
type Config struct {
	// S3 settings the warehouse uses to read staged files directly
	Endpoint  string
	AccessKey string
	SecretKey string

	// Format of staged files as clickhouse understands it
	Format string
}

// Warehouse implements domain.TargetWarehouse over a clickhouse connection
type Warehouse struct {
	ch  store.Clickhouse
	cfg Config
}

// New constructs the warehouse adapter
func New(ch store.Clickhouse, cfg Config) *Warehouse {
	if ch == nil {
		panic("warehouse.New requires a clickhouse connection")
	}
	if cfg.Format == "" {
		cfg.Format = "JSONEachRow"
	}
	return &Warehouse{ch: ch, cfg: cfg}
}

// table maps the record's target category "db.schema.table" onto the
// clickhouse "db.table" addressing scheme
func table(rec *domain.Record) (string, error) {
	parts := strings.Split(rec.TargetCategory, ".")
	if len(parts) != 3 {
		return "", perr.Configf("target category %q is not db.schema.table", rec.TargetCategory)
	}
	return fmt.Sprintf("%s.%s", parts[0], parts[2]), nil
}

// Count implements domain.TargetWarehouse. Loaded rows carry the staged file
// path in _file_path, so a prefix match isolates one window
func (w *Warehouse) Count(ctx context.Context, rec *domain.Record) (int64, error) {
	tbl, err := table(rec)
	if err != nil {
		return 0, err
	}

	n, err := w.ch.ScalarUInt64(ctx,
		fmt.Sprintf(`SELECT count() FROM %s WHERE startsWith(_file_path, ?)`, tbl),
		rec.TargetSubcategory,
	)
	if err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeUnavailable, "target count failed")
	}
	return int64(n), nil
}

// Delete implements domain.TargetWarehouse, purging the window's rows so a
// reload never double counts. Mutations are async in clickhouse; the audit
// settle loop absorbs the lag
func (w *Warehouse) Delete(ctx context.Context, rec *domain.Record) error {
	tbl, err := table(rec)
	if err != nil {
		return err
	}

	err = w.ch.Exec(ctx,
		fmt.Sprintf(`ALTER TABLE %s DELETE WHERE startsWith(_file_path, ?)`, tbl),
		rec.TargetSubcategory,
	)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "target delete failed")
	}

	logger.C(ctx).Info().
		Str("table", tbl).
		Str("prefix", rec.TargetSubcategory).
		Msg("target window purged")
	return nil
}

// Load implements domain.TargetWarehouse, reading the staged objects server
// side through the s3 table function
func (w *Warehouse) Load(ctx context.Context, rec *domain.Record) error {
	tbl, err := table(rec)
	if err != nil {
		return err
	}

	src := w.stageGlob(rec)
	stmt := fmt.Sprintf(
		`INSERT INTO %s SELECT *, _path AS _file_path FROM s3(?, ?, ?, ?)`,
		tbl,
	)
	err = w.ch.Exec(ctx, stmt, src, w.cfg.AccessKey, w.cfg.SecretKey, w.cfg.Format)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "target load failed")
	}

	logger.C(ctx).Info().
		Str("table", tbl).
		Str("source", src).
		Msg("target window loaded")
	return nil
}

// stageGlob rewrites the stage uri into the http url glob the s3 table
// function wants, e.g. http://endpoint/bucket/prefix/**
func (w *Warehouse) stageGlob(rec *domain.Record) string {
	uri := strings.TrimPrefix(rec.StageSubcategory, "s3://")
	return fmt.Sprintf("%s/%s**", strings.TrimSuffix(w.cfg.Endpoint, "/"), uri)
}
