// Package store records computed ROC curves in a SQL database so curves
// from different runs can be listed and compared. A postgres:// DSN selects
// PostgreSQL, anything else is a SQLite file path.
package store

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mchmarny/rocplot/pkg/roc"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DataFileName is the default SQLite file name.
	DataFileName = "rocplot.db"

	listLimitDefault = 100

	insertCurveSQL = `INSERT INTO curve (name, source, bins, auc, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	insertPointSQL = `INSERT INTO curve_point (curve_id, idx, threshold, sig_eff, bkg_eff, sig_err, bkg_err)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectCurvesSQL = `SELECT
			c.id, c.name, c.source, c.bins, c.auc, c.created_at,
			(SELECT COUNT(*) FROM curve_point p WHERE p.curve_id = c.id) AS points
		FROM curve c
		WHERE c.name LIKE ?
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?
	`

	selectCurveSQL = `SELECT name, source, bins FROM curve WHERE id = ?`

	selectPointsSQL = `SELECT threshold, sig_eff, bkg_eff, sig_err, bkg_err
		FROM curve_point
		WHERE curve_id = ?
		ORDER BY idx
	`
)

var (
	//go:embed sql/*
	f embed.FS

	ErrNotFound         = errors.New("curve not found")
	errDBNotInitialized = errors.New("database not initialized")
)

// CurveSummary is a stored curve without its points.
type CurveSummary struct {
	ID          int64 `json:"id" yaml:"id"`
	roc.Summary `yaml:",inline"`
	Created     time.Time `json:"created" yaml:"created"`
}

// Store is a curve database.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Driver returns the database/sql driver name for a DSN.
func Driver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open connects to the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database path not specified")
	}

	driver := Driver(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}

	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	slog.Debug("applying db schema", "driver", s.driver)
	b, err := f.ReadFile("sql/" + s.driver + ".sql")
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return errors.Wrapf(err, "failed to create %s database schema", s.driver)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders into the $n form PostgreSQL expects.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SaveCurve stores c and its points in one transaction and returns the new id.
func (s *Store) SaveCurve(ctx context.Context, c *roc.Curve) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errDBNotInitialized
	}
	if c == nil || c.Name == "" {
		return 0, errors.New("named curve required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(insertCurveSQL),
		c.Name, c.Source, c.Bins, roc.AUC(c), s.now().UTC().Unix()).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert curve: %s", c.Name)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertPointSQL))
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare point insert statement")
	}
	defer stmt.Close()

	for i, p := range c.Points {
		if _, err := stmt.ExecContext(ctx, id, i, p.Threshold, p.SigEff, p.BkgEff, p.SigErr, p.BkgErr); err != nil {
			return 0, errors.Wrapf(err, "failed to insert point %d of curve: %s", i, c.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit curve")
	}

	slog.Debug("curve saved", "id", id, "name", c.Name, "points", len(c.Points))
	return id, nil
}

// ListCurves returns stored curves whose name contains like, newest first.
func (s *Store) ListCurves(ctx context.Context, like string, limit int) ([]*CurveSummary, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = listLimitDefault
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectCurvesSQL), "%"+like+"%", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute curve list query")
	}
	defer rows.Close()

	list := make([]*CurveSummary, 0)
	for rows.Next() {
		c := &CurveSummary{}
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Source, &c.Bins, &c.AUC, &created, &c.Points); err != nil {
			return nil, errors.Wrap(err, "failed to scan curve row")
		}
		c.Created = time.Unix(created, 0).UTC()
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate curve rows")
	}

	return list, nil
}

// GetCurve returns the stored curve with its points in index order.
func (s *Store) GetCurve(ctx context.Context, id int64) (*roc.Curve, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	c := &roc.Curve{}
	err := s.db.QueryRowContext(ctx, s.rebind(selectCurveSQL), id).Scan(&c.Name, &c.Source, &c.Bins)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "id: %d", id)
		}
		return nil, errors.Wrapf(err, "failed to select curve: %d", id)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectPointsSQL), id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select points of curve: %d", id)
	}
	defer rows.Close()

	for rows.Next() {
		var p roc.Point
		if err := rows.Scan(&p.Threshold, &p.SigEff, &p.BkgEff, &p.SigErr, &p.BkgErr); err != nil {
			return nil, errors.Wrap(err, "failed to scan point row")
		}
		c.Points = append(c.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate point rows")
	}

	return c, nil
}
