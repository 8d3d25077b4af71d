package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	pq "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/berlinopendata/poisync/database"
	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/logging"
	"github.com/berlinopendata/poisync/mapping"
	"github.com/berlinopendata/poisync/reconcile"
)

var log = logging.NewLogger("PostGIS")

type SQLError struct {
	query         string
	originalError error
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("SQL Error: %s in query %s", e.originalError.Error(), e.query)
}

type SQLInsertError struct {
	SQLError
	data interface{}
}

func (e *SQLInsertError) Error() string {
	return fmt.Sprintf("SQL Error: %s in query %s (%+v)", e.originalError.Error(), e.query, e.data)
}

type PostGIS struct {
	Db     *sql.DB
	Params string
	Config database.Config
	Schema string
}

func (pg *PostGIS) Open() error {
	var err error

	pg.Db, err = sql.Open("postgres", pg.Params)
	if err != nil {
		return err
	}
	// check that the connection actually works
	err = pg.Db.Ping()
	if err != nil {
		return err
	}
	return nil
}

func (pg *PostGIS) Districts(ctx context.Context) ([]reconcile.Entry, error) {
	sql := districtsSQL(pg.Schema)
	rows, err := pg.Db.QueryContext(ctx, sql)
	if err != nil {
		return nil, &SQLError{sql, err}
	}
	defer rows.Close()

	var entries []reconcile.Entry
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, &SQLError{sql, err}
		}
		entries = append(entries, reconcile.Entry{ID: id, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, &SQLError{sql, err}
	}
	return entries, nil
}

// Replace truncates the table and copies all records in one
// transaction. The table is created if it does not exist.
func (pg *PostGIS) Replace(ctx context.Context, table *mapping.Table, recs []element.Record) error {
	spec := NewTableSpec(pg.Schema, table)
	defer log.StopStep(log.StartStep(fmt.Sprintf("Replacing %s", spec.FullName())))

	tt := &replaceTx{Pg: pg, Spec: spec}
	if err := tt.Begin(ctx); err != nil {
		return err
	}
	defer tt.Rollback()

	if err := tt.Prepare(ctx); err != nil {
		return err
	}
	if err := tt.Copy(ctx, recs); err != nil {
		return err
	}
	if err := tt.UpdateGeometry(ctx); err != nil {
		return err
	}
	if err := tt.Commit(); err != nil {
		return errors.Wrapf(err, "committing %s", spec.FullName())
	}
	log.Printf("inserted %d rows into %s", len(recs), spec.FullName())
	return nil
}

func (pg *PostGIS) Close() error {
	return pg.Db.Close()
}

func New(conf database.Config) (database.DB, error) {
	db := &PostGIS{}
	db.Config = conf

	if strings.HasPrefix(db.Config.ConnectionParams, "postgis://") {
		db.Config.ConnectionParams = strings.Replace(
			db.Config.ConnectionParams,
			"postgis", "postgres", 1,
		)
	}

	params, err := pq.ParseURL(db.Config.ConnectionParams)
	if err != nil {
		return nil, errors.Wrap(err, "parsing connection")
	}
	params = disableDefaultSslOnLocalhost(params)

	db.Schema = conf.Schema
	if db.Schema == "" {
		db.Schema = "public"
	}

	db.Params = params
	err = db.Open()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// disableDefaultSslOnLocalhost adds sslmode=disable to the connection
// params for localhost connections, unless sslmode is set explicitly.
func disableDefaultSslOnLocalhost(params string) string {
	parts := strings.Fields(params)
	isLocalHost := false
	for _, p := range parts {
		if strings.HasPrefix(p, "sslmode=") {
			return params
		}
		if p == "host=localhost" || p == "host=127.0.0.1" {
			isLocalHost = true
		}
	}

	if !isLocalHost {
		return params
	}

	if _, ok := os.LookupEnv("PGSSLMODE"); ok {
		return params
	}

	return params + " sslmode=disable"
}

func init() {
	database.Register("postgres", New)
	database.Register("postgis", New)
}
