package postgis

import (
	"context"
	"database/sql"

	pq "github.com/lib/pq"

	"github.com/berlinopendata/poisync/element"
)

// replaceTx replaces all rows of one table within a single transaction.
type replaceTx struct {
	Pg   *PostGIS
	Tx   *sql.Tx
	Spec *TableSpec
}

func (tt *replaceTx) Begin(ctx context.Context) error {
	tx, err := tt.Pg.Db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	tt.Tx = tx
	return nil
}

// Prepare creates schema, table, foreign key and geometry column if
// missing and truncates the table.
func (tt *replaceTx) Prepare(ctx context.Context) error {
	for _, sql := range []string{
		tt.Spec.CreateSchemaSQL(),
		tt.Spec.CreateTableSQL(),
		tt.Spec.ForeignKeySQL(),
		tt.Spec.AddGeometrySQL(),
		tt.Spec.TruncateSQL(),
	} {
		if _, err := tt.Tx.ExecContext(ctx, sql); err != nil {
			return &SQLError{sql, err}
		}
	}
	return nil
}

// Copy inserts all records with COPY FROM STDIN.
func (tt *replaceTx) Copy(ctx context.Context, recs []element.Record) error {
	copySQL := pq.CopyInSchema(tt.Spec.Schema, tt.Spec.Name, tt.Spec.ColumnNames()...)
	stmt, err := tt.Tx.PrepareContext(ctx, copySQL)
	if err != nil {
		return &SQLError{copySQL, err}
	}
	for _, rec := range recs {
		row := Row(rec)
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return &SQLInsertError{SQLError{copySQL, err}, row}
		}
	}
	// flush COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return &SQLError{copySQL, err}
	}
	return stmt.Close()
}

func (tt *replaceTx) UpdateGeometry(ctx context.Context) error {
	sql := tt.Spec.UpdateGeometrySQL()
	if _, err := tt.Tx.ExecContext(ctx, sql); err != nil {
		return &SQLError{sql, err}
	}
	return nil
}

func (tt *replaceTx) Commit() error {
	err := tt.Tx.Commit()
	if err != nil {
		return err
	}
	tt.Tx = nil
	return nil
}

func (tt *replaceTx) Rollback() {
	rollbackIfTx(&tt.Tx)
}

// Row returns the column values of a record in the order of
// TableSpec.Columns. Empty fields are NULL, with the exception of
// name, address and contact fields that are never NULL.
func Row(rec element.Record) []interface{} {
	row := []interface{}{
		rec.ID,
		nullString(rec.DistrictID),
		rec.Name,
		rec.Address,
		rec.PostalCode,
		rec.Phone,
		rec.Email,
		nil, // coordinates
		nil, // latitude
		nil, // longitude
		nullString(rec.Neighborhood),
		nullString(rec.District),
	}
	if wkt, ok := rec.Coordinates(); ok {
		row[7] = wkt
		row[8] = element.FormatFloat(rec.Point.Lat)
		row[9] = element.FormatFloat(rec.Point.Long)
	}
	return row
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func rollbackIfTx(tx **sql.Tx) {
	if *tx != nil {
		if err := (*tx).Rollback(); err != nil {
			log.Errorf("rollback failed: %s", err)
		}
		*tx = nil
	}
}
