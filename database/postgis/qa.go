package postgis

import (
	"context"
	"fmt"

	"github.com/berlinopendata/poisync/database"
	"github.com/berlinopendata/poisync/mapping"
)

func (spec *TableSpec) countSQL(where string) string {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, spec.FullName())
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

func (spec *TableSpec) duplicateIDsSQL() string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM (SELECT "%s" FROM %s GROUP BY "%s" HAVING COUNT(*) > 1) AS dup`,
		spec.IDColumn, spec.FullName(), spec.IDColumn)
}

func (spec *TableSpec) perDistrictSQL() string {
	return fmt.Sprintf(`SELECT COALESCE(district, ''), COUNT(*) AS n FROM %s GROUP BY district ORDER BY n DESC, 1`,
		spec.FullName())
}

// Report queries the QA counts of a loaded table.
func (pg *PostGIS) Report(ctx context.Context, table *mapping.Table) (*database.Report, error) {
	spec := NewTableSpec(pg.Schema, table)
	r := &database.Report{Table: spec.FullName()}

	for _, c := range []struct {
		sql string
		dst *int64
	}{
		{spec.countSQL(""), &r.Total},
		{spec.countSQL("district_id IS NULL"), &r.NoDistrictID},
		{spec.countSQL("latitude IS NULL OR longitude IS NULL"), &r.NoCoordinates},
		{spec.countSQL("neighborhood IS NULL OR neighborhood = ''"), &r.NoNeighborhood},
		{spec.duplicateIDsSQL(), &r.DuplicateIDs},
	} {
		if err := pg.Db.QueryRowContext(ctx, c.sql).Scan(c.dst); err != nil {
			return nil, &SQLError{c.sql, err}
		}
	}

	q := spec.perDistrictSQL()
	rows, err := pg.Db.QueryContext(ctx, q)
	if err != nil {
		return nil, &SQLError{q, err}
	}
	defer rows.Close()
	for rows.Next() {
		var d database.DistrictCount
		if err := rows.Scan(&d.District, &d.Count); err != nil {
			return nil, &SQLError{q, err}
		}
		r.PerDistrict = append(r.PerDistrict, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &SQLError{q, err}
	}
	return r, nil
}
