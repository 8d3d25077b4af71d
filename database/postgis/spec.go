package postgis

import (
	"fmt"
	"strings"

	"github.com/berlinopendata/poisync/mapping"
)

// Srid of the geom column and all coordinates.
const Srid = 4326

// ColumnSpec is a column of the point table. The ID column is named
// after the table configuration.
type ColumnSpec struct {
	Name string
	Type string
}

func (col *ColumnSpec) AsSQL() string {
	return fmt.Sprintf("\"%s\" %s", col.Name, col.Type)
}

// TableSpec builds all statements for a point table.
type TableSpec struct {
	Schema   string
	Name     string
	IDColumn string
	Columns  []ColumnSpec
}

func NewTableSpec(schema string, t *mapping.Table) *TableSpec {
	return &TableSpec{
		Schema:   schema,
		Name:     t.Name,
		IDColumn: t.IDColumn,
		Columns: []ColumnSpec{
			{t.IDColumn, "VARCHAR(20) PRIMARY KEY"},
			{"district_id", "VARCHAR(20)"},
			{"name", "VARCHAR(200)"},
			{"address", "VARCHAR(200)"},
			{"postal_code", "VARCHAR(10)"},
			{"phone_number", "VARCHAR(50)"},
			{"email", "VARCHAR(100)"},
			{"coordinates", "VARCHAR(200)"},
			{"latitude", "DECIMAL(9,6)"},
			{"longitude", "DECIMAL(9,6)"},
			{"neighborhood", "VARCHAR(100)"},
			{"district", "VARCHAR(100)"},
		},
	}
}

func (spec *TableSpec) FullName() string {
	return fmt.Sprintf(`"%s"."%s"`, spec.Schema, spec.Name)
}

func (spec *TableSpec) CreateSchemaSQL() string {
	return fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, spec.Schema)
}

func (spec *TableSpec) CreateTableSQL() string {
	cols := []string{}
	for _, col := range spec.Columns {
		cols = append(cols, col.AsSQL())
	}
	columnSQL := strings.Join(cols, ",\n")
	return fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            %s
        );`,
		spec.FullName(),
		columnSQL,
	)
}

func (spec *TableSpec) foreignKeyName() string {
	return spec.Name + "_district_id_fk"
}

// ForeignKeySQL adds the district_id constraint if it does not exist.
func (spec *TableSpec) ForeignKeySQL() string {
	return fmt.Sprintf(`
    DO $$
    BEGIN
        IF NOT EXISTS (
            SELECT 1 FROM information_schema.table_constraints
            WHERE constraint_name = '%s'
                AND table_schema = '%s'
                AND table_name = '%s'
        ) THEN
            ALTER TABLE %s
            ADD CONSTRAINT "%s"
            FOREIGN KEY (district_id)
            REFERENCES "%s"."districts"(district_id)
            ON DELETE RESTRICT ON UPDATE CASCADE;
        END IF;
    END$$;`,
		spec.foreignKeyName(), spec.Schema, spec.Name,
		spec.FullName(), spec.foreignKeyName(), spec.Schema,
	)
}

func (spec *TableSpec) AddGeometrySQL() string {
	return fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS geom geometry(Point, %d)`,
		spec.FullName(), Srid)
}

func (spec *TableSpec) TruncateSQL() string {
	return fmt.Sprintf(`TRUNCATE TABLE %s`, spec.FullName())
}

func (spec *TableSpec) ColumnNames() []string {
	var cols []string
	for _, col := range spec.Columns {
		cols = append(cols, col.Name)
	}
	return cols
}

func (spec *TableSpec) UpdateGeometrySQL() string {
	return fmt.Sprintf(`UPDATE %s
    SET geom = ST_SetSRID(ST_MakePoint(longitude, latitude), %d)
    WHERE longitude IS NOT NULL AND latitude IS NOT NULL`,
		spec.FullName(), Srid)
}

func districtsSQL(schema string) string {
	return fmt.Sprintf(`SELECT district_id, district FROM "%s"."districts" ORDER BY district_id`, schema)
}
