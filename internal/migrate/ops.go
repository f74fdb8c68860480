package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Operation is one structured schema change. Every operation is idempotent
// with respect to object existence, so re-running it is a no-op.
type Operation interface {
	Apply(ctx context.Context, tx *sql.Tx) error
	String() string
}

// Literal is a rendered SQL default value. The zero Literal means "no default".
type Literal struct {
	sql string
}

// Text is a quoted string literal.
func Text(s string) Literal {
	return Literal{sql: "'" + strings.ReplaceAll(s, "'", "''") + "'"}
}

// Int is an integer literal.
func Int(n int64) Literal {
	return Literal{sql: strconv.FormatInt(n, 10)}
}

// Real is a floating point literal, always rendered with a decimal point.
func Real(f float64) Literal {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return Literal{sql: s}
}

// Raw is an unquoted keyword such as CURRENT_TIMESTAMP or NULL.
func Raw(s string) Literal {
	return Literal{sql: s}
}

// String returns the SQL form of the literal.
func (l Literal) String() string { return l.sql }

// Column describes a table column.
type Column struct {
	Name          string
	Type          string
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Default       Literal

	// Check is the expression inside CHECK(...), e.g. "type IN ('product', 'service')".
	Check string
}

func (c Column) definition() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(c.Type)
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if c.AutoIncrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default.sql != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default.sql)
	}
	if c.Check != "" {
		b.WriteString(" CHECK(")
		b.WriteString(c.Check)
		b.WriteByte(')')
	}
	return b.String()
}

func (c Column) validate() error {
	if c.Name == "" || c.Type == "" {
		return fmt.Errorf("column needs a name and a type: %+v", c)
	}
	if c.AutoIncrement && !c.PrimaryKey {
		return fmt.Errorf("column %s: AUTOINCREMENT requires PRIMARY KEY", c.Name)
	}
	return nil
}

// ForeignKey is a table-level FOREIGN KEY clause.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string

	// OnDelete is the action keyword, e.g. "CASCADE". Empty means none.
	OnDelete string
}

func (fk ForeignKey) definition() string {
	ref := fk.RefColumn
	if ref == "" {
		ref = "id"
	}
	s := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.RefTable, ref)
	if fk.OnDelete != "" {
		s += " ON DELETE " + fk.OnDelete
	}
	return s
}

// CreateTable creates a table if it does not exist.
type CreateTable struct {
	Table       string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// SQL renders the CREATE TABLE statement.
func (op CreateTable) SQL() string {
	defs := make([]string, 0, len(op.Columns)+len(op.ForeignKeys))
	for _, c := range op.Columns {
		defs = append(defs, c.definition())
	}
	for _, fk := range op.ForeignKeys {
		defs = append(defs, fk.definition())
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", op.Table, strings.Join(defs, ",\n    "))
}

// Apply implements Operation.
func (op CreateTable) Apply(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, op.SQL()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", op.Table, err)
	}
	return nil
}

func (op CreateTable) String() string { return "create table " + op.Table }

func (op CreateTable) validate() error {
	if op.Table == "" || len(op.Columns) == 0 {
		return fmt.Errorf("create table needs a name and columns")
	}
	for _, c := range op.Columns {
		if err := c.validate(); err != nil {
			return fmt.Errorf("table %s: %w", op.Table, err)
		}
	}
	return nil
}

// AddColumn adds a column to an existing table unless it is already present.
// Existing rows receive the column default.
type AddColumn struct {
	Table  string
	Column Column
}

// SQL renders the ALTER TABLE statement.
func (op AddColumn) SQL() string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", op.Table, op.Column.definition())
}

// Apply implements Operation.
func (op AddColumn) Apply(ctx context.Context, tx *sql.Tx) error {
	exists, err := columnExists(ctx, tx, op.Table, op.Column.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := tx.ExecContext(ctx, op.SQL()); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", op.Table, op.Column.Name, err)
	}
	return nil
}

func (op AddColumn) String() string { return "add column " + op.Table + "." + op.Column.Name }

func (op AddColumn) validate() error {
	if op.Table == "" {
		return fmt.Errorf("add column needs a table")
	}
	if err := op.Column.validate(); err != nil {
		return err
	}
	if op.Column.PrimaryKey {
		return fmt.Errorf("column %s.%s: cannot add a PRIMARY KEY column", op.Table, op.Column.Name)
	}
	if op.Column.NotNull && (op.Column.Default.sql == "" || strings.EqualFold(op.Column.Default.sql, "NULL")) {
		return fmt.Errorf("column %s.%s: NOT NULL needs a non-null default", op.Table, op.Column.Name)
	}
	return nil
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	return n > 0, nil
}

// CreateIndex creates an index if it does not exist.
type CreateIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// SQL renders the CREATE INDEX statement.
func (op CreateIndex) SQL() string {
	unique := ""
	if op.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s(%s)", unique, op.Name, op.Table, strings.Join(op.Columns, ", "))
}

// Apply implements Operation.
func (op CreateIndex) Apply(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, op.SQL()); err != nil {
		return fmt.Errorf("failed to create index %s: %w", op.Name, err)
	}
	return nil
}

func (op CreateIndex) String() string { return "create index " + op.Name }

func (op CreateIndex) validate() error {
	if op.Name == "" || op.Table == "" || len(op.Columns) == 0 {
		return fmt.Errorf("create index needs a name, a table and columns")
	}
	return nil
}

// Seed inserts rows, ignoring rows whose key already exists.
type Seed struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// SQL renders the INSERT OR IGNORE statement for one row.
func (op Seed) SQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(op.Columns)), ", ")
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", op.Table, strings.Join(op.Columns, ", "), marks)
}

// Apply implements Operation.
func (op Seed) Apply(ctx context.Context, tx *sql.Tx) error {
	stmt := op.SQL()
	for _, row := range op.Rows {
		if _, err := tx.ExecContext(ctx, stmt, row...); err != nil {
			return fmt.Errorf("failed to seed %s: %w", op.Table, err)
		}
	}
	return nil
}

func (op Seed) String() string { return "seed " + op.Table }

func (op Seed) validate() error {
	if op.Table == "" || len(op.Columns) == 0 {
		return fmt.Errorf("seed needs a table and columns")
	}
	for i, row := range op.Rows {
		if len(row) != len(op.Columns) {
			return fmt.Errorf("seed %s row %d: got %d values for %d columns", op.Table, i, len(row), len(op.Columns))
		}
	}
	return nil
}
