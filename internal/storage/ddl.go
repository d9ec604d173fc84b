package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"musicetl/pkg/records"
)

// Logical column kinds inferred from table values.
const (
	KindText      = "text"
	KindFloat     = "float"
	KindBool      = "bool"
	KindDate      = "date"
	KindTimestamp = "timestamp"
)

// ColumnDef is one column of a TableDef.
type ColumnDef struct {
	Name       string
	Kind       string // logical kind, see Kind*
	Nullable   bool
	PrimaryKey bool
}

// TableDef is a dialect-neutral table description.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect renders identifiers and types for one backend.
type Dialect struct {
	Quote   func(ident string) string
	MapType func(kind string) string
	// IfNotExists wraps a CREATE TABLE body; nil means the standard
	// "CREATE TABLE IF NOT EXISTS" prefix.
	IfNotExists func(fqn, body string) string
}

var (
	ddlMu    sync.RWMutex
	dialects = map[string]Dialect{}
)

// RegisterDialect installs the DDL dialect for kind.
func RegisterDialect(kind string, d Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// QuoteFQN quotes each dot-separated segment of name with quote.
func QuoteFQN(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, quote(p))
		}
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders td for d. Primary-key columns are always
// NOT NULL.
func BuildCreateTableSQL(d Dialect, td TableDef) (string, error) {
	fqn := strings.TrimSpace(td.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(td.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(td.Columns)+1)
	var pks []string
	for _, c := range td.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		def := d.Quote(name) + " " + d.MapType(c.Kind)
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := "(\n  " + strings.Join(cols, ",\n  ") + "\n)"
	quoted := QuoteFQN(fqn, d.Quote)
	if d.IfNotExists != nil {
		return d.IfNotExists(quoted, body), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", quoted, body), nil
}

// EnsureTable creates td through repo with the dialect registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, td TableDef) error {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	stmt, err := BuildCreateTableSQL(d, td)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// InferTable derives a TableDef from tbl's values. keys become the primary
// key when every row has them.
func InferTable(fqn string, tbl *records.Table, keys []string) TableDef {
	td := TableDef{FQN: fqn}
	for _, c := range tbl.Columns {
		kind, missing := inferKind(tbl.Values(c))
		pk := false
		for _, k := range keys {
			if k == c && !missing {
				pk = true
			}
		}
		td.Columns = append(td.Columns, ColumnDef{Name: c, Kind: kind, Nullable: missing, PrimaryKey: pk})
	}
	return td
}

func inferKind(vals []any) (kind string, missing bool) {
	present := 0
	float, boolean, date, stamp := true, true, true, true
	for _, v := range vals {
		if records.IsMissing(v) {
			missing = true
			continue
		}
		present++
		_, isF := v.(float64)
		_, isB := v.(bool)
		t, isT := v.(time.Time)
		float = float && isF
		boolean = boolean && isB
		stamp = stamp && isT
		date = date && isT && t.Equal(records.Truncate(t))
	}
	switch {
	case present == 0:
		return KindText, missing
	case float:
		return KindFloat, missing
	case boolean:
		return KindBool, missing
	case date:
		return KindDate, missing
	case stamp:
		return KindTimestamp, missing
	}
	return KindText, missing
}

// Row lays rec out along td's columns, converting values the inferred kinds
// cannot hold to text.
func Row(td TableDef, rec records.Record) []any {
	out := make([]any, len(td.Columns))
	for i, c := range td.Columns {
		v := rec[c.Name]
		switch {
		case records.IsMissing(v):
			out[i] = nil
		case c.Kind == KindText:
			out[i] = records.Format(v)
		default:
			out[i] = v
		}
	}
	return out
}
