package query

import (
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SortField is one ORDER BY term over a projected field.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "status,-created_at" style sort strings; a
// leading "-" sorts descending. Blank terms are skipped.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder accumulates filters and ordering over a projection and renders
// them as Postgres statements with numbered placeholders.
type Builder struct {
	projection *ProjectionMap
	where      []sq.Sqlizer
	order      []SortField
	fallback   []SortField
}

// NewBuilder creates a Builder; defaultSort applies when no explicit
// order is set.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, fallback: defaultSort}
}

// WhereEquals filters field = value. A nil value, including a typed nil
// pointer, adds nothing so optional filters can be passed straight in.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, sq.Eq{b.projection.Column(field): value})
	return b
}

// WhereRaw adds a condition written with "?" placeholders.
func (b *Builder) WhereRaw(clause string, args ...any) *Builder {
	b.where = append(b.where, sq.Expr(clause, args...))
	return b
}

// OrderByFields replaces the default sort.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.order = fields
	return b
}

func (b *Builder) Build() (string, []any, error) {
	return b.ordered(b.selectColumns()).ToSql()
}

func (b *Builder) BuildCount() (string, []any, error) {
	return b.filtered(psql.Select("COUNT(*)")).ToSql()
}

func (b *Builder) BuildPage(limit, offset int) (string, []any, error) {
	return b.ordered(b.selectColumns()).
		Limit(uint64(max(limit, 0))).
		Offset(uint64(max(offset, 0))).
		ToSql()
}

// BuildSingle selects the row whose idField equals id, ignoring other
// filters and ordering.
func (b *Builder) BuildSingle(idField string, id any) (string, []any, error) {
	return b.from(psql.Select(b.projection.ColumnList()...)).
		Where(sq.Eq{b.projection.Column(idField): id}).
		ToSql()
}

func (b *Builder) selectColumns() sq.SelectBuilder {
	return b.filtered(psql.Select(b.projection.ColumnList()...))
}

func (b *Builder) from(s sq.SelectBuilder) sq.SelectBuilder {
	s = s.From(b.projection.Table())
	for _, j := range b.projection.joins {
		s = s.JoinClause(j)
	}
	return s
}

func (b *Builder) filtered(s sq.SelectBuilder) sq.SelectBuilder {
	s = b.from(s)
	for _, w := range b.where {
		s = s.Where(w)
	}
	return s
}

func (b *Builder) ordered(s sq.SelectBuilder) sq.SelectBuilder {
	fields := b.order
	if len(fields) == 0 {
		fields = b.fallback
	}
	for _, f := range fields {
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		s = s.OrderBy(b.projection.Column(f.Field) + dir)
	}
	return s
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch r := reflect.ValueOf(v); r.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return r.IsNil()
	}
	return false
}
