// Package query maps API field names onto SQL expressions and builds
// listing queries for them with squirrel.
package query

import "strings"

type column struct {
	field string
	expr  string
}

// ProjectionMap is the read model of one table: its FROM clause with
// joins and the expression behind each API field. Sort and filter input
// is resolved through it, so only mapped fields reach SQL.
type ProjectionMap struct {
	table   string
	alias   string
	joins   []string
	columns []column
	index   map[string]string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table: schema + "." + table + " " + alias,
		alias: alias,
		index: map[string]string{},
	}
}

// Project maps field to a column of the base table.
func (p *ProjectionMap) Project(col, field string) *ProjectionMap {
	return p.ProjectExpr(p.alias+"."+col, field)
}

// ProjectExpr maps field to an arbitrary expression, used verbatim.
func (p *ProjectionMap) ProjectExpr(expr, field string) *ProjectionMap {
	p.columns = append(p.columns, column{field: field, expr: expr})
	p.index[field] = expr
	return p
}

// Join appends a verbatim join clause.
func (p *ProjectionMap) Join(clause string) *ProjectionMap {
	p.joins = append(p.joins, clause)
	return p
}

func (p *ProjectionMap) Alias() string { return p.alias }

// Table is "schema.table alias".
func (p *ProjectionMap) Table() string { return p.table }

// From is the table followed by its joins.
func (p *ProjectionMap) From() string {
	return strings.Join(append([]string{p.table}, p.joins...), " ")
}

// Column resolves field, passing unmapped names through unchanged.
func (p *ProjectionMap) Column(field string) string {
	if expr, ok := p.index[field]; ok {
		return expr
	}
	return field
}

func (p *ProjectionMap) Has(field string) bool {
	_, ok := p.index[field]
	return ok
}

// ColumnList returns the projected expressions in declaration order.
func (p *ProjectionMap) ColumnList() []string {
	out := make([]string, len(p.columns))
	for i, c := range p.columns {
		out[i] = c.expr
	}
	return out
}
