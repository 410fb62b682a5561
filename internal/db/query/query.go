// Package query renders filtered list queries over append-only tables.
//
// A Builder accumulates (column, operator, value) predicates from optional
// filter arguments and renders a single parameterized SELECT. Filter values are
// only ever bound as $n placeholders; column and table names are compile-time
// constants checked against a strict identifier pattern.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Op is a comparison operator supported by Builder.
type Op string

const (
	Eq       Op = "="
	Gt       Op = ">"
	Gte      Op = ">="
	Lt       Op = "<"
	Lte      Op = "<="
	Contains Op = "contains"
)

// Default pagination used when the caller does not supply Limits.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// ErrInvalidPage is returned by Build for a negative offset or count.
var ErrInvalidPage = errors.New("offset and count must not be negative")

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Limits bounds the page size of a query.
type Limits struct {
	DefaultCount int64
	MaxCount     int64
}

// DefaultLimits returns the package defaults.
func DefaultLimits() Limits {
	return Limits{DefaultCount: DefaultPageSize, MaxCount: MaxPageSize}
}

type predicate struct {
	column string
	op     Op
	value  any
}

// Builder collects the filters of one list query. The zero value is not
// usable; create one with New.
type Builder struct {
	table    string
	idColumn string
	columns  []string
	preds    []predicate
	group    string
	offset   *int64
	count    *int64
	limits   Limits
	empty    bool
}

// New starts a query selecting columns from table, ordered by idColumn.
func New(table, idColumn string, columns ...string) *Builder {
	return &Builder{
		table:    table,
		idColumn: idColumn,
		columns:  columns,
		limits:   DefaultLimits(),
	}
}

// WithLimits overrides the default and maximum page size.
func (b *Builder) WithLimits(l Limits) *Builder {
	if l.DefaultCount > 0 {
		b.limits.DefaultCount = l.DefaultCount
	}
	if l.MaxCount > 0 {
		b.limits.MaxCount = l.MaxCount
	}
	return b
}

// Where adds an unconditional predicate.
func (b *Builder) Where(column string, op Op, value any) *Builder {
	b.preds = append(b.preds, predicate{column: column, op: op, value: value})
	return b
}

// OnlyRecent restricts the result to the newest row (max id) per distinct
// value of groupColumn when on is true.
func (b *Builder) OnlyRecent(groupColumn string, on bool) *Builder {
	if on {
		b.group = groupColumn
	}
	return b
}

// Page sets the offset and count. Nil values take the defaults.
func (b *Builder) Page(offset, count *int64) *Builder {
	b.offset = offset
	b.count = count
	return b
}

// MatchNothing marks the query as unsatisfiable. Build still succeeds and
// callers should check Empty before executing.
func (b *Builder) MatchNothing() *Builder {
	b.empty = true
	return b
}

// Empty reports whether MatchNothing was called.
func (b *Builder) Empty() bool { return b.empty }

// Equal adds column = *v when v is non-nil.
func Equal[T any](b *Builder, column string, v *T) *Builder {
	if v != nil {
		b.Where(column, Eq, *v)
	}
	return b
}

// Within adds inclusive bounds min <= column <= max for the non-nil ends.
func Within[T any](b *Builder, column string, min, max *T) *Builder {
	if min != nil {
		b.Where(column, Gte, *min)
	}
	if max != nil {
		b.Where(column, Lte, *max)
	}
	return b
}

// Between adds exclusive bounds min < column < max for the non-nil ends.
func Between[T any](b *Builder, column string, min, max *T) *Builder {
	if min != nil {
		b.Where(column, Gt, *min)
	}
	if max != nil {
		b.Where(column, Lt, *max)
	}
	return b
}

// Partial adds a case-sensitive substring match when v is non-nil.
func Partial(b *Builder, column string, v *string) *Builder {
	if v != nil {
		b.Where(column, Contains, *v)
	}
	return b
}

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// Build renders the SQL text and its positional arguments.
func (b *Builder) Build() (string, []any, error) {
	offset, count, err := b.page()
	if err != nil {
		return "", nil, err
	}

	idents := append([]string{b.table, b.idColumn}, b.columns...)
	if b.group != "" {
		idents = append(idents, b.group)
	}
	for _, p := range b.preds {
		idents = append(idents, p.column)
	}
	for _, name := range idents {
		if err := validIdent(name); err != nil {
			return "", nil, err
		}
	}
	if len(b.columns) == 0 {
		return "", nil, errors.New("no columns selected")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, c := range b.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "t.%s", c)
	}
	fmt.Fprintf(&sb, " FROM %s t", b.table)

	if b.group != "" {
		fmt.Fprintf(&sb, " INNER JOIN (SELECT MAX(%[1]s) AS id FROM %[2]s GROUP BY %[3]s) latest ON latest.id = t.%[1]s",
			b.idColumn, b.table, b.group)
	}

	args := make([]any, 0, len(b.preds)+2)
	var where []string
	for _, p := range b.preds {
		args = append(args, p.value)
		n := len(args)
		switch p.op {
		case Eq, Gt, Gte, Lt, Lte:
			where = append(where, fmt.Sprintf("t.%s %s $%d", p.column, p.op, n))
		case Contains:
			where = append(where, fmt.Sprintf("strpos(t.%s, $%d) > 0", p.column, n))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", p.op)
		}
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	args = append(args, count, offset)
	fmt.Fprintf(&sb, " ORDER BY t.%s ASC LIMIT $%d OFFSET $%d", b.idColumn, len(args)-1, len(args))

	return sb.String(), args, nil
}

func (b *Builder) page() (offset, count int64, err error) {
	count = b.limits.DefaultCount
	if b.offset != nil {
		offset = *b.offset
	}
	if b.count != nil {
		count = *b.count
	}
	if offset < 0 || count < 0 {
		return 0, 0, ErrInvalidPage
	}
	if count > b.limits.MaxCount {
		count = b.limits.MaxCount
	}
	return offset, count, nil
}
