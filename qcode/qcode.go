// Package qcode holds the Operation Descriptor, the abstract SQL-shaped
// description of a single data operation that the dialect compiler turns
// into a MongoDB operation document.
package qcode

import (
	"strings"
)

// QType is the kind of operation a descriptor describes.
type QType string

const (
	QTSelect      QType = "select"
	QTInsert      QType = "insert"
	QTBatchInsert QType = "batchinsert"
	QTUpdate      QType = "update"
	QTReplace     QType = "replace"
	QTRemove      QType = "remove"
)

// Normalize folds the accepted aliases onto the canonical type names.
func (t QType) Normalize() QType {
	switch strings.ToLower(string(t)) {
	case "delete", "remove":
		return QTRemove
	case "insert_update", "replace":
		return QTReplace
	default:
		return QType(strings.ToLower(string(t)))
	}
}

// Logic is the connective joining a condition to what came before it.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Tag returns the MongoDB logical operator for the connective.
func (l Logic) Tag() string {
	if strings.EqualFold(string(l), string(Or)) {
		return "$or"
	}
	return "$and"
}

// Condition is one entry of a flat WHERE list. An entry is either a leaf
// predicate (Column, Op, Value) or a group marker (Open or Close).
type Condition struct {
	Logic  Logic  `mapstructure:"logic"`
	Open   bool   `mapstructure:"open"`
	Close  bool   `mapstructure:"close"`
	Column string `mapstructure:"column"`
	Op     string `mapstructure:"op"`
	Value  any    `mapstructure:"value"`
}

// IsLeaf reports whether the condition is a predicate rather than a marker.
func (c Condition) IsLeaf() bool {
	return !c.Open && !c.Close
}

// Where returns an AND-joined leaf predicate.
func Where(col, op string, val any) Condition {
	return Condition{Logic: And, Column: col, Op: op, Value: val}
}

// OrWhere returns an OR-joined leaf predicate.
func OrWhere(col, op string, val any) Condition {
	return Condition{Logic: Or, Column: col, Op: op, Value: val}
}

// OpenGroup starts a parenthesised group.
func OpenGroup(l Logic) Condition {
	return Condition{Logic: l, Open: true}
}

// CloseGroup ends the innermost group; l is the connective used to attach
// the finished group to the enclosing level.
func CloseGroup(l Logic) Condition {
	return Condition{Logic: l, Close: true}
}

// TotalCountExpr is the select sentinel that turns a query into a count.
const TotalCountExpr = "COUNT(1) AS `total_row_count`"

// TotalCountKey is the output key for the total count of a find.
const TotalCountKey = "total_row_count"

// Field is a selected column. Raw marks a free-form expression.
type Field struct {
	Name  string `mapstructure:"name"`
	Alias string `mapstructure:"alias"`
	Raw   bool   `mapstructure:"raw"`
}

// ParseField splits "expr AS alias" into a field.
func ParseField(s string) Field {
	s = strings.TrimSpace(s)
	if s == TotalCountExpr {
		return Field{Name: s, Raw: true}
	}
	if i := indexAs(s); i != -1 {
		return Field{
			Name:  strings.TrimSpace(s[:i]),
			Alias: strings.Trim(strings.TrimSpace(s[i+4:]), "`"),
		}
	}
	return Field{Name: s}
}

func indexAs(s string) int {
	return strings.Index(strings.ToUpper(s), " AS ")
}

// IsTotalCount reports whether the field is the total-count sentinel.
func (f Field) IsTotalCount() bool {
	return f.Raw && f.Name == TotalCountExpr
}

// AdvSelect is an aggregate select entry: Func applied to Column and
// stored under Alias. Operand optionally replaces the column reference
// for sum.
type AdvSelect struct {
	Column  string `mapstructure:"column" validate:"required"`
	Func    string `mapstructure:"func" validate:"required"`
	Alias   string `mapstructure:"alias"`
	Operand any    `mapstructure:"operand"`
}

// GroupConcat collects a column into a per-group list.
type GroupConcat struct {
	Column string `mapstructure:"column" validate:"required"`
	Alias  string `mapstructure:"alias"`
	Order  string `mapstructure:"order"`
	Unique bool   `mapstructure:"unique"`
}

// OrderBy is one sort key.
type OrderBy struct {
	Col  string `mapstructure:"col" validate:"required"`
	Desc bool   `mapstructure:"desc"`
}

// SetItem is one assignment of an update. Op is "" for plain assignment,
// "+" to increment and "-" to decrement.
type SetItem struct {
	Field string `mapstructure:"field" validate:"required"`
	Value any    `mapstructure:"value"`
	Op    string `mapstructure:"op" validate:"omitempty,oneof=+ - ="`
}

// Descriptor is the abstract description of one data operation.
type Descriptor struct {
	Type        QType            `mapstructure:"type" validate:"required"`
	Table       string           `mapstructure:"table" validate:"required"`
	Where       []Condition      `mapstructure:"where"`
	Select      []Field          `mapstructure:"select"`
	SelectAdv   []AdvSelect      `mapstructure:"select_adv" validate:"dive"`
	GroupConcat []GroupConcat    `mapstructure:"group_concat" validate:"dive"`
	GroupBy     []string         `mapstructure:"group_by"`
	OrderBy     []OrderBy        `mapstructure:"order_by" validate:"dive"`
	Limit       int64            `mapstructure:"limit" validate:"min=0"`
	Offset      int64            `mapstructure:"offset" validate:"min=0"`
	Distinct    string           `mapstructure:"distinct"`
	Columns     []string         `mapstructure:"columns"`
	Values      []map[string]any `mapstructure:"values"`
	Set         []SetItem        `mapstructure:"set" validate:"dive"`
	Options     map[string]any   `mapstructure:"options"`
}

// Grouped reports whether the descriptor needs an aggregation pipeline.
func (d *Descriptor) Grouped() bool {
	return len(d.GroupBy) != 0 || len(d.SelectAdv) != 0 || len(d.GroupConcat) != 0
}

// TotalCount reports whether the total-count sentinel is selected.
func (d *Descriptor) TotalCount() bool {
	for _, f := range d.Select {
		if f.IsTotalCount() {
			return true
		}
	}
	return false
}
