package mongodriver

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Operation is the kind of a compiled operation document.
type Operation string

const (
	OpFind        Operation = "find"
	OpCount       Operation = "count"
	OpDistinct    Operation = "distinct"
	OpAggregate   Operation = "aggregate"
	OpInsert      Operation = "insert"
	OpBatchInsert Operation = "batchinsert"
	OpUpdate      Operation = "update"
	OpRemove      Operation = "remove"
)

// Query is a compiled operation document, ready to be handed to either
// client generation.
type Query struct {
	Operation  Operation
	Collection string

	Filter bson.D

	// find
	Projection bson.D
	Sort       bson.D
	Skip       int64
	Limit      int64
	SelectAs   map[string]string

	// distinct
	Distinct string

	// aggregate
	Pipeline []bson.D
	AliasKey map[string]string
	// TotalCount copies the group size onto every row.
	TotalCount bool

	// writes
	Document  bson.D
	Documents []bson.D
	Update    bson.D
	Upsert    bool
	Multi     bool

	// Timeout overrides the connection query timeout when non-zero.
	Timeout time.Duration
}

// Replacement reports whether Update is a whole-document replacement
// rather than a set of update operators.
func (q *Query) Replacement() bool {
	return replacement(q.Update)
}
