package mongodriver

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Statement renders q as a mongo shell command. It is meant for logs and
// error messages only and is never executed.
func Statement(q *Query) string {
	var sb strings.Builder

	sb.WriteString("db.")
	sb.WriteString(q.Collection)
	sb.WriteString(".")

	switch q.Operation {
	case OpFind:
		fmt.Fprintf(&sb, "find(%s", extJSON(q.Filter))
		if len(q.Projection) != 0 {
			fmt.Fprintf(&sb, ", %s", extJSON(q.Projection))
		}
		sb.WriteString(")")
		if len(q.Sort) != 0 {
			fmt.Fprintf(&sb, ".sort(%s)", extJSON(q.Sort))
		}
		if q.Skip != 0 {
			fmt.Fprintf(&sb, ".skip(%d)", q.Skip)
		}
		if q.Limit != 0 {
			fmt.Fprintf(&sb, ".limit(%d)", q.Limit)
		}

	case OpCount:
		fmt.Fprintf(&sb, "count(%s)", extJSON(q.Filter))

	case OpDistinct:
		fmt.Fprintf(&sb, "distinct(%s, %s)", strconv.Quote(q.Distinct), extJSON(q.Filter))

	case OpAggregate:
		stages := make([]string, len(q.Pipeline))
		for i, s := range q.Pipeline {
			stages[i] = extJSON(s)
		}
		fmt.Fprintf(&sb, "aggregate([%s])", strings.Join(stages, ", "))

	case OpInsert:
		fmt.Fprintf(&sb, "insert(%s)", extJSON(q.Document))

	case OpBatchInsert:
		docs := make([]string, len(q.Documents))
		for i, d := range q.Documents {
			docs[i] = extJSON(d)
		}
		fmt.Fprintf(&sb, "batchInsert([%s])", strings.Join(docs, ", "))

	case OpUpdate:
		fmt.Fprintf(&sb, "update(%s, %s, {\"multi\":%t,\"upsert\":%t})",
			extJSON(q.Filter), extJSON(q.Update), q.Multi, q.Upsert)

	case OpRemove:
		fmt.Fprintf(&sb, "remove(%s)", extJSON(q.Filter))

	default:
		fmt.Fprintf(&sb, "%s()", q.Operation)
	}

	return sb.String()
}

func extJSON(d bson.D) string {
	if len(d) == 0 {
		return "{}"
	}
	b, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return fmt.Sprintf("%v", d)
	}
	return string(b)
}
