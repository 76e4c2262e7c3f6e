// Package dialect compiles operation descriptors into MongoDB operation
// documents.
package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dosco/graphjin/mongoql/mongodriver"
	"github.com/dosco/graphjin/mongoql/qcode"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNilDescriptor is returned by Compile for a nil descriptor.
var ErrNilDescriptor = errors.New("dialect: nil descriptor")

// Compile turns a descriptor into an operation document. It does no I/O.
func Compile(d *qcode.Descriptor) (*mongodriver.Query, error) {
	if d == nil {
		return nil, ErrNilDescriptor
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	filter, err := CompileWhere(d.Where)
	if err != nil {
		return nil, err
	}

	q := &mongodriver.Query{
		Collection: d.Table,
		Filter:     filter,
	}

	if v, ok := d.Options["timeout"]; ok {
		if q.Timeout, err = timeout(v); err != nil {
			return nil, err
		}
	}

	switch d.Type.Normalize() {
	case qcode.QTSelect:
		err = compileSelect(q, d)
	case qcode.QTInsert, qcode.QTBatchInsert:
		err = compileInsert(q, d)
	case qcode.QTUpdate:
		err = compileUpdate(q, d, false)
	case qcode.QTReplace:
		err = compileUpdate(q, d, true)
	case qcode.QTRemove:
		q.Operation = mongodriver.OpRemove
	}

	if err != nil {
		return nil, err
	}
	return q, nil
}

func compileSelect(q *mongodriver.Query, d *qcode.Descriptor) (err error) {
	if d.Grouped() {
		q.Operation = mongodriver.OpAggregate
		q.TotalCount = d.TotalCount()
		q.Pipeline, q.AliasKey, err = CompileGroup(d, q.Filter)
		return err
	}

	if d.Distinct != "" {
		q.Operation = mongodriver.OpDistinct
		q.Distinct = d.Distinct
		return nil
	}

	if d.TotalCount() {
		q.Operation = mongodriver.OpCount
		return nil
	}

	q.Operation = mongodriver.OpFind

	for _, f := range d.Select {
		if f.Name == "*" || f.Name == "" {
			continue
		}

		if _, ok := lookup(q.Projection, f.Name); !ok {
			q.Projection = append(q.Projection, bson.E{Key: f.Name, Value: 1})
		}
		if f.Alias != "" && f.Alias != f.Name {
			if q.SelectAs == nil {
				q.SelectAs = make(map[string]string)
			}
			q.SelectAs[f.Name] = f.Alias
		}
	}

	for _, ob := range d.OrderBy {
		q.Sort = append(q.Sort, bson.E{Key: ob.Col, Value: sortDir(ob.Desc)})
	}

	q.Skip = d.Offset
	q.Limit = d.Limit
	return nil
}

// timeout reads a duration string or a number of milliseconds.
func timeout(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("dialect: invalid timeout option: %w", err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("dialect: invalid timeout option: %T", v)
	}
}
