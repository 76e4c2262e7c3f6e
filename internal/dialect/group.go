package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dosco/graphjin/mongoql/mongodriver"
	"github.com/dosco/graphjin/mongoql/qcode"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrUnsupportedAggregate is returned for unknown aggregate functions.
var ErrUnsupportedAggregate = errors.New("dialect: unsupported aggregate function")

type groupBuilder struct {
	grp      bson.D
	aliasKey map[string]string
}

// alias returns the $group-safe form of an output key and records the
// mapping back to the caller's name.
func (g *groupBuilder) alias(name string) string {
	key := strings.ReplaceAll(name, ".", mongodriver.AliasSep)
	if key != name {
		g.aliasKey[key] = name
	}
	return key
}

// seed adds name as the $first value of col unless the output name is
// already taken.
func (g *groupBuilder) seed(name, col string) {
	key := g.alias(name)
	if _, ok := lookup(g.grp, key); ok {
		return
	}
	g.grp = append(g.grp, bson.E{Key: key, Value: first(col)})
}

// set adds an accumulator, replacing whatever holds the output name.
func (g *groupBuilder) set(name string, acc bson.D) {
	key := g.alias(name)
	if i, ok := lookup(g.grp, key); ok {
		g.grp[i].Value = acc
		return
	}
	g.grp = append(g.grp, bson.E{Key: key, Value: acc})
}

// CompileGroup builds the aggregation pipeline of a grouped select:
// $match, the group stage(s), $sort, $skip and $limit in that order.
// The returned map turns sanitized output keys back into dotted names.
func CompileGroup(d *qcode.Descriptor, filter bson.D) ([]bson.D, map[string]string, error) {
	g := groupBuilder{aliasKey: make(map[string]string)}

	var pipe []bson.D
	if len(filter) != 0 {
		pipe = append(pipe, bson.D{{Key: "$match", Value: filter}})
	}

	g.grp = bson.D{
		{Key: "_id", Value: groupID(&g, d.GroupBy)},
		{Key: "_count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}

	for _, k := range d.GroupBy {
		g.seed(k, k)
	}

	for _, f := range d.Select {
		if f.IsTotalCount() || f.Name == "*" {
			continue
		}
		name := f.Name
		if f.Alias != "" {
			name = f.Alias
		}
		g.seed(name, f.Name)
	}

	for _, a := range d.SelectAdv {
		if a.Alias == "" {
			f := qcode.ParseField(a.Column)
			a.Column, a.Alias = f.Name, f.Alias
		}
		acc, err := accumulator(a)
		if err != nil {
			return nil, nil, err
		}
		name := a.Alias
		if name == "" {
			name = a.Column
		}
		g.set(name, acc)
	}

	var preSort bson.D

	for _, gc := range d.GroupConcat {
		fn := "$push"
		if gc.Unique {
			fn = "$addToSet"
		}
		name := gc.Alias
		if name == "" {
			name = gc.Column
		}
		g.set(name, bson.D{{Key: fn, Value: "$" + gc.Column}})

		if gc.Order == "" {
			continue
		}
		if _, ok := lookup(preSort, gc.Column); !ok {
			preSort = append(preSort, bson.E{Key: gc.Column, Value: direction(gc.Order)})
		}
	}

	if len(preSort) != 0 {
		pipe = append(pipe, bson.D{{Key: "$sort", Value: preSort}})
	}

	if d.Distinct != "" {
		pipe = append(pipe, distinctStages(&g, d.Distinct)...)
	} else {
		pipe = append(pipe, bson.D{{Key: "$group", Value: g.grp}})
	}

	if len(d.OrderBy) != 0 {
		sort := make(bson.D, 0, len(d.OrderBy))
		for _, ob := range d.OrderBy {
			sort = append(sort, bson.E{Key: g.alias(ob.Col), Value: sortDir(ob.Desc)})
		}
		pipe = append(pipe, bson.D{{Key: "$sort", Value: sort}})
	}

	if d.Offset > 0 {
		pipe = append(pipe, bson.D{{Key: "$skip", Value: d.Offset}})
	}
	if d.Limit > 0 {
		pipe = append(pipe, bson.D{{Key: "$limit", Value: d.Limit}})
	}

	return pipe, g.aliasKey, nil
}

// groupID is null for a single group over all documents, a field
// reference for one key and a sub-document for several.
func groupID(g *groupBuilder, keys []string) any {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		return "$" + keys[0]
	}

	id := make(bson.D, 0, len(keys))
	for _, k := range keys {
		id = append(id, bson.E{Key: g.alias(k), Value: "$" + k})
	}
	return id
}

// distinctStages collects the distinct column into a set, explodes it and
// regroups, counting one row per unique value.
func distinctStages(g *groupBuilder, col string) []bson.D {
	tmp := "_distinct_" + strings.ReplaceAll(col, ".", mongodriver.AliasSep)
	out := g.alias(col)

	grp := append(clone(g.grp), bson.E{Key: tmp, Value: bson.D{{Key: "$addToSet", Value: "$" + col}}})

	regroup := bson.D{{Key: "_id", Value: "$_id"}}
	for _, e := range g.grp[1:] {
		if e.Key == out {
			continue
		}
		regroup = append(regroup, bson.E{Key: e.Key, Value: first(e.Key)})
	}
	regroup = append(regroup, bson.E{Key: out, Value: bson.D{{Key: "$sum", Value: 1}}})

	return []bson.D{
		{{Key: "$group", Value: grp}},
		{{Key: "$unwind", Value: "$" + tmp}},
		{{Key: "$group", Value: regroup}},
	}
}

func accumulator(a qcode.AdvSelect) (bson.D, error) {
	ref := "$" + a.Column

	switch fn := strings.ToLower(a.Func); fn {
	case "max", "min", "avg", "first", "last":
		return bson.D{{Key: "$" + fn, Value: ref}}, nil
	case "addtoset", "concat":
		return bson.D{{Key: "$addToSet", Value: ref}}, nil
	case "sum":
		if a.Operand != nil {
			return bson.D{{Key: "$sum", Value: a.Operand}}, nil
		}
		return bson.D{{Key: "$sum", Value: ref}}, nil
	case "count":
		return bson.D{{Key: "$sum", Value: 1}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAggregate, a.Func)
	}
}

func first(col string) bson.D {
	return bson.D{{Key: "$first", Value: "$" + col}}
}

func direction(s string) int {
	return sortDir(strings.EqualFold(strings.TrimSpace(s), "desc"))
}

func sortDir(desc bool) int {
	if desc {
		return -1
	}
	return 1
}
