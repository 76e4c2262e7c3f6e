package dialect

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/dosco/graphjin/mongoql/qcode"
	"github.com/stretchr/testify/require"
	"github.com/vinicius-lino-figueiredo/gedb"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Compiled filters are run against an in-memory document store and
// compared with a direct left-to-right evaluation of the condition tree.

var evalNames = []string{"apple", "Apricot", "banana", "grape.fruit", "PEAR", "papaya"}

type evalDoc struct {
	n, a, b float64
	s       string
}

func evalDocs() []evalDoc {
	docs := make([]evalDoc, 42)
	for i := range docs {
		docs[i] = evalDoc{
			n: float64(i),
			a: float64(i % 5),
			b: float64(i % 7),
			s: evalNames[i%len(evalNames)],
		}
	}
	return docs
}

type node struct {
	logic qcode.Logic
	leaf  *qcode.Condition
	kids  []node
}

func randLogic(r *rand.Rand) qcode.Logic {
	if r.Intn(2) == 0 {
		return qcode.Or
	}
	return qcode.And
}

func randLeaf(r *rand.Rand) *qcode.Condition {
	if r.Intn(4) == 0 {
		patterns := []string{"ap%", "%an%", "%A", "grape.fruit", "grape%fruit", "%", "p%a"}
		if r.Intn(3) == 0 {
			return &qcode.Condition{Column: "s", Op: "=", Value: evalNames[r.Intn(len(evalNames))]}
		}
		return &qcode.Condition{Column: "s", Op: "like", Value: patterns[r.Intn(len(patterns))]}
	}

	col := "a"
	if r.Intn(2) == 0 {
		col = "b"
	}
	v := float64(r.Intn(6))

	switch r.Intn(9) {
	case 0:
		return &qcode.Condition{Column: col, Op: "=", Value: v}
	case 1:
		return &qcode.Condition{Column: col, Op: "!=", Value: v}
	case 2:
		return &qcode.Condition{Column: col, Op: ">", Value: v}
	case 3:
		return &qcode.Condition{Column: col, Op: ">=", Value: v}
	case 4:
		return &qcode.Condition{Column: col, Op: "<", Value: v}
	case 5:
		return &qcode.Condition{Column: col, Op: "<=", Value: v}
	case 6:
		return &qcode.Condition{Column: col, Op: "in", Value: []any{v, v + 2}}
	case 7:
		return &qcode.Condition{Column: col, Op: "not in", Value: []any{v, v + 1}}
	default:
		return &qcode.Condition{Column: col, Op: "between", Value: []any{v, v + 2}}
	}
}

func randTree(r *rand.Rand, depth int) []node {
	items := make([]node, 1+r.Intn(4))
	for i := range items {
		items[i].logic = randLogic(r)
		if depth < 3 && r.Intn(4) == 0 {
			items[i].kids = randTree(r, depth+1)
			continue
		}
		items[i].leaf = randLeaf(r)
		items[i].leaf.Logic = items[i].logic
	}
	return items
}

func flatten(r *rand.Rand, items []node) []qcode.Condition {
	var out []qcode.Condition
	for _, it := range items {
		if it.leaf != nil {
			out = append(out, *it.leaf)
			continue
		}
		out = append(out, qcode.OpenGroup(randLogic(r)))
		out = append(out, flatten(r, it.kids)...)
		out = append(out, qcode.CloseGroup(it.logic))
	}
	return out
}

func evalTree(items []node, d evalDoc) bool {
	var acc, set bool
	for _, it := range items {
		var v bool
		if it.leaf != nil {
			v = evalLeaf(it.leaf, d)
		} else {
			v = evalTree(it.kids, d)
		}
		switch {
		case !set:
			acc, set = v, true
		case it.logic == qcode.Or:
			acc = acc || v
		default:
			acc = acc && v
		}
	}
	return acc
}

func evalLeaf(c *qcode.Condition, d evalDoc) bool {
	if c.Column == "s" {
		if c.Op == "=" {
			return d.s == c.Value
		}
		return likeMatch(strings.ToLower(c.Value.(string)), strings.ToLower(d.s))
	}

	x := d.a
	if c.Column == "b" {
		x = d.b
	}

	switch c.Op {
	case "=":
		return x == c.Value.(float64)
	case "!=":
		return x != c.Value.(float64)
	case ">":
		return x > c.Value.(float64)
	case ">=":
		return x >= c.Value.(float64)
	case "<":
		return x < c.Value.(float64)
	case "<=":
		return x <= c.Value.(float64)
	case "in", "not in":
		in := false
		for _, v := range c.Value.([]any) {
			in = in || x == v.(float64)
		}
		return in == (c.Op == "in")
	default:
		l := c.Value.([]any)
		return x >= l[0].(float64) && x <= l[1].(float64)
	}
}

// likeMatch is SQL LIKE with % as the only wildcard.
func likeMatch(p, s string) bool {
	if p == "" {
		return s == ""
	}
	if p[0] == '%' {
		for i := 0; i <= len(s); i++ {
			if likeMatch(p[1:], s[i:]) {
				return true
			}
		}
		return false
	}
	return s != "" && p[0] == s[0] && likeMatch(p[1:], s[1:])
}

// toStore converts a compiled filter into the query form of the store.
func toStore(v any) any {
	switch vv := v.(type) {
	case bson.D:
		m := make(map[string]any, len(vv))
		for _, e := range vv {
			if re, ok := e.Value.(bson.Regex); ok {
				m[e.Key] = map[string]any{"$regex": regexp.MustCompile("(?" + re.Options + ")" + re.Pattern)}
				continue
			}
			m[e.Key] = toStore(e.Value)
		}
		return m
	case bson.A:
		l := make([]any, len(vv))
		for i := range vv {
			l[i] = toStore(vv[i])
		}
		return l
	case []any:
		return toStore(bson.A(vv))
	default:
		return v
	}
}

func TestCompileWhereMatchesEvaluation(t *testing.T) {
	ctx := context.Background()

	db, err := gedb.NewDB(gedb.WithInMemoryOnly(true))
	require.NoError(t, err)

	docs := evalDocs()
	for _, d := range docs {
		_, err := db.Insert(ctx, map[string]any{"n": d.n, "a": d.a, "b": d.b, "s": d.s})
		require.NoError(t, err)
	}

	r := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		tree := randTree(r, 0)
		conds := flatten(r, tree)

		filter, err := CompileWhere(conds)
		require.NoError(t, err)

		cur, err := db.Find(ctx, toStore(filter))
		require.NoError(t, err, "filter %v", filter)

		got := make(map[string]bool)
		for cur.Next() {
			var m map[string]any
			require.NoError(t, cur.Scan(ctx, &m))
			got[fmt.Sprint(m["n"])] = true
		}
		require.NoError(t, cur.Err())
		require.NoError(t, cur.Close())

		for _, d := range docs {
			want := evalTree(tree, d)
			require.Equal(t, want, got[fmt.Sprint(d.n)],
				"doc %+v\nconditions %+v\nfilter %v", d, conds, filter)
		}
	}
}
