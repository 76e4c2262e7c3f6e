package dialect

import (
	"testing"

	"github.com/dosco/graphjin/mongoql/qcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type C = qcode.Condition

var (
	where  = qcode.Where
	orw    = qcode.OrWhere
	open   = qcode.OpenGroup
	closeG = qcode.CloseGroup
)

func doc(k string, v any) bson.D {
	return bson.D{{Key: k, Value: v}}
}

func TestCompileWhere(t *testing.T) {
	tests := []struct {
		name  string
		conds []C
		want  bson.D
	}{
		{
			name: "empty",
			want: bson.D{},
		},
		{
			name:  "and of distinct fields is flat",
			conds: []C{where("a", "=", 1), where("b", "=", 2), where("c", ">", 3)},
			want: bson.D{
				{Key: "a", Value: 1},
				{Key: "b", Value: 2},
				{Key: "c", Value: doc("$gt", 3)},
			},
		},
		{
			name:  "range on one field merges",
			conds: []C{where("x", ">", 1), where("x", "<", 10)},
			want:  doc("x", bson.D{{Key: "$gt", Value: 1}, {Key: "$lt", Value: 10}}),
		},
		{
			name:  "equality twice on one field promotes to $and",
			conds: []C{where("x", "=", 1), where("x", "=", 2)},
			want:  doc("$and", bson.A{doc("x", 1), doc("x", 2)}),
		},
		{
			name:  "same operator twice promotes to $and",
			conds: []C{where("x", ">", 1), where("x", "<", 10), where("x", ">", 5)},
			want: doc("$and", bson.A{
				doc("x", bson.D{{Key: "$gt", Value: 1}, {Key: "$lt", Value: 10}}),
				doc("x", doc("$gt", 5)),
			}),
		},
		{
			name:  "and then or folds left",
			conds: []C{where("a", "=", 1), where("b", "=", 2), orw("c", "=", 3)},
			want: doc("$or", bson.A{
				doc("$and", bson.A{doc("a", 1), doc("b", 2)}),
				doc("c", 3),
			}),
		},
		{
			name:  "or chain appends",
			conds: []C{where("a", "=", 1), orw("b", "=", 2), orw("c", "=", 3)},
			want:  doc("$or", bson.A{doc("a", 1), doc("b", 2), doc("c", 3)}),
		},
		{
			name:  "leading or demotes the empty level",
			conds: []C{orw("a", "=", 1)},
			want:  doc("$or", bson.A{doc("a", 1)}),
		},
		{
			name: "or group and field",
			conds: []C{
				open(qcode.And), where("a", "=", 1), orw("b", "=", 2), closeG(qcode.And),
				where("c", "=", 3),
			},
			want: doc("$and", bson.A{
				doc("$or", bson.A{doc("a", 1), doc("b", 2)}),
				doc("c", 3),
			}),
		},
		{
			name: "field or and-group",
			conds: []C{
				where("x", "=", 1),
				open(qcode.Or), where("a", "=", 1), where("b", "=", 2), closeG(qcode.Or),
			},
			want: doc("$or", bson.A{
				doc("x", 1),
				doc("$and", bson.A{doc("a", 1), doc("b", 2)}),
			}),
		},
		{
			name: "and-group with disjoint fields unions",
			conds: []C{
				where("x", "=", 1),
				open(qcode.And), where("a", "=", 1), where("b", "=", 2), closeG(qcode.And),
			},
			want: bson.D{{Key: "x", Value: 1}, {Key: "a", Value: 1}, {Key: "b", Value: 2}},
		},
		{
			name: "two or-groups joined by and are both kept",
			conds: []C{
				open(qcode.And), where("a", "=", 1), orw("b", "=", 2), closeG(qcode.And),
				open(qcode.And), where("c", "=", 1), orw("d", "=", 2), closeG(qcode.And),
			},
			want: doc("$and", bson.A{
				doc("$or", bson.A{doc("a", 1), doc("b", 2)}),
				doc("$or", bson.A{doc("c", 1), doc("d", 2)}),
			}),
		},
		{
			name: "nested groups",
			conds: []C{
				where("s", "=", "on"),
				open(qcode.And),
				where("a", "=", 1),
				open(qcode.Or), where("b", "=", 2), where("c", "=", 3), closeG(qcode.Or),
				closeG(qcode.And),
			},
			want: doc("$and", bson.A{
				doc("s", "on"),
				doc("$or", bson.A{doc("a", 1), doc("$and", bson.A{doc("b", 2), doc("c", 3)})}),
			}),
		},
		{
			name:  "empty group adds nothing",
			conds: []C{where("a", "=", 1), open(qcode.And), closeG(qcode.And)},
			want:  doc("a", 1),
		},
		{
			name:  "unknown operator is skipped",
			conds: []C{where("a", "=", 1), where("b", "~~", 2), where("c", "=", 3)},
			want:  bson.D{{Key: "a", Value: 1}, {Key: "c", Value: 3}},
		},
		{
			name:  "prebuilt operator documents merge",
			conds: []C{where("a", "=", bson.M{"$exists": true}), where("a", "!=", nil)},
			want:  doc("a", bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}),
		},
		{
			name:  "regex is not merged with operators",
			conds: []C{where("n", "like", "a%"), where("n", "!=", "ab")},
			want: doc("$and", bson.A{
				doc("n", bson.Regex{Pattern: "^a", Options: "i"}),
				doc("n", doc("$ne", "ab")),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileWhere(tt.conds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileWhereDoesNotAlias(t *testing.T) {
	in := []C{where("x", ">", 1), where("y", "=", 2)}

	a, err := CompileWhere(in)
	require.NoError(t, err)
	b, err := CompileWhere(append(in, where("x", "<", 5)))
	require.NoError(t, err)

	assert.Equal(t, bson.D{{Key: "x", Value: doc("$gt", 1)}, {Key: "y", Value: 2}}, a)
	assert.NotEqual(t, a, b)
}

func TestCompileWhereUnbalanced(t *testing.T) {
	tests := [][]C{
		{open(qcode.And), where("a", "=", 1)},
		{where("a", "=", 1), closeG(qcode.And)},
		{open(qcode.And), open(qcode.And), closeG(qcode.And)},
	}

	for _, conds := range tests {
		_, err := CompileWhere(conds)
		assert.ErrorIs(t, err, ErrUnbalancedGroup)
	}
}

func TestCompileWhereBadOperand(t *testing.T) {
	tests := [][]C{
		{where("id", "between", 5)},
		{where("a", "=", 1), orw("id", "between", []int{5})},
		{open(qcode.And), where("n", "mod", 3), closeG(qcode.And)},
		{where("id", "in", 5)},
	}

	for _, conds := range tests {
		_, err := CompileWhere(conds)
		assert.ErrorIs(t, err, ErrBadOperand)
	}
}
