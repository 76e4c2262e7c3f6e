package dialect

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTranslate(t *testing.T) {
	pre := bson.D{{Key: "$exists", Value: true}}
	mod := bson.D{{Key: "$mod", Value: bson.A{3, 1}}}

	tests := []struct {
		op   string
		val  any
		want any
	}{
		{"=", 5, 5},
		{"=", pre, pre},
		{">", 1, bson.D{{Key: "$gt", Value: 1}}},
		{">=", 1, bson.D{{Key: "$gte", Value: 1}}},
		{"<", 1, bson.D{{Key: "$lt", Value: 1}}},
		{"<=", 1, bson.D{{Key: "$lte", Value: 1}}},
		{"!=", 1, bson.D{{Key: "$ne", Value: 1}}},
		{"<>", 1, bson.D{{Key: "$ne", Value: 1}}},
		{"IN", []int{1, 2}, bson.D{{Key: "$in", Value: []int{1, 2}}}},
		{"not in", []int{1, 2}, bson.D{{Key: "$nin", Value: []int{1, 2}}}},
		{"between", []int{1, 9}, bson.D{{Key: "$gte", Value: 1}, {Key: "$lte", Value: 9}}},
		{"mod", []any{3, 1}, mod},
		{"mod", []any{3, 1, "!="}, bson.D{{Key: "$not", Value: mod}}},
		{"mod", []any{3, 1, ">"}, bson.D{{Key: "$gt", Value: mod}}},
		{"mod", []any{3, 1, "$type"}, bson.D{{Key: "$type", Value: mod}}},
		{"mod", []any{3, 1, "size"}, bson.D{{Key: "$size", Value: mod}}},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := Translate(tt.op, tt.val)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		op  string
		val any
		err error
	}{
		{"regexp", "x", ErrUnknownOperator},
		{"", "x", ErrUnknownOperator},
		{"between", 5, ErrBadOperand},
		{"between", []int{5}, ErrBadOperand},
		{"between", []int{1, 2, 3}, ErrBadOperand},
		{"mod", 3, ErrBadOperand},
		{"mod", []int{3}, ErrBadOperand},
		{"in", 5, ErrBadOperand},
		{"not in", "abc", ErrBadOperand},
		{"in", nil, ErrBadOperand},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := Translate(tt.op, tt.val)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, got)
		})
	}
}

func TestLikeRegex(t *testing.T) {
	tests := []struct {
		pattern string
		regex   string
		match   []string
		miss    []string
	}{
		{"abc", "^abc$", []string{"abc", "ABC"}, []string{"xabc", "abcx"}},
		{"abc%", "^abc", []string{"abcdef"}, []string{"xabc"}},
		{"%abc", "abc$", []string{"xxabc"}, []string{"abcx"}},
		{"%abc%", "abc", []string{"xabcx"}, []string{"ab"}},
		{"a%c", "^a.*c$", []string{"ac", "abbc"}, []string{"acd"}},
		{"a.c", `^a\.c$`, []string{"a.c"}, []string{"abc"}},
		{"%", "", []string{"", "anything"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Translate("like", tt.pattern)
			require.NoError(t, err)

			re := got.(bson.Regex)
			assert.Equal(t, tt.regex, re.Pattern)
			assert.Equal(t, "i", re.Options)

			rx := regexp.MustCompile("(?i)" + re.Pattern)
			for _, s := range tt.match {
				assert.True(t, rx.MatchString(s), "%q should match %q", tt.pattern, s)
			}
			for _, s := range tt.miss {
				assert.False(t, rx.MatchString(s), "%q should not match %q", tt.pattern, s)
			}
		})
	}
}
