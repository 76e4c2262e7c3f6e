package mongoql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectRoute(t *testing.T) {
	tests := []struct {
		kind string
		hint RouteHint
		want Route
	}{
		{"select", RouteHint{}, Secondary},
		{"SHOW", RouteHint{}, Secondary},
		{"explain", RouteHint{}, Secondary},
		{"select", RouteHint{Primary: true}, Primary},
		{"select", RouteHint{Name: "Reports_2"}, Route("reports_2")},
		{"select", RouteHint{Name: "bad-name"}, Primary},
		{"select", RouteHint{Name: "x;y", Primary: true}, Primary},
		{"insert", RouteHint{}, Primary},
		{"insert", RouteHint{Name: "reports"}, Primary},
		{"update", RouteHint{}, Primary},
		{"remove", RouteHint{}, Primary},
		{"replace", RouteHint{}, Primary},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectRoute(tt.kind, tt.hint))
		})
	}
}
