package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySourceType(t *testing.T) {
	tests := []struct {
		name        string
		first, last *AttributionParams
		want        SourceType
	}{
		{"no data", nil, nil, SourceDirect},
		{"gclid without medium", nil, &AttributionParams{Gclid: "x"}, SourcePaid},
		{"wbraid", nil, &AttributionParams{Wbraid: "x", UTMMedium: "email"}, SourcePaid},
		{"paid medium", nil, &AttributionParams{UTMMedium: "CPC"}, SourcePaid},
		{"owned medium", nil, &AttributionParams{UTMMedium: "email"}, SourceOwned},
		{"search referrer", nil, &AttributionParams{Referrer: "www.bing.com"}, SourceOrganic},
		{"utm source only", nil, &AttributionParams{UTMSource: "partner"}, SourceOrganic},
		{"unknown referrer", nil, &AttributionParams{Referrer: "blog.example.com"}, SourceDirect},
		{"first used when last absent", &AttributionParams{UTMMedium: "newsletter"}, nil, SourceOwned},
		{"last preferred over first", &AttributionParams{Gclid: "x"}, &AttributionParams{UTMMedium: "sms"}, SourceOwned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySourceType(tt.first, tt.last))
		})
	}
}
