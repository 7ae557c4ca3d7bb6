package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		text string
		want *float64
	}{
		{"250 €", ptr(250)},
		{"250 € VB", ptr(250)},
		{"1.234 €", ptr(1234)},
		{"10,50 €", ptr(10.5)},
		{"1.234,56 €", ptr(1234.56)},
		{"VB", nil},
		{"", nil},
		{"   ", nil},
		{"Zu verschenken", nil},
		{"Tausch möglich", nil},
		{"25 €", ptr(25)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ParsePriceText(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func ptr(v float64) *float64 {
	return &v
}
