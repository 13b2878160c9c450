package clients

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	assert.Nil(t, decodeBody([]byte("  ")))
	assert.Equal(t, "plain text", decodeBody([]byte(" plain text\n")))
	assert.Equal(t, true, decodeBody([]byte("true")))
}

func TestToTime(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{name: "date", in: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", in: "2024-03-01T12:30:00Z", want: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{name: "unix seconds", in: float64(1709251200), want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "unix millis", in: "1709251200000", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := toTime("yesterday")
	assert.Error(t, err)
}

func TestDecimalField_NonFinite(t *testing.T) {
	_, err := decimalField(map[string]any{"price": "NaN"}, "$.price")
	assert.Error(t, err)
}
