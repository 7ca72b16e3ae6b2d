package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	intp := func(v int) *int { return &v }

	tests := []struct {
		name       string
		offset     *int
		limit      *int
		wantOffset int
		wantLimit  int
	}{
		{"defaults", nil, nil, 0, 20},
		{"explicit window", intp(40), intp(10), 40, 10},
		{"negative offset clamped", intp(-5), intp(10), 0, 10},
		{"zero limit falls back", intp(0), intp(0), 0, 20},
		{"limit capped", nil, intp(500), 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := GetPaginationParams(tt.offset, tt.limit)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
