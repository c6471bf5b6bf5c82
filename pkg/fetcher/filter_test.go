package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bipard/healthfetch/pkg/datekey"
)

func TestPending(t *testing.T) {
	tests := []struct {
		name      string
		requested []datekey.Key
		stored    map[datekey.Key]bool
		want      []datekey.Key
	}{
		{
			name:      "nothing stored keeps everything",
			requested: []datekey.Key{"2024-03-01", "2024-03-02"},
			stored:    map[datekey.Key]bool{},
			want:      []datekey.Key{"2024-03-01", "2024-03-02"},
		},
		{
			name:      "stored dates drop out preserving order",
			requested: []datekey.Key{"2024-03-01", "2024-03-02", "2024-03-03"},
			stored:    map[datekey.Key]bool{"2024-03-02": true},
			want:      []datekey.Key{"2024-03-01", "2024-03-03"},
		},
		{
			name:      "all stored yields empty",
			requested: []datekey.Key{"2024-03-01"},
			stored:    map[datekey.Key]bool{"2024-03-01": true},
			want:      []datekey.Key{},
		},
		{
			name:      "empty request yields empty",
			requested: nil,
			stored:    map[datekey.Key]bool{"2024-03-01": true},
			want:      []datekey.Key{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pending(tt.requested, tt.stored))
		})
	}
}
