package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    Identifier
		wantErr bool
	}{
		{in: "sample.csv", want: Identifier{Name: "sample.csv", Version: -1}},
		{in: "sample.csv:latest", want: Identifier{Name: "sample.csv", Version: -1}},
		{in: "sample.csv:v0", want: Identifier{Name: "sample.csv", Version: 0}},
		{in: " clean_sample.csv:v12 ", want: Identifier{Name: "clean_sample.csv", Version: 12}},
		{in: "", wantErr: true},
		{in: ":v1", wantErr: true},
		{in: "sample.csv:prod", wantErr: true},
		{in: "sample.csv:v", wantErr: true},
		{in: "sample.csv:v-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIdentifier(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentifierString(t *testing.T) {
	assert.Equal(t, "sample.csv:latest", Identifier{Name: "sample.csv", Version: -1}.String())
	assert.Equal(t, "sample.csv:v3", Identifier{Name: "sample.csv", Version: 3}.String())
}
