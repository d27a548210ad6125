package networking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "bare port", in: "9100", want: ":9100"},
		{name: "colon port", in: ":9100", want: ":9100"},
		{name: "host and port", in: "127.0.0.1:9100", want: "127.0.0.1:9100"},
		{name: "os assigned", in: "localhost:0", want: "localhost:0"},
		{name: "ipv6", in: "[::1]:9100", want: "[::1]:9100"},
		{name: "trims spaces", in: " :80 ", want: ":80"},
		{name: "empty", in: "", wantErr: ErrEmptyAddr},
		{name: "not a number", in: ":http", wantErr: ErrInvalidFormat},
		{name: "too large", in: ":70000", wantErr: ErrPortOutOfRange},
		{name: "negative", in: ":-1", wantErr: ErrPortOutOfRange},
		{name: "garbage", in: "a:b:c", wantErr: ErrInvalidFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeListenAddr(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetRandomPort(t *testing.T) {
	t.Parallel()

	a := GetRandomPort(t)
	b := GetRandomPort(t)
	assert.NotEqual(t, a, b)
	assert.Positive(t, a)
	assert.Contains(t, GetRandomListeningAddr(t), "127.0.0.1:")
}
