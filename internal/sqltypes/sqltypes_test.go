package sqltypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONStringSliceValue(t *testing.T) {
	a := assert.New(t)

	v, err := JSONStringSlice(nil).Value()
	a.NoError(err)
	a.Equal("[]", v)

	v, err = JSONStringSlice{"video_id", "日本語"}.Value()
	a.NoError(err)
	a.Equal(`["video_id","日本語"]`, v)
}

func TestJSONStringSliceScan(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input interface{}
		value JSONStringSlice
		error bool
	}{
		{"nil", nil, nil, false},
		{"string", `["a","b"]`, JSONStringSlice{"a", "b"}, false},
		{"bytes", []byte(`["a"]`), JSONStringSlice{"a"}, false},
		{"bad json", `[`, nil, true},
		{"bad type", 12, nil, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			var s JSONStringSlice
			err := s.Scan(tc.input)
			if tc.error {
				a.Error(err)
				return
			}

			a.NoError(err)
			a.Equal(tc.value, s)
		})
	}
}
