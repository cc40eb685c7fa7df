package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var caseConversionTests = []struct {
	pascalCase string
	snakeCase  string
}{
	{"ID", "id"},
	{"VideoID", "video_id"},
	{"Title", "title"},
	{"ChannelName", "channel_name"},
	{"ChannelID", "channel_id"},
	{"ViewCount", "view_count"},
	{"EngagementRatio", "engagement_ratio"},
	{"YouTubeAPIKey", "you_tube_api_key"},
	{"LogDebugLevels", "log_debug_levels"},
	{"SheetName", "sheet_name"},
	{"CreatedAt", "created_at"},
}

func TestPascalToSnake(t *testing.T) {
	for _, tc := range caseConversionTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.snakeCase, PascalToSnake(tc.pascalCase))
		})
	}
}

func BenchmarkPascalToSnake(b *testing.B) {
	for _, tc := range caseConversionTests {
		b.Run(tc.pascalCase, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				PascalToSnake(tc.pascalCase)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  string
		n      int
		output string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"long", "abcdef", 5, "abcde..."},
		{"multibyte", "日本語のタイトル", 3, "日本語..."},
		{"empty", "", 3, ""},
		{"zero", "abc", 0, "..."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.output, Truncate(tc.input, tc.n, "..."))
		})
	}
}

func TestJoinLimit(t *testing.T) {
	a := assert.New(t)

	a.Equal("", JoinLimit(nil, 5, ", ", "..."))
	a.Equal("a, b", JoinLimit([]string{"a", "b"}, 5, ", ", "..."))
	a.Equal("a, b, c, d, e", JoinLimit([]string{"a", "b", "c", "d", "e"}, 5, ", ", "..."))
	a.Equal("a, b, c, d, e...", JoinLimit([]string{"a", "b", "c", "d", "e", "f"}, 5, ", ", "..."))
}

func TestSplitList(t *testing.T) {
	a := assert.New(t)

	a.Equal([]string{"vlog", "travel japan", "料理"}, SplitList(" vlog, travel japan\n料理,, "))
	a.Nil(SplitList(""))
}

func TestLooksTrue(t *testing.T) {
	a := assert.New(t)

	a.True(LooksTrue("yes"))
	a.True(LooksTrue(" TRUE "))
	a.False(LooksTrue("no"))
	a.False(LooksTrue(""))
}
