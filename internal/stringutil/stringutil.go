package stringutil

import (
	"bytes"
	"strings"
	"unicode"
)

func PascalToSnake(s string) string {
	var b bytes.Buffer

	for i, c := range s {
		if unicode.IsUpper(c) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				b.WriteByte('_')
			}

			b.WriteRune(unicode.ToLower(c))
		} else {
			b.WriteRune(c)
		}
	}

	return b.String()
}

func LooksTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on", "enabled", "enable", "active", "ok", "okay":
		return true
	default:
		return false
	}
}

// Truncate cuts s to at most n runes, appending suffix when anything was
// removed.
func Truncate(s string, n int, suffix string) string {
	if n < 0 {
		n = 0
	}

	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + suffix
		}
		i++
	}

	return s
}

// JoinLimit joins the first n elements of a with sep, appending more when
// elements were left out.
func JoinLimit(a []string, n int, sep, more string) string {
	if len(a) <= n {
		return strings.Join(a, sep)
	}

	return strings.Join(a[:n], sep) + more
}

// SplitList splits a comma or newline separated list, dropping blanks.
func SplitList(s string) []string {
	var r []string

	for _, e := range strings.FieldsFunc(s, func(c rune) bool { return c == ',' || c == '\n' }) {
		if e = strings.TrimSpace(e); e != "" {
			r = append(r, e)
		}
	}

	return r
}
