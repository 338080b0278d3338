package sqlgen

import (
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

// PrefixToken stands for the configured table prefix in rendered text.
const PrefixToken = "#__"

// Substitute replaces the prefix token with prefix and the now token with the
// dialect's current-time expression. String literals are left alone. Inside
// quoted identifiers only the prefix token is replaced.
func Substitute(d Dialect, query, prefix string) string {
	if !strings.Contains(query, PrefixToken) && !strings.Contains(query, ast.NowToken) {
		return query
	}

	now := d.Now()
	backslash := d.Name() == "mysql"

	var out strings.Builder
	out.Grow(len(query))

	var quote byte
	for i := 0; i < len(query); i++ {
		ch := query[i]

		if quote != 0 {
			if identifierQuote(d, quote) && strings.HasPrefix(query[i:], PrefixToken) {
				out.WriteString(prefix)
				i += len(PrefixToken) - 1
				continue
			}
			out.WriteByte(ch)
			switch {
			case backslash && ch == '\\' && quote != '`' && i+1 < len(query):
				i++
				out.WriteByte(query[i])
			case ch == quote && i+1 < len(query) && query[i+1] == quote:
				i++
				out.WriteByte(query[i])
			case ch == quote:
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			out.WriteByte(ch)
		case strings.HasPrefix(query[i:], PrefixToken):
			out.WriteString(prefix)
			i += len(PrefixToken) - 1
		case strings.HasPrefix(query[i:], ast.NowToken):
			out.WriteString(now)
			i += len(ast.NowToken) - 1
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}

// identifierQuote reports whether ch opens a quoted identifier rather than a
// string literal.
func identifierQuote(d Dialect, ch byte) bool {
	return ch == '`' || (ch == '"' && d.Name() != "mysql")
}
