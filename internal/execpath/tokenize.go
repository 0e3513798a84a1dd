package execpath

import "strings"

// Tokenize splits a command line on whitespace, keeping double-quoted
// segments together. Quotes delimiting a segment are stripped; an escaped
// quote (`\"`) inside a segment is preserved literally and does not end the
// segment. An unterminated quote runs to the end of the line.
func Tokenize(command string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	quoted := false

	flush := func() {
		if cur.Len() > 0 || quoted {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		quoted = false
	}

	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(command) && command[i+1] == '"':
			cur.WriteByte('\\')
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuote = !inQuote
			quoted = true
		case !inQuote && (c == ' ' || c == '\t'):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

// QuoteIfNeeded wraps token in double quotes when it contains whitespace and
// is not already quoted.
func QuoteIfNeeded(token string) string {
	if !strings.ContainsAny(token, " \t") {
		return token
	}
	if strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) && len(token) > 1 {
		return token
	}
	return `"` + token + `"`
}

// TrimQuotes removes one pair of surrounding double quotes from token.
func TrimQuotes(token string) string {
	if strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) && len(token) > 1 {
		return token[1 : len(token)-1]
	}
	return token
}
