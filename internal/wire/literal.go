// Package wire implements the flat text conventions shared with GHCi:
// Haskell-style string literals used to pack strings as quoted tokens in
// requests (":complete repl \"...\"") and to unpack candidate strings from
// responses.
package wire

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadLiteral indicates a token that is not a well-formed quoted literal.
var ErrBadLiteral = errors.New("malformed string literal")

// EncodeLiteral packs s as a double-quoted token. Quotes, backslashes and
// common control characters are escaped the way GHCi expects them; other
// control bytes use decimal escapes.
func EncodeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				// Decimal escape. \& stops a following digit from being
				// swallowed into the escape on the way back.
				b.WriteString(fmt.Sprintf(`\%d`, c))
				if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
					b.WriteString(`\&`)
				}
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// DecodeLiteral unpacks a double-quoted token produced by EncodeLiteral or
// printed by GHCi. It accepts the character escapes EncodeLiteral emits,
// decimal escapes, and the empty escape \&.
func DecodeLiteral(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", fmt.Errorf("%w: %q", ErrBadLiteral, tok)
	}
	body := tok[1 : len(tok)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			if c == '"' {
				return "", fmt.Errorf("%w: unescaped quote in %q", ErrBadLiteral, tok)
			}
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("%w: trailing backslash in %q", ErrBadLiteral, tok)
		}
		switch e := body[i]; e {
		case '"':
			b.WriteByte('"')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '&':
			i++
		default:
			if e < '0' || e > '9' {
				return "", fmt.Errorf("%w: unknown escape \\%c in %q", ErrBadLiteral, e, tok)
			}
			n := 0
			for i < len(body) && body[i] >= '0' && body[i] <= '9' {
				n = n*10 + int(body[i]-'0')
				if n > 0x10ffff {
					return "", fmt.Errorf("%w: escape out of range in %q", ErrBadLiteral, tok)
				}
				i++
			}
			b.WriteRune(rune(n))
		}
	}
	return b.String(), nil
}
