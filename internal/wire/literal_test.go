package wire

import (
	"errors"
	"testing"
)

func TestEncodeLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "putStrLn", `"putStrLn"`},
		{"empty", "", `""`},
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"control", "\x04", `"\4"`},
		{"control then digit", "\x042", `"\4\&2"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeLiteral(tt.in); got != tt.want {
				t.Errorf("EncodeLiteral(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `"putStrLn"`, "putStrLn"},
		{"empty", `""`, ""},
		{"quote", `"say \"hi\""`, `say "hi"`},
		{"newline", `"a\nb"`, "a\nb"},
		{"decimal", `"\4"`, "\x04"},
		{"decimal then digit", `"\4\&2"`, "\x042"},
		{"empty escape", `"a\&b"`, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeLiteral(tt.in)
			if err != nil {
				t.Fatalf("DecodeLiteral(%s) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("DecodeLiteral(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeLiteralErrors(t *testing.T) {
	bad := []string{
		``, `"`, `no quotes`, `"unterminated`, `"trailing\"`,
		`"bad \x escape"`, `"inner " quote"`,
	}
	for _, tok := range bad {
		if _, err := DecodeLiteral(tok); !errors.Is(err, ErrBadLiteral) {
			t.Errorf("DecodeLiteral(%q) error = %v, want ErrBadLiteral", tok, err)
		}
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"foldr",
		"Data.Map.insertWith",
		`quoted "name"`,
		"line one\nline two",
		"tabs\tand\rreturns",
		`back\slash`,
		"sentinel \x04 byte",
		"\x042 digit follows",
		"mixed \"\\\n\t end",
	}
	for _, in := range inputs {
		enc := EncodeLiteral(in)
		got, err := DecodeLiteral(enc)
		if err != nil {
			t.Fatalf("DecodeLiteral(EncodeLiteral(%q)) returned error: %v", in, err)
		}
		if got != in {
			t.Errorf("round trip of %q = %q via %s", in, got, enc)
		}
	}
}
