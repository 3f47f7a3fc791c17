package ghci

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/s9gf4ult/haskell-mode/internal/wire"
)

// The identifier-completion sub-protocol rides on :complete. GHCi answers
// with a header line "<returned> <total> \"<prefix>\"" followed by
// exactly <returned> candidate lines, each a quoted string literal.
const (
	completeCommand = ":complete repl"

	// unknownCommandMarker opens GHCi's reply when :complete does not
	// exist (pre-7.8 or a restricted REPL).
	unknownCommandMarker = "unknown command"
)

var (
	// ErrNoCompletionSupport means the REPL does not implement the
	// :complete command.
	ErrNoCompletionSupport = errors.New("repl does not support completion")

	// ErrMalformedHeader means the completion response header could not
	// be parsed.
	ErrMalformedHeader = errors.New("malformed completion header")

	// ErrCountMismatch means the header's declared candidate count does
	// not match the number of lines that followed.
	ErrCountMismatch = errors.New("completion count mismatch")
)

// Completions is a parsed completion response.
type Completions struct {
	// Prefix is the part of the input GHCi considers already matched.
	Prefix string
	// Candidates are the decoded completion strings, in server order.
	Candidates []string
	// Total is the full number of matches known to the server, which may
	// exceed len(Candidates).
	Total int
}

// CompleteIdentifier asks the REPL to complete input and parses the
// response. Protocol violations surface as typed errors and leave the
// queue usable for subsequent commands.
func (p *Process) CompleteIdentifier(ctx context.Context, input string) (*Completions, error) {
	request := completeCommand + " " + wire.EncodeLiteral(input)
	response, err := p.SyncRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	return parseCompletions(response)
}

func parseCompletions(response string) (*Completions, error) {
	trimmed := strings.TrimRight(response, "\r\n")
	if strings.HasPrefix(strings.TrimLeft(trimmed, "\r\n "), unknownCommandMarker) {
		return nil, ErrNoCompletionSupport
	}

	lines := strings.Split(trimmed, "\n")
	header := strings.TrimRight(lines[0], "\r")

	returned, total, prefixTok, err := splitHeader(header)
	if err != nil {
		return nil, err
	}
	prefix, err := wire.DecodeLiteral(prefixTok)
	if err != nil {
		return nil, fmt.Errorf("%w: bad prefix %q", ErrMalformedHeader, prefixTok)
	}

	body := lines[1:]
	if len(body) == 1 && body[0] == "" {
		body = nil
	}
	if len(body) != returned {
		return nil, fmt.Errorf("%w: header declared %d candidates, got %d lines",
			ErrCountMismatch, returned, len(body))
	}

	candidates := make([]string, 0, returned)
	for i, line := range body {
		cand, err := wire.DecodeLiteral(strings.TrimRight(line, "\r"))
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i+1, err)
		}
		candidates = append(candidates, cand)
	}

	return &Completions{Prefix: prefix, Candidates: candidates, Total: total}, nil
}

// splitHeader parses `<returned> <total> "<prefix>"`.
func splitHeader(header string) (returned, total int, prefixTok string, err error) {
	rest := strings.TrimSpace(header)

	field := func() (string, bool) {
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			return "", false
		}
		f := rest[:i]
		rest = strings.TrimLeft(rest[i+1:], " ")
		return f, true
	}

	f1, ok1 := field()
	f2, ok2 := field()
	if !ok1 || !ok2 || rest == "" {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrMalformedHeader, header)
	}
	if returned, err = strconv.Atoi(f1); err != nil || returned < 0 {
		return 0, 0, "", fmt.Errorf("%w: bad count in %q", ErrMalformedHeader, header)
	}
	if total, err = strconv.Atoi(f2); err != nil || total < 0 {
		return 0, 0, "", fmt.Errorf("%w: bad total in %q", ErrMalformedHeader, header)
	}
	return returned, total, rest, nil
}
