package ghci

// responseBuffer accumulates raw subprocess output for the current
// command and tracks how far sentinel scanning has progressed. Owned
// exclusively by the Process; reset to empty whenever no command is
// current.
type responseBuffer struct {
	content []byte
	cursor  int
}

func (b *responseBuffer) append(p []byte) {
	b.content = append(b.content, p...)
}

func (b *responseBuffer) len() int {
	return len(b.content)
}

func (b *responseBuffer) String() string {
	return string(b.content)
}

// reset clears content and cursor, ready for the next command.
func (b *responseBuffer) reset() {
	b.content = nil
	b.cursor = 0
}
