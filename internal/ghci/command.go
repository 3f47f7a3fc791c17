// Package ghci implements the command-queue-and-protocol engine that
// drives an inferior GHCi process: serialized commands, incremental
// response collection, and completion detection via the sentinel prompt
// byte.
package ghci

// Sentinel is the reserved control byte that marks the end of one
// command's response. The process is started with the prompt set to this
// byte (:set prompt "\4"), so it never appears in normal output.
const Sentinel byte = 0x04

// Command is one unit of work executed against the inferior process.
//
// A Command is immutable after construction; only the contents of State
// may change. State is owned by the caller and is typically shared by
// reference so results can be extracted after completion.
type Command struct {
	// State is opaque to the driver and passed to every callback.
	State any

	// Issue writes the command to the process. It is invoked exactly
	// once, when the command becomes current. Side effects only.
	Issue func(state any)

	// Live is invoked zero or more times as partial response data
	// accumulates, before the sentinel is seen. Returning true asks the
	// driver to re-invoke it within the same drain cycle; the driver
	// stops regardless once the response has not grown since the
	// previous call. Optional.
	Live func(state any, response string) bool

	// Complete is invoked exactly once with the final response text
	// (sentinel stripped). It is never invoked if the process dies
	// first. A returned error is logged by the driver and does not stop
	// the queue. Optional.
	Complete func(state any, response string) error
}
