package mcp

// registerAllTools registers all MCP tools with the registry
func (s *Server) registerAllTools(r *Registry) {
	s.registerSessionTools(r)
	s.registerEvalTools(r)
	s.registerTokenTools(r)
	s.registerScheduleTools(r)
}

func (s *Server) registerSessionTools(r *Registry) {
	Register(r, ToolDef{
		Name: "session_start",
		Description: `Start a named GHCi session from a configured profile.

The subprocess is spawned, the profile's setup commands run (installing the
prompt delimiter), and the session becomes available for eval/complete.
Session names must be unique; starting an existing name is an error.`,
		Access: AccessWrite,
	}, s.handleSessionStart)

	Register(r, ToolDef{
		Name: "session_stop",
		Description: `Stop a session and terminate its subprocess.

Pending commands are discarded. The name becomes available again.`,
		Access: AccessWrite,
	}, s.handleSessionStop)

	Register(r, ToolDef{
		Name: "session_restart",
		Description: `Restart a session's subprocess from its original profile.

The old process is killed and a fresh one is spawned under the same name.
Pending commands on the old process are discarded, and setup commands run
again. Use after the REPL has wedged or leaked too much state.`,
		Access: AccessWrite,
	}, s.handleSessionRestart)

	Register(r, ToolDef{
		Name: "session_list",
		Description: `List running sessions with their profile, state (idle/busy/dead),
queue depth, and start time.`,
		Access: AccessRead,
	}, s.handleSessionList)
}

func (s *Server) registerEvalTools(r *Registry) {
	Register(r, ToolDef{
		Name: "eval",
		Description: `Evaluate one line of input in a GHCi session and return the response.

Blocks until the REPL's delimited response arrives. Input may be a Haskell
expression or a GHCi :command (:type, :info, :load, :reload, ...). Commands
queue in FIFO order when the session is busy.`,
		Access: AccessWrite,
	}, s.handleEval)

	Register(r, ToolDef{
		Name: "complete",
		Description: `Ask a session's GHCi for identifier completions of a prefix.

Uses the REPL's ":complete repl" sub-protocol. Returns the common prefix
and candidate identifiers. Errors when the REPL does not support completion.`,
		Access: AccessRead,
	}, s.handleComplete)

	Register(r, ToolDef{
		Name: "history",
		Description: `List the recorded request/response history of a session, newest first.

Each entry carries the input, response, status, and duration.`,
		Access: AccessRead,
	}, s.handleHistory)
}

func (s *Server) registerTokenTools(r *Registry) {
	Register(r, ToolDef{
		Name: "token_create",
		Description: `Create an API token. Admin only.

Scopes: read (inspect sessions/history), write (evaluate and manage
sessions), admin (additionally manage tokens). The token value is shown
once and cannot be retrieved later.`,
		Access: AccessAdmin,
	}, s.handleTokenCreate)

	Register(r, ToolDef{
		Name:        "token_list",
		Description: `List API tokens (masked) with scope, creation and last-use times. Admin only.`,
		Access:      AccessAdmin,
	}, s.handleTokenList)

	Register(r, ToolDef{
		Name:        "token_revoke",
		Description: `Revoke an API token by its full value. Admin only.`,
		Access:      AccessAdmin,
	}, s.handleTokenRevoke)
}

func (s *Server) registerScheduleTools(r *Registry) {
	Register(r, ToolDef{
		Name: "schedule_list",
		Description: `List configured cron schedules with their target session, command,
state, and next run time.`,
		Access: AccessRead,
	}, s.handleScheduleList)

	Register(r, ToolDef{
		Name:        "schedule_run",
		Description: `Trigger a configured schedule immediately, ignoring its cron expression.`,
		Access:      AccessWrite,
	}, s.handleScheduleRun)
}
