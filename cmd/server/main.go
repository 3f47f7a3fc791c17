package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gofrs/flock"

	"github.com/s9gf4ult/haskell-mode/internal/auth"
	"github.com/s9gf4ult/haskell-mode/internal/config"
	"github.com/s9gf4ult/haskell-mode/internal/history"
	"github.com/s9gf4ult/haskell-mode/internal/logger"
	"github.com/s9gf4ult/haskell-mode/internal/mcp"
	"github.com/s9gf4ult/haskell-mode/internal/schedule"
	"github.com/s9gf4ult/haskell-mode/internal/session"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	// Check for subcommands before parsing flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "token":
			cmdToken(os.Args[2:])
			return
		case "--version", "-v":
			fmt.Printf("haskell-mode-server %s\n", Version)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	runServer()
}

func printUsage() {
	fmt.Printf(`haskell-mode-server %s - GHCi session server over MCP

Usage: haskell-mode-server [command] [options]

Commands:
  (default)    Start the MCP server
  token        Manage authentication tokens

Server Options:
  --config <path>    Configuration file (default: ~/.haskell-mode/config.jsonc)
  --address <addr>   Listen address, overrides the config file

Examples:
  haskell-mode-server                          Start with the default config
  haskell-mode-server --address :9000          Listen on all interfaces
  haskell-mode-server token create --name ci --scope write
`, Version)
}

func runServer() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "Configuration file path")
	address := flag.String("address", "", "Listen address (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("haskell-mode-server %s\n", Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *address != "" {
		cfg.Server.Address = *address
	}

	// Reject bad cron expressions before anything else starts.
	for _, entry := range cfg.Schedules {
		if err := schedule.ValidateCron(entry.Cron); err != nil {
			log.Fatalf("Schedule %q: %v", entry.Name, err)
		}
	}

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// One server per data directory.
	dirLock := flock.New(filepath.Join(cfg.Server.DataDir, "server.lock"))
	locked, err := dirLock.TryLock()
	if err != nil {
		log.Fatalf("Failed to acquire lock: %v", err)
	}
	if !locked {
		log.Fatalf("Server already running (lock held on %s)", cfg.Server.DataDir)
	}
	defer func() { _ = dirLock.Unlock() }()

	if err := logger.Init(cfg.Server.LogDir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	var histStore *history.Store
	if cfg.History.Enabled {
		histStore, err = history.NewStore(cfg.Server.DataDir)
		if err != nil {
			logger.Fatalf("Failed to open history store: %v", err)
		}
		defer func() { _ = histStore.Close() }()
	}

	var authStore *auth.Store
	if !cfg.Server.AuthDisabled {
		authStore, err = auth.NewStore(cfg.Server.DataDir)
		if err != nil {
			logger.Fatalf("Failed to open auth store: %v", err)
		}
		defer func() { _ = authStore.Close() }()
	}

	sessionMgr := session.NewManager(cfg, histStore)

	server, err := mcp.NewServer(cfg, sessionMgr, histStore, authStore)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}

	logger.Info("haskell-mode-server %s, %d profile(s) configured", Version, len(cfg.Profiles))
	for _, entry := range cfg.Schedules {
		next, _ := schedule.NextRun(entry.Cron, time.Now())
		logger.Info("Schedule %s (%s): next run %s", entry.Name, entry.Cron, next.Format(time.RFC3339))
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(cfg.Server.Address)
	}()

	select {
	case err := <-serverErr:
		logger.Fatalf("Server error: %v", err)
	case sig := <-shutdownChan:
		logger.Info("Received signal %v, shutting down", sig)
		server.Close()
		if histStore != nil {
			_ = histStore.Close()
		}
		if authStore != nil {
			_ = authStore.Close()
		}
		_ = dirLock.Unlock()
		logger.Info("Shutdown complete")
		_ = logger.Close()
		os.Exit(0)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Default(), nil
	}
	return config.Load(filepath.Join(home, ".haskell-mode", "config.jsonc"))
}

// cmdToken handles the 'token' subcommand for managing authentication tokens
func cmdToken(args []string) {
	if len(args) < 1 {
		printTokenUsage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	cfg, err := loadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	store, err := auth.NewStore(cfg.Server.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing auth store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	switch cmd {
	case "create":
		tokenCreate(store, cmdArgs)
	case "list":
		tokenList(store)
	case "revoke":
		tokenRevoke(store, cmdArgs)
	case "help", "-h", "--help":
		printTokenUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown token command: %s\n", cmd)
		printTokenUsage()
		os.Exit(1)
	}
}

func printTokenUsage() {
	fmt.Println(`Token Management

Usage: haskell-mode-server token <command> [options]

Commands:
  create    Create a new API token
  list      List all tokens
  revoke    Revoke a token
  help      Show this help

Scopes:
  read      Inspect sessions, history, completions
  write     Evaluate and manage sessions
  admin     Everything, plus token management

Examples:
  haskell-mode-server token create --name "Local Dev" --scope admin
  haskell-mode-server token list
  haskell-mode-server token revoke hm_xxxx...`)
}

func tokenCreate(store *auth.Store, args []string) {
	fs := flag.NewFlagSet("token create", flag.ExitOnError)
	name := fs.String("name", "", "Human-readable token name (required)")
	scope := fs.String("scope", "", "Token scope: read, write, or admin (required)")
	_ = fs.Parse(args)

	if *name == "" || *scope == "" {
		fmt.Fprintln(os.Stderr, "Error: --name and --scope are required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	token, tokenID, err := store.CreateToken(*name, *scope, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Token created successfully!")
	fmt.Println()
	fmt.Printf("Token: %s\n", tokenID)
	fmt.Printf("Name:  %s\n", token.Name)
	fmt.Printf("Scope: %s\n", token.Scope)
	fmt.Println()
	fmt.Println("IMPORTANT: Save this token now. It cannot be retrieved later.")
}

func tokenList(store *auth.Store) {
	tokens, err := store.ListTokens()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing tokens: %v\n", err)
		os.Exit(1)
	}

	if len(tokens) == 0 {
		fmt.Println("No tokens found.")
		fmt.Println()
		fmt.Println("Create one with: haskell-mode-server token create --name \"My Token\" --scope admin")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSCOPE\tCREATED\tLAST USED")
	for _, t := range tokens {
		lastUsed := "never"
		if t.LastUsedAt != nil {
			lastUsed = t.LastUsedAt.Format("2006-01-02 15:04")
		}
		id := t.ID
		if len(id) > 16 {
			id = id[:12] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			id, t.Name, t.Scope, t.CreatedAt.Format("2006-01-02 15:04"), lastUsed)
	}
	_ = w.Flush()
}

func tokenRevoke(store *auth.Store, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: token required")
		fmt.Fprintln(os.Stderr, "Usage: haskell-mode-server token revoke <token>")
		os.Exit(1)
	}

	if err := store.RevokeToken(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error revoking token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Token revoked.")
}
