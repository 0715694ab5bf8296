// Command forgeflow runs the workflow engine: the HTTP+MCP server (serve),
// a stdio MCP transport (mcp-stdio), migration management (migrate) and
// operator utilities (admin).
package main

import (
	"fmt"
	"log/slog"
	"os"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !isFlag(args[0]) {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "mcp-stdio":
		err = runMCPStdio(args)
	case "migrate":
		err = runMigrate(args)
	case "admin":
		err = runAdmin(args)
	case "version":
		fmt.Println("forgeflow " + version)
	case "help", "--help", "-h":
		printHelp()
	default:
		printHelp()
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func isFlag(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: forgeflow [command] [options]

Commands:
  serve        Run the engine: REST API, WebSocket hub and MCP SSE server (default)
  mcp-stdio    Run the MCP server over stdin/stdout
  migrate      Manage database migrations (up, down, status)
  admin        Operator utilities (gen-key, list-projects)
  version      Print the version
  help         Show this help message

Options for serve (also read from forgeflow.yaml and FORGEFLOW_* env):
  -config, -c  path to YAML config file
  -port, -p    HTTP listen port
  -dsn         PostgreSQL connection string
  -nats-url    NATS server URL
  -log-level   log level (debug, info, warn, error)
`)
}
