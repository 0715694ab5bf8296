package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/forgeflow/forgeflow/internal/adapter/postgres"
	"github.com/forgeflow/forgeflow/internal/config"
)

// runAdmin dispatches admin subcommands (gen-key, list-projects).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "gen-key":
		return runAdminGenKey(args[1:])
	case "list-projects":
		return runAdminListProjects(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: forgeflow admin <command> [options]

Commands:
  gen-key          Generate an API key and its bcrypt hash for the config
  list-projects    List all projects
  help             Show this help message

Examples:
  forgeflow admin gen-key
  forgeflow admin gen-key --prompt
  forgeflow admin list-projects
`)
}

// runAdminGenKey prints a fresh API key and the bcrypt hash to put in
// auth.api_key_hashes. With --prompt the operator supplies the key instead
// (read without echo) and only the hash is printed.
func runAdminGenKey(args []string) error {
	fs := flag.NewFlagSet("gen-key", flag.ContinueOnError)
	prompt := fs.Bool("prompt", false, "hash a key entered at the terminal instead of generating one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var key string
	if *prompt {
		entered, err := promptSecret("API key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		confirm, err := promptSecret("Confirm key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if entered != confirm {
			return fmt.Errorf("keys do not match")
		}
		key = entered
	} else {
		key = "ff_" + uuid.NewString()
	}
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}

	if !*prompt {
		fmt.Printf("key:  %s\n", key)
	}
	fmt.Printf("hash: %s\n", hash)
	fmt.Fprintln(os.Stderr, "Add the hash to auth.api_key_hashes (or FORGEFLOW_API_KEY_HASHES). The key itself is not stored.")
	return nil
}

func runAdminListProjects(args []string) error {
	fs := flag.NewFlagSet("list-projects", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHASE\tSTATUS\tFEATURES\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d/%d\t%s\n",
			p.ID, p.Name, p.CurrentPhase, p.Status,
			p.FeaturesComplete, p.FeaturesTotal,
			p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// promptSecret reads a line from the terminal without echoing it.
func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // windows needs the conversion
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
