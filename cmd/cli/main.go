// Command cli inspects an easyext store. It manages tables, moves records
// in and out as JSON lines, syncs the repository with git remotes and
// renders declared grids and trees.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nickyhof/easyext"
	"github.com/nickyhof/easyext/config"
	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	nodeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	metaStyle    = lipgloss.NewStyle().Faint(true)
)

// globals holds the persistent flags shared by every command.
type globals struct {
	baseDir   string
	gitUrl    string
	database  string
	config    string
	userName  string
	userEmail string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "easyext",
		Short:         "Inspect grids and trees over a Git-backed record store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := ctxlog.New(g.logLevel, "text", cmd.ErrOrStderr())
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.baseDir, "baseDir", "", "Base directory for persistence (memory if empty)")
	flags.StringVar(&g.gitUrl, "gitUrl", "", "Git URL for remote sync")
	flags.StringVar(&g.database, "database", "easyext", "Database holding the records")
	flags.StringVar(&g.config, "config", "easyext.hcl", "HCL file or directory declaring grids and trees")
	flags.StringVar(&g.userName, "name", "easyext", "User name for Git commits")
	flags.StringVar(&g.userEmail, "email", "cli@easyext.local", "User email for Git commits")
	flags.StringVar(&g.logLevel, "logLevel", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newTableCmd(g),
		newImportCmd(g),
		newExportCmd(g),
		newGridCmd(g),
		newTreeCmd(g),
		newRemoteCmd(g),
		newPushCmd(g),
		newPullCmd(g),
	)
	return cmd
}

func (g *globals) openPersistence() (*ps.Persistence, error) {
	var (
		persistence *ps.Persistence
		err         error
	)
	if g.baseDir == "" {
		persistence, err = ps.NewMemoryPersistence()
	} else {
		var gitUrlPtr *string
		if g.gitUrl != "" {
			gitUrlPtr = &g.gitUrl
		}
		persistence, err = ps.NewFilePersistence(g.baseDir, gitUrlPtr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return persistence, nil
}

func (g *globals) openStore() (*db.Store, error) {
	persistence, err := g.openPersistence()
	if err != nil {
		return nil, err
	}

	return easyext.Open(persistence).Store(g.database, core.Identity{
		Name:  g.userName,
		Email: g.userEmail,
	})
}

func (g *globals) loadConfig(ctx context.Context, controller string) (*config.Controller, error) {
	cfg, err := config.Load(ctx, g.config)
	if err != nil {
		return nil, err
	}
	ctrl := cfg.Controller(controller)
	if ctrl == nil {
		return nil, fmt.Errorf("controller %q is not declared in %s", controller, g.config)
	}
	return ctrl, nil
}
