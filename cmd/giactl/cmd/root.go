package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/config"
	"github.com/garyjia/grant-portal/internal/container"
	"github.com/garyjia/grant-portal/pkg/utils"
)

// SessionID is the session the CLI keeps in the portal's session store
const SessionID = "cli"

// Services are the application services the commands drive
type Services struct {
	Auth      service.AuthService
	Dashboard service.DashboardService
	Entry     service.EntryService
	Export    service.ExportService
}

// App is the state shared by all commands of one invocation
type App struct {
	Services    Services
	DefaultSite string
	SessionID   string

	// ReadPassword reads a secret without echoing it; nil reads a plain
	// line from the command's input
	ReadPassword func() (string, error)
	Close        func() error
}

// Builder creates the App for a config file path
type Builder func(ctx context.Context, configPath string) (*App, error)

type rootOptions struct {
	configPath string
	app        *App
}

// close releases whatever the builder opened
func (o *rootOptions) close() error {
	if o.app == nil || o.app.Close == nil {
		return nil
	}
	return o.app.Close()
}

// newRootCmd returns the giactl command tree
func newRootCmd(build Builder) (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "giactl",
		Short: "giactl - command line client for the Grant-In-Aid portal",
		Long: `giactl signs in to the Record API and works with Grant-In-Aid
conference/seminar records: listing, status changes, comments, new
records and single-record exports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := build(cmd.Context(), opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			if app.SessionID == "" {
				app.SessionID = SessionID
			}
			if _, err := app.Services.Auth.OpenSession(cmd.Context(), app.SessionID); err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			opts.app = app
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("GIA_CONFIG"), "path to config file")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newSiteCmd(opts),
		newRecordsCmd(opts),
		newHistoryCmd(opts),
	)
	return root, opts
}

// Run executes args and releases the App afterwards, also when a command fails
func Run(ctx context.Context, build Builder, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root, opts := newRootCmd(build)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := opts.close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close: %w", cerr)
	}
	return err
}

// Execute runs giactl against the configured portal backend
func Execute() {
	if err := Run(context.Background(), buildApp, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		printError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// buildApp wires the same container the portal server runs on
func buildApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cliLogPath(cfg.Logger.OutputPath),
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return nil, err
	}

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	services := c.Services()
	app := &App{
		Services: Services{
			Auth:      services.Auth,
			Dashboard: services.Dashboard,
			Entry:     services.Entry,
			Export:    services.Export,
		},
		DefaultSite: c.Config().Dashboard.DefaultSite,
		SessionID:   SessionID,
		Close: func() error {
			defer func() { _ = logger.Sync() }()
			if err := c.Close(); err != nil {
				logger.Error("Failed to close container", zap.Error(err))
				return err
			}
			return nil
		},
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		app.ReadPassword = readTerminalPassword
	}
	return app, nil
}

// cliLogPath keeps log lines off stdout so command output stays clean
func cliLogPath(path string) string {
	if path == "" || path == "stdout" {
		return "stderr"
	}
	return path
}

func printSuccess(w io.Writer, msg string) {
	color.New(color.FgGreen).Fprintln(w, "✔ "+msg)
}

func printError(w io.Writer, msg string) {
	color.New(color.FgRed).Fprintln(w, "✘ "+msg)
}

func printInfo(w io.Writer, msg string) {
	color.New(color.FgCyan).Fprintln(w, msg)
}
