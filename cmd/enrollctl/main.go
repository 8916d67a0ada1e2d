// Command enrollctl administers an enrollment database from the terminal:
// schema migrations, seeding, staff accounts and quick reports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/bootstrap"
	"github.com/yigit/enrolladmin/internal/config"
	"github.com/yigit/enrolladmin/internal/db"
)

var readPasswordFunc = term.ReadPassword // mockable

// env is what every subcommand runs against
type env struct {
	cfg   *config.Config
	store repositories.Store
	db    *db.PostgresDB // nil with the memory driver
	lgr   zerolog.Logger
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

type cli struct {
	out        io.Writer
	configPath string
	verbose    bool
	noColor    bool
	open       func(ctx context.Context, c *cli) (*env, error)
}

func openEnv(ctx context.Context, c *cli) (*env, error) {
	if c.configPath != "" {
		bootstrap.DefaultConfigPath = c.configPath
	}
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, err
	}
	if !c.verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	// migrations only run when asked for
	cfg.Database.MigrateOnStart = false
	store, database, err := bootstrap.OpenStore(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: store, db: database, lgr: lgr}, nil
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "enrollctl",
		Short:         "Administer the enrollment database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config.yaml (default configs/config.yaml or $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "show info level logs")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newMigrateCmd(c),
		newSeedCmd(c),
		newCreateUserCmd(c),
		newMetricsCmd(c),
		newStudentsCmd(c),
	)
	return root
}

// withEnv opens the environment for the duration of run
func (c *cli) withEnv(cmd *cobra.Command, run func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := c.open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()
	return run(ctx, e)
}

func main() {
	c := &cli{out: os.Stdout, open: openEnv}
	if err := newRootCmd(c).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func okf(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(w, format, args...)
	fmt.Fprintln(w)
}
