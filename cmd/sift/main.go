package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/termfx/sift/db"
	"github.com/termfx/sift/internal/config"
	"github.com/termfx/sift/internal/logging"
	"github.com/termfx/sift/matcher"
	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/providers/catalog"
	"github.com/termfx/sift/search"
)

const version = "0.3.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes one command line and releases the database afterwards.
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	dbURL      string
	scope      string
	debug      bool

	cfg       *config.Config
	logger    *zap.Logger
	languages *providers.Registry
	conn      *gorm.DB
	store     *db.Store
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sift",
		Short:         "Structural search and replace over syntax trees",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default .sift.yaml in the working directory)")
	flags.StringVar(&a.dbURL, "db", "", "configuration database path, libsql URL or postgres URL")
	flags.StringVar(&a.scope, "scope", "", "configuration scope")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newSearchCmd(a),
		newReplaceCmd(a),
		newValidateCmd(a),
		newWatchCmd(a),
		newLanguagesCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// init loads the configuration; flags override file and environment values.
func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbURL != "" {
		cfg.DatabaseURL = a.dbURL
	}
	if a.scope != "" {
		cfg.Scope = a.scope
	}
	if a.debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	a.languages = catalog.Default()
	return nil
}

// openStore connects to the configuration database on first use.
func (a *app) openStore() (*db.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	conn, err := db.Connect(a.cfg.DatabaseURL, a.cfg.Debug)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	a.store = db.NewStore(conn)
	a.logger.Debug("opened configuration database", zap.String("url", a.cfg.DatabaseURL), zap.String("scope", a.cfg.Scope))
	return a.store, nil
}

func (a *app) close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.conn == nil {
		return nil
	}
	err := db.Close(a.conn)
	a.conn, a.store = nil, nil
	return err
}

// service builds a search service whose within/contains predicates resolve
// names from the configured scope.
func (a *app) service(record bool) (*search.Service, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	compiler := matcher.NewCompiler(a.languages, store.Registry(a.cfg.Scope), matcher.WithLogger(a.logger))
	opts := []search.Option{
		search.WithWorkers(a.cfg.Workers),
		search.WithLogger(a.logger),
	}
	if record {
		opts = append(opts, search.WithRecorder(store, a.cfg.Scope))
	}
	return search.New(a.languages, compiler, opts...), nil
}

var errNoPattern = errors.New("a pattern or --from is required")
