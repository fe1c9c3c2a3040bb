package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/internal/watch"
)

// queryFlags are shared by every command that takes a pattern.
type queryFlags struct {
	from        string
	language    string
	loose       bool
	constraints []string
	counts      []string
	include     []string
	exclude     []string
	noGitignore bool
}

func (q *queryFlags) register(cmd *cobra.Command, withScope bool) {
	f := cmd.Flags()
	f.StringVar(&q.from, "from", "", "use a saved configuration instead of a pattern")
	f.StringVarP(&q.language, "lang", "l", "go", "template language")
	f.BoolVar(&q.loose, "loose", false, "let the template skip extra target nodes")
	f.StringArrayVarP(&q.constraints, "constraint", "c", nil, "VAR=PREDICATE, e.g. x='within=handler' (repeatable)")
	f.StringArrayVar(&q.counts, "count", nil, "VAR=RANGE, e.g. args=0.. (repeatable)")
	if withScope {
		f.StringSliceVar(&q.include, "include", nil, "glob of files to include")
		f.StringSliceVar(&q.exclude, "exclude", nil, "glob of files to exclude")
		f.BoolVar(&q.noGitignore, "no-gitignore", false, "also search files listed in .gitignore")
	}
}

// options resolves the search options from --from or from the pattern and
// flags. It returns the arguments left after the pattern.
func (q *queryFlags) options(ctx context.Context, a *app, args []string) (core.SearchOptions, []string, error) {
	if q.from != "" {
		store, err := a.openStore()
		if err != nil {
			return core.SearchOptions{}, nil, err
		}
		c, err := store.Get(ctx, a.cfg.Scope, q.from)
		if err != nil {
			return core.SearchOptions{}, nil, err
		}
		return c.Options, args, nil
	}
	if len(args) == 0 {
		return core.SearchOptions{}, nil, errNoPattern
	}
	constraints, err := parseConstraints(q.constraints, q.counts)
	if err != nil {
		return core.SearchOptions{}, nil, err
	}
	return core.SearchOptions{
		Pattern:     args[0],
		Language:    q.language,
		Loose:       q.loose,
		Constraints: constraints,
	}, args[1:], nil
}

func (q *queryFlags) fileScope(a *app, args []string) core.FileScope {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	return core.FileScope{
		Path:        path,
		Include:     q.include,
		Exclude:     q.exclude,
		MaxFileSize: a.cfg.MaxFileSize,
		Gitignore:   !q.noGitignore,
	}
}

// parseConstraints merges VAR=PREDICATE and VAR=RANGE flags into one
// constraint per variable, in order of first mention.
func parseConstraints(predicates, counts []string) ([]core.Constraint, error) {
	var out []core.Constraint
	index := make(map[string]int)
	get := func(name string) *core.Constraint {
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.Constraint{Var: name})
		}
		return &out[i]
	}

	for _, p := range predicates {
		name, expr, ok := strings.Cut(p, "=")
		if !ok || name == "" || expr == "" {
			return nil, fmt.Errorf("invalid constraint %q, want VAR=PREDICATE", p)
		}
		c := get(name)
		if c.Predicate != "" {
			c.Predicate = "(" + c.Predicate + ") && (" + expr + ")"
		} else {
			c.Predicate = expr
		}
	}
	for _, p := range counts {
		name, rng, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid count %q, want VAR=RANGE", p)
		}
		get(name).Count = rng
	}
	return out, nil
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		q        queryFlags
		asJSON   bool
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "search [PATTERN] [PATH]",
		Short: "Find structural matches of a template",
		Example: `  sift search 'fmt.Errorf($msg$, $args$)' --count args=0.. .
  sift search --from wrapped-errors ./internal`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, rest, err := q.options(ctx, a, args)
			if err != nil {
				return err
			}
			svc, err := a.service(!noRecord)
			if err != nil {
				return err
			}
			report, err := svc.Search(ctx, q.fileScope(a, rest), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printMatches(cmd.OutOrStdout(), report.Matches)
			for _, fe := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", fe.FilePath, fe.Error)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d matches in %d files (%s)\n",
				len(report.Matches), report.FilesScanned, report.Duration.Round(time.Millisecond))
			return nil
		},
	}
	q.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&noRecord, "no-history", false, "do not record the run")
	return cmd
}

func newReplaceCmd(a *app) *cobra.Command {
	var (
		q     queryFlags
		write bool
	)
	cmd := &cobra.Command{
		Use:   "replace [PATTERN] REPLACEMENT [PATH]",
		Short: "Rewrite structural matches",
		Long: `Rewrite every outermost match of the template. $var$ in the replacement
stands for the text bound to the variable. Without --write only the diff is
printed.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, rest, err := q.options(ctx, a, args)
			if err != nil {
				return err
			}
			if len(rest) == 0 {
				return fmt.Errorf("a replacement is required")
			}
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			report, err := svc.ReplaceFiles(ctx, q.fileScope(a, rest[1:]), opts, rest[0], write)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			changed := 0
			for _, f := range report.Files {
				if f.Error != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f.FilePath, f.Error)
					continue
				}
				if f.Modified {
					changed++
				}
				fmt.Fprint(out, f.Diff)
			}
			if write {
				fmt.Fprintf(cmd.ErrOrStderr(), "rewrote %d matches in %d files\n", report.Matches, changed)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d matches; run with --write to apply\n", report.Matches)
			}
			return nil
		},
	}
	q.register(cmd, true)
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the changes to disk")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "validate [PATTERN]",
		Short: "Compile a template and print its tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, _, err := q.options(ctx, a, args)
			if err != nil {
				return err
			}
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			m, err := svc.Compile(ctx, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, m.Pattern().String())
			if vars := m.Pattern().Variables(); len(vars) > 0 {
				fmt.Fprintf(out, "variables: %s\n", strings.Join(vars, ", "))
			}
			return nil
		},
	}
	q.register(cmd, false)
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		q     queryFlags
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [PATTERN] [PATH]",
		Short: "Search changed files as they are saved",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			opts, rest, err := q.options(ctx, a, args)
			if err != nil {
				return err
			}
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			m, err := svc.Compile(ctx, opts)
			if err != nil {
				return err
			}
			provider, ok := a.languages.Get(opts.Language)
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrUnsupportedLanguage, opts.Language)
			}

			w, err := watch.New(delay, watch.Extensions(provider.Extensions()...), a.logger)
			if err != nil {
				return err
			}
			defer w.Close()
			root := q.fileScope(a, rest).Path
			if err := w.AddRecursive(root); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s for %s\n", root, opts.Pattern)
			return w.Run(ctx, func(ctx context.Context, paths []string) error {
				for _, p := range paths {
					matches, err := svc.SearchFile(ctx, m, p)
					if err != nil {
						a.logger.Warn("search failed", zap.String("path", p), zap.Error(err))
						continue
					}
					printMatches(out, matches)
				}
				return nil
			})
		},
	}
	q.register(cmd, false)
	cmd.Flags().DurationVar(&delay, "debounce", 300*time.Millisecond, "wait this long for more changes")
	return cmd
}

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, lang := range a.languages.Languages() {
				p, _ := a.languages.Get(lang)
				exts := append([]string(nil), p.Extensions()...)
				sort.Strings(exts)
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", lang, strings.Join(exts, " "))
			}
			return nil
		},
	}
}

func printMatches(w io.Writer, matches []core.FileMatch) {
	for _, m := range matches {
		line, _, _ := strings.Cut(m.Content, "\n")
		fmt.Fprintf(w, "%s:%d:%d: %s\n", m.FilePath, m.Location.Line, m.Location.Column+1, line)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
