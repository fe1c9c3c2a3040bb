// Package search runs compiled templates over files on disk and rewrites the
// matched regions.
package search

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/internal/logging"
	"github.com/termfx/sift/matcher"
	"github.com/termfx/sift/models"
	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/syntax"
)

// RunRecorder stores a summary of every finished search. *db.Store
// implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.SearchRun) error
}

// Report is the outcome of a search over a file scope.
type Report struct {
	Matches      []core.FileMatch `json:"matches"`
	Errors       []core.FileError `json:"errors,omitempty"`
	FilesScanned int              `json:"files_scanned"`
	Duration     time.Duration    `json:"duration"`
}

// Service searches and rewrites files.
type Service struct {
	languages *providers.Registry
	compiler  *matcher.Compiler
	walker    *core.FileWalker
	writer    *core.AtomicWriter
	workers   int
	logger    *zap.Logger

	recorder RunRecorder
	scope    string
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers bounds the number of files processed at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWriter replaces the writer used by ReplaceFiles.
func WithWriter(w *core.AtomicWriter) Option {
	return func(s *Service) {
		if w != nil {
			s.writer = w
		}
	}
}

// WithRecorder records every search run under the given configuration scope.
func WithRecorder(r RunRecorder, scope string) Option {
	return func(s *Service) {
		s.recorder = r
		s.scope = scope
	}
}

// New creates a Service. The compiler must resolve languages from the same
// registry.
func New(languages *providers.Registry, compiler *matcher.Compiler, opts ...Option) *Service {
	s := &Service{
		languages: languages,
		compiler:  compiler,
		walker:    core.NewFileWalker(languages.DetectLanguage),
		writer:    core.NewAtomicWriter(core.DefaultAtomicConfig()),
		workers:   runtime.NumCPU(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile compiles the search options. A malformed template or constraint is
// reported before any file is read.
func (s *Service) Compile(ctx context.Context, opts core.SearchOptions) (*matcher.Matcher, error) {
	return s.compiler.Compile(ctx, opts)
}

// Search compiles opts and runs it over every file of the scope in the
// options' language. Files that fail to read or parse are reported in
// Report.Errors and do not stop the search.
func (s *Service) Search(ctx context.Context, scope core.FileScope, opts core.SearchOptions) (*Report, error) {
	m, err := s.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, m, scope)
}

// Run searches the scope with an already compiled matcher.
func (s *Service) Run(ctx context.Context, m *matcher.Matcher, scope core.FileScope) (*Report, error) {
	start := time.Now()
	opts := m.Options()
	scope.Language = opts.Language

	report := &Report{}
	var mu sync.Mutex
	err := s.forEachFile(ctx, scope, func(file core.WalkResult) {
		if file.Error != nil {
			mu.Lock()
			report.Errors = append(report.Errors, core.FileError{FilePath: file.Path, Error: file.Error.Error()})
			mu.Unlock()
			return
		}
		matches, err := s.searchFile(ctx, m, file.Path)
		mu.Lock()
		defer mu.Unlock()
		report.FilesScanned++
		switch {
		case err == nil:
			report.Matches = append(report.Matches, matches...)
		case ctx.Err() == nil:
			report.Errors = append(report.Errors, core.FileError{FilePath: file.Path, Error: err.Error()})
		}
	})
	if err != nil {
		return nil, err
	}

	sortMatches(report.Matches)
	sort.Slice(report.Errors, func(i, j int) bool { return report.Errors[i].FilePath < report.Errors[j].FilePath })
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	s.logger.Debug("search finished",
		zap.String("pattern", opts.Pattern),
		zap.String("language", opts.Language),
		zap.Int("files", report.FilesScanned),
		zap.Int("matches", len(report.Matches)),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration))

	s.record(ctx, opts, scope.Path, report, start)
	return report, nil
}

// forEachFile walks the scope and calls fn from a bounded set of workers.
func (s *Service) forEachFile(ctx context.Context, scope core.FileScope, fn func(core.WalkResult)) error {
	files, err := s.walker.Walk(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to walk files: %w", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range files {
				fn(file)
			}
		}()
	}
	wg.Wait()
	return nil
}

// SearchFile runs a compiled matcher over a single file.
func (s *Service) SearchFile(ctx context.Context, m *matcher.Matcher, path string) ([]core.FileMatch, error) {
	matches, err := s.searchFile(ctx, m, path)
	if err != nil {
		return nil, err
	}
	sortMatches(matches)
	return matches, nil
}

func (s *Service) searchFile(ctx context.Context, m *matcher.Matcher, path string) ([]core.FileMatch, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	tree, err := s.parse(ctx, m.Options().Language, source)
	if err != nil {
		return nil, err
	}
	results, err := m.MatchTopDown(ctx, tree.Root)
	if err != nil {
		return nil, err
	}
	matches := make([]core.FileMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, toFileMatch(path, tree, r))
	}
	return matches, nil
}

func (s *Service) parse(ctx context.Context, language string, source []byte) (*syntax.Tree, error) {
	provider, ok := s.languages.Get(language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedLanguage, language)
	}
	return provider.Parse(ctx, source)
}

func (s *Service) record(ctx context.Context, opts core.SearchOptions, root string, report *Report, start time.Time) {
	if s.recorder == nil {
		return
	}
	run := &models.SearchRun{
		Scope:        s.scope,
		Language:     opts.Language,
		Pattern:      opts.Pattern,
		Root:         root,
		FilesScanned: report.FilesScanned,
		Matches:      len(report.Matches),
		Errors:       len(report.Errors),
		StartedAt:    start,
		DurationMS:   report.Duration.Milliseconds(),
	}
	if err := s.recorder.RecordRun(ctx, run); err != nil {
		s.logger.Warn("failed to record search run", zap.Error(err))
	}
}

// toFileMatch converts a match result into the file-level record. Bound
// variables are reported as the source text spanning their nodes.
func toFileMatch(path string, tree *syntax.Tree, r matcher.MatchResult) core.FileMatch {
	first, last := span(r)
	fm := core.FileMatch{
		FilePath: path,
		Language: tree.Language,
		NodeType: first.Kind,
		Location: core.Location{
			File:      path,
			Line:      first.StartPoint.Row + 1,
			Column:    first.StartPoint.Column,
			EndLine:   last.EndPoint.Row + 1,
			EndColumn: last.EndPoint.Column,
			StartByte: first.Start,
			EndByte:   last.End,
		},
		Content: string(tree.Source[first.Start:last.End]),
	}
	if len(r.Bindings) > 0 {
		fm.Bindings = make(map[string]string, len(r.Bindings))
		for name, nodes := range r.Bindings {
			fm.Bindings[name] = boundText(tree.Source, nodes)
		}
	}
	return fm
}

// span returns the first and last node of the matched region.
func span(r matcher.MatchResult) (first, last *syntax.Node) {
	first, last = r.Node, r.Node
	for _, n := range r.Nodes {
		if n.End > last.End {
			last = n
		}
	}
	return first, last
}

func boundText(source []byte, nodes []*syntax.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	return string(source[nodes[0].Start:nodes[len(nodes)-1].End])
}

func sortMatches(matches []core.FileMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Location.StartByte != b.Location.StartByte {
			return a.Location.StartByte < b.Location.StartByte
		}
		return a.Location.EndByte > b.Location.EndByte
	})
}
