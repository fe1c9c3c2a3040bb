package search

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/matcher"
	"github.com/termfx/sift/syntax"
)

// Edit replaces Source[Start:End] with Text.
type Edit struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Result is the rewrite of one source text.
type Result struct {
	Output []byte
	Edits  []Edit
}

// Changed reports whether any match was rewritten.
func (r *Result) Changed() bool { return len(r.Edits) > 0 }

// ReplaceReport is the outcome of ReplaceFiles.
type ReplaceReport struct {
	Files        []core.FileReplaceDetail `json:"files"`
	FilesScanned int                      `json:"files_scanned"`
	Matches      int                      `json:"matches"`
}

// Apply rewrites every outermost match of m in tree. Overlapping matches
// inside an already rewritten region are left alone. In replacement, $name$
// stands for the text bound to the variable and $$ for a literal '$'.
func Apply(ctx context.Context, m *matcher.Matcher, tree *syntax.Tree, replacement string) (*Result, error) {
	if err := checkReplacement(m, replacement); err != nil {
		return nil, err
	}
	results, err := m.MatchTopDown(ctx, tree.Root)
	if err != nil {
		return nil, err
	}

	var (
		edits   []Edit
		covered = -1
	)
	for _, r := range results {
		first, last := span(r)
		if first.Start < covered {
			continue
		}
		text, err := matcher.Substitute(replacement, func(name string) (string, error) {
			return boundText(tree.Source, r.Bindings[name]), nil
		})
		if err != nil {
			return nil, err
		}
		edits = append(edits, Edit{Start: first.Start, End: last.End, Text: text})
		covered = last.End
	}
	return &Result{Output: applyEdits(tree.Source, edits), Edits: edits}, nil
}

// checkReplacement rejects replacements that are malformed or name variables
// the template does not bind.
func checkReplacement(m *matcher.Matcher, replacement string) error {
	vars := m.Pattern().Variables()
	_, err := matcher.Substitute(replacement, func(name string) (string, error) {
		if !slices.Contains(vars, name) {
			return "", core.MalformedPattern("replacement refers to unknown variable '%s'", name)
		}
		return "", nil
	})
	return err
}

func applyEdits(source []byte, edits []Edit) []byte {
	var b bytes.Buffer
	b.Grow(len(source))
	pos := 0
	for _, e := range edits {
		b.Write(source[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.Write(source[pos:])
	return b.Bytes()
}

// Diff renders a unified diff between two versions of a file.
func Diff(path string, before, after []byte) (string, error) {
	if bytes.Equal(before, after) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}

// Replace compiles opts, parses source and rewrites it.
func (s *Service) Replace(ctx context.Context, source []byte, opts core.SearchOptions, replacement string) (*Result, error) {
	m, err := s.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	tree, err := s.parse(ctx, opts.Language, source)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, m, tree, replacement)
}

// ReplaceFiles rewrites every file of the scope. Nothing is written unless
// write is set; the details then carry the diff that would be applied.
func (s *Service) ReplaceFiles(ctx context.Context, scope core.FileScope, opts core.SearchOptions, replacement string, write bool) (*ReplaceReport, error) {
	m, err := s.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := checkReplacement(m, replacement); err != nil {
		return nil, err
	}
	scope.Language = opts.Language

	report := &ReplaceReport{}
	var mu sync.Mutex
	err = s.forEachFile(ctx, scope, func(file core.WalkResult) {
		detail := s.replaceFile(ctx, m, file, replacement, write)
		mu.Lock()
		defer mu.Unlock()
		if file.Error == nil {
			report.FilesScanned++
		}
		report.Matches += detail.MatchCount
		if detail.MatchCount > 0 || detail.Error != "" {
			report.Files = append(report.Files, detail)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(report.Files, func(i, j int) bool { return report.Files[i].FilePath < report.Files[j].FilePath })

	if err := ctx.Err(); err != nil {
		return report, err
	}
	s.logger.Debug("replace finished",
		zap.String("pattern", opts.Pattern),
		zap.Int("files", report.FilesScanned),
		zap.Int("matches", report.Matches),
		zap.Bool("write", write))
	return report, nil
}

func (s *Service) replaceFile(ctx context.Context, m *matcher.Matcher, file core.WalkResult, replacement string, write bool) core.FileReplaceDetail {
	detail := core.FileReplaceDetail{FilePath: file.Path, Language: file.Language}
	if file.Error != nil {
		detail.Error = file.Error.Error()
		return detail
	}

	source, err := os.ReadFile(file.Path)
	if err != nil {
		detail.Error = fmt.Sprintf("failed to read file: %v", err)
		return detail
	}
	tree, err := s.parse(ctx, m.Options().Language, source)
	if err != nil {
		detail.Error = err.Error()
		return detail
	}
	res, err := Apply(ctx, m, tree, replacement)
	if err != nil {
		detail.Error = err.Error()
		return detail
	}
	detail.MatchCount = len(res.Edits)
	if !res.Changed() || bytes.Equal(source, res.Output) {
		return detail
	}

	if detail.Diff, err = Diff(file.Path, source, res.Output); err != nil {
		detail.Error = fmt.Sprintf("failed to render diff: %v", err)
		return detail
	}
	if !write {
		return detail
	}
	if _, err := s.writer.WriteFile(file.Path, res.Output); err != nil {
		detail.Error = err.Error()
		return detail
	}
	detail.Modified = true
	s.logger.Info("rewrote file", zap.String("path", file.Path), zap.Int("matches", detail.MatchCount))
	return detail
}
