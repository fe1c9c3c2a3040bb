package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// LanguageResolver maps a file path to a language id, or "" when the file
// should be skipped.
type LanguageResolver func(path string) string

// FileWalker provides parallel file system traversal
type FileWalker struct {
	workers    int
	bufferSize int
	resolve    LanguageResolver
}

// NewFileWalker creates a walker that tags files using resolve.
func NewFileWalker(resolve LanguageResolver) *FileWalker {
	return &FileWalker{
		workers:    runtime.NumCPU() * 2, // I/O bound
		bufferSize: 256,
		resolve:    resolve,
	}
}

// WalkResult represents a discovered file
type WalkResult struct {
	Path     string
	Info     fs.FileInfo
	Language string
	Error    error
}

// defaultExcludes are never worth parsing.
var defaultExcludes = []string{".git", "node_modules", "vendor"}

// Walk streams the files under scope.Path that pass the include/exclude
// globs and resolve to a language. The channel closes when the walk is done
// or ctx is cancelled.
func (fw *FileWalker) Walk(ctx context.Context, scope FileScope) (<-chan WalkResult, error) {
	if err := fw.validateScope(scope); err != nil {
		return nil, err
	}

	results := make(chan WalkResult, fw.bufferSize)
	paths := make(chan string, fw.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < fw.workers; i++ {
		wg.Add(1)
		go fw.worker(ctx, paths, results, scope, &wg)
	}

	go func() {
		defer close(paths)
		processed := 0
		var visited map[string]struct{}
		if scope.FollowSymlinks {
			visited = make(map[string]struct{})
			if resolved, err := filepath.EvalSymlinks(scope.Path); err == nil {
				visited[resolved] = struct{}{}
			} else {
				visited[scope.Path] = struct{}{}
			}
		}
		fw.scanDirectory(ctx, scope.Path, scope, loadGitignore(scope), paths, 0, &processed, visited)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

// Collect drains Walk into a slice. Order is not deterministic.
func (fw *FileWalker) Collect(ctx context.Context, scope FileScope) ([]WalkResult, error) {
	ch, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}
	var out []WalkResult
	for r := range ch {
		out = append(out, r)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (fw *FileWalker) worker(
	ctx context.Context,
	paths <-chan string,
	results chan<- WalkResult,
	scope FileScope,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			result, keep := fw.processFile(path, scope)
			if !keep {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case results <- result:
			}
		}
	}
}

func (fw *FileWalker) scanDirectory(
	ctx context.Context,
	dirPath string,
	scope FileScope,
	gitignore *ignore.GitIgnore,
	paths chan<- string,
	depth int,
	processed *int,
	visited map[string]struct{},
) {
	if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if scope.MaxDepth > 0 && depth > scope.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return // unreadable directories are skipped
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		rel := fw.relative(scope.Path, fullPath)

		if fw.matchAny(rel, defaultExcludes) || fw.matchAny(rel, scope.Exclude) {
			continue
		}
		if gitignore != nil && (gitignore.MatchesPath(rel) || entry.IsDir() && gitignore.MatchesPath(rel+"/")) {
			continue
		}

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			if !scope.FollowSymlinks {
				continue
			}
			resolved, err := filepath.EvalSymlinks(fullPath)
			if err != nil {
				continue
			}
			info, err := os.Stat(resolved)
			if err != nil {
				continue
			}
			isDir = info.IsDir()
			if isDir {
				if _, seen := visited[resolved]; seen {
					continue
				}
				visited[resolved] = struct{}{}
			}
		}

		if isDir {
			fw.scanDirectory(ctx, fullPath, scope, gitignore, paths, depth+1, processed, visited)
			continue
		}

		if len(scope.Include) > 0 && !fw.matchAny(rel, scope.Include) {
			continue
		}
		if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
			return
		}
		select {
		case <-ctx.Done():
			return
		case paths <- fullPath:
			*processed++
		}
	}
}

// processFile stats the file and resolves its language. Files without a
// language or over the size limit are dropped.
func (fw *FileWalker) processFile(path string, scope FileScope) (WalkResult, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return WalkResult{Path: path, Error: err}, true
	}
	if scope.MaxFileSize > 0 && info.Size() > scope.MaxFileSize {
		return WalkResult{}, false
	}

	language := scope.Language
	if fw.resolve != nil {
		detected := fw.resolve(path)
		if language == "" {
			language = detected
		} else if detected != language {
			return WalkResult{}, false
		}
	}
	if language == "" {
		return WalkResult{}, false
	}

	return WalkResult{Path: path, Info: info, Language: language}, true
}

// loadGitignore compiles the .gitignore at the scope root. Nested ignore
// files are not consulted.
func loadGitignore(scope FileScope) *ignore.GitIgnore {
	if !scope.Gitignore {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(scope.Path, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

func (fw *FileWalker) relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// matchAny performs glob matching with ** support. Patterns without a slash
// also match against the base name.
func (fw *FileWalker) matchAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, filepath.Base(rel)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func (fw *FileWalker) validateScope(scope FileScope) error {
	if scope.Path == "" {
		return fmt.Errorf("path is required")
	}

	info, err := os.Stat(scope.Path)
	if err != nil {
		return fmt.Errorf("cannot access path %s: %w", scope.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", scope.Path)
	}
	return nil
}
