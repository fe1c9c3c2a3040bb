package core

import "context"

// CompleteMatch is the pseudo-variable whose constraints apply to the whole
// matched region rather than to one template variable.
const CompleteMatch = "__context__"

// SearchOptions describe one structural search
type SearchOptions struct {
	Pattern     string       `json:"pattern" yaml:"pattern"`
	Loose       bool         `json:"loose,omitempty" yaml:"loose,omitempty"`
	Language    string       `json:"language" yaml:"language"`
	Constraints []Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Constraint attaches a predicate expression and an occurrence range to a
// template variable
type Constraint struct {
	Var       string `json:"var" yaml:"var"`                                 // variable name without '$', or CompleteMatch
	Predicate string `json:"predicate,omitempty" yaml:"predicate,omitempty"` // e.g. within="f($x$)" && !text=_
	Count     string `json:"count,omitempty" yaml:"count,omitempty"`         // "", "n", "n..m", "n.."
}

// Configuration is a named, persisted search specification
type Configuration struct {
	Name        string        `json:"name" yaml:"name"`
	Scope       string        `json:"scope,omitempty" yaml:"scope,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Options     SearchOptions `json:"options" yaml:"options"`
}

// ConfigurationRegistry resolves configurations by name within one scope.
// Implementations must be safe for concurrent readers.
type ConfigurationRegistry interface {
	FindByName(ctx context.Context, name string) (*Configuration, bool, error)
}

// Location in source code
type Location struct {
	File      string `json:"file,omitempty"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
}

// FileScope defines which files to process in filesystem operations
type FileScope struct {
	Path           string   `json:"path"`                // Root path to scan
	Include        []string `json:"include,omitempty"`   // File patterns to include (*.go, **/*.ts)
	Exclude        []string `json:"exclude,omitempty"`   // File patterns to exclude
	MaxDepth       int      `json:"max_depth,omitempty"` // Max directory depth (0 = unlimited)
	MaxFiles       int      `json:"max_files,omitempty"` // Max files to process (0 = unlimited)
	MaxFileSize    int64    `json:"max_file_size,omitempty"`
	FollowSymlinks bool     `json:"follow_symlinks"`    // Follow symbolic links
	Gitignore      bool     `json:"gitignore"`          // Skip paths ignored by the root's .gitignore
	Language       string   `json:"language,omitempty"` // Auto-detect by extension if empty
}

// FileMatch is one structural match found in a file
type FileMatch struct {
	FilePath string            `json:"file_path"`
	Language string            `json:"language"`
	NodeType string            `json:"node_type"`
	Location Location          `json:"location"`
	Content  string            `json:"content"`
	Bindings map[string]string `json:"bindings,omitempty"`
}

// FileError records a file that could not be searched
type FileError struct {
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
}

// FileReplaceDetail is the replace outcome for a single file
type FileReplaceDetail struct {
	FilePath   string `json:"file_path"`
	Language   string `json:"language"`
	MatchCount int    `json:"match_count"`
	Modified   bool   `json:"modified"`
	Diff       string `json:"diff,omitempty"`
	Error      string `json:"error,omitempty"`
}
