// Package scanner discovers indexable files in a codebase.
// It walks the directory tree applying an extension allow-list,
// directory and file ignore sets, and a binary-content check.
package scanner

import (
	"time"
)

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path     string    // Relative path to project root
	AbsPath  string    // Absolute path
	Size     int64     // File size in bytes
	ModTime  time.Time // Last modification time
	Language string    // go, typescript, python, etc.
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the project root directory to scan.
	RootDir string

	// AllowedExtensions is the extension allow-list (with leading dot).
	// Empty means allow every extension.
	AllowedExtensions []string

	// IgnoreDirs are directory names skipped entirely.
	IgnoreDirs []string

	// IgnoreFiles are file names skipped even when the extension matches.
	IgnoreFiles []string

	// MaxFileSize is the maximum file size to include in bytes (0 = 10MB default).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// languageMap maps file extensions to programming languages.
var languageMap = map[string]string{
	".go": "go",

	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",

	".py": "python",

	".html": "html",
	".css":  "css",
	".scss": "scss",

	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",

	".md":  "markdown",
	".rst": "rst",
	".txt": "text",

	".sh":  "shell",
	".sql": "sql",

	".rb":  "ruby",
	".rs":  "rust",
	".php": "php",

	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
}

// DetectLanguage detects the programming language from a file path.
func DetectLanguage(path string) string {
	if lang, ok := languageMap[extension(path)]; ok {
		return lang
	}
	return ""
}

// extension returns the file extension from a path (including the dot).
func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
