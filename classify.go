package main

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
)

type entryKind int

const (
	kindBinary entryKind = iota
	kindDirectory
	kindMarkdown
	kindText
	kindPDF
)

func (k entryKind) String() string {
	switch k {
	case kindDirectory:
		return "directory"
	case kindMarkdown:
		return "markdown"
	case kindText:
		return "text"
	case kindPDF:
		return "pdf"
	default:
		return "binary"
	}
}

// isText reports whether files of this kind are shown inline.
func (k entryKind) isText() bool {
	return k == kindMarkdown || k == kindText
}

var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// Extensions always treated as text, whatever the MIME table says.
var textExtensions = map[string]bool{
	// prose and data
	".txt": true, ".log": true, ".csv": true, ".tsv": true, ".rst": true,
	".tex": true, ".bib": true, ".xml": true, ".json": true, ".yaml": true,
	".yml": true, ".toml": true, ".ini": true, ".cfg": true, ".conf": true,
	".env": true, ".properties": true, ".svg": true,
	// web
	".html": true, ".htm": true, ".css": true, ".scss": true, ".less": true,
	".js": true, ".mjs": true, ".jsx": true, ".ts": true, ".tsx": true,
	".vue": true,
	// source
	".py": true, ".go": true, ".rs": true, ".c": true, ".h": true,
	".cpp": true, ".cc": true, ".hpp": true, ".java": true, ".kt": true,
	".scala": true, ".cs": true, ".swift": true, ".php": true, ".rb": true,
	".pl": true, ".lua": true, ".r": true, ".sql": true, ".sh": true,
	".bash": true, ".zsh": true, ".ps1": true, ".bat": true, ".mk": true,
	".proto": true, ".gradle": true, ".dart": true, ".hs": true, ".ex": true,
	".exs": true, ".erl": true, ".clj": true, ".vim": true,
}

// classifyName decides how a non-directory entry is rendered from its name
// alone. It never touches the filesystem.
func classifyName(name string) entryKind {
	ext := extensionTag(name)
	switch {
	case ext == ".pdf":
		return kindPDF
	case markdownExtensions[ext]:
		return kindMarkdown
	case textExtensions[ext]:
		return kindText
	}
	if ext != "" {
		if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "text/") {
			return kindText
		}
	}
	return kindBinary
}

// classify adds the directory check to classifyName.
func classify(path string) (entryKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return kindBinary, err
	}
	if info.IsDir() {
		return kindDirectory, nil
	}
	return classifyName(filepath.Base(path)), nil
}

// extensionTag is the lower-cased extension including the dot.
func extensionTag(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
