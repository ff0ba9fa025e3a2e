package main

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const ignoreFileName = ".peekrepoignore"

// ignoreCache holds parsed .peekrepoignore patterns keyed by root.
// Entries refresh when the file's modification time changes.
type ignoreCache struct {
	mu      sync.RWMutex
	entries map[string]ignoreEntry
}

type ignoreEntry struct {
	modUnix  int64
	patterns []string
}

func newIgnoreCache() *ignoreCache {
	return &ignoreCache{entries: make(map[string]ignoreEntry)}
}

// patterns returns the ignore patterns for root, parsing the file on a miss.
func (c *ignoreCache) patterns(root string) []string {
	path := filepath.Join(root, ignoreFileName)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	mod := info.ModTime().UnixNano()

	c.mu.RLock()
	e, ok := c.entries[root]
	c.mu.RUnlock()
	if ok && e.modUnix == mod {
		return e.patterns
	}

	patterns := parseIgnoreFile(path)

	c.mu.Lock()
	c.entries[root] = ignoreEntry{modUnix: mod, patterns: patterns}
	c.mu.Unlock()
	return patterns
}

// parseIgnoreFile reads one filename glob per line. Blank lines and #
// comments are skipped; invalid patterns are logged and dropped.
func parseIgnoreFile(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	const maxWarnings = 3
	const maxPatternLength = 256

	var patterns []string
	var invalidCount int
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var reason string
		switch {
		case len(line) > maxPatternLength:
			reason = "pattern too long"
			line = line[:50] + "..."
		case strings.ContainsAny(line, "/\\"):
			reason = "pattern contains path separator"
		default:
			if _, err := filepath.Match(line, "test"); err != nil {
				reason = err.Error()
			}
		}
		if reason != "" {
			invalidCount++
			if invalidCount <= maxWarnings {
				log.Printf("Warning: %s: %s (ignored): %s", ignoreFileName, reason, line)
			}
			continue
		}

		patterns = append(patterns, line)
	}

	if invalidCount > maxWarnings {
		log.Printf("Warning: Suppressed %d additional invalid %s patterns", invalidCount-maxWarnings, ignoreFileName)
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Warning: Error reading %s: %v", ignoreFileName, err)
		return nil
	}

	return patterns
}

// matchesIgnorePattern checks if an entry name matches any pattern
func matchesIgnorePattern(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
