package main

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
)

const (
	readmeName   = "README.md"
	hiddenMarker = "."
)

// entry is one visible child of a listed directory.
type entry struct {
	Name    string
	Kind    string // "dir" or "file"
	URLPath string // root-relative, forward slashes
	Ext     string
}

func (e entry) IsDir() bool { return e.Kind == "dir" }

// directoryView is the listing of one directory plus its rendered README.
type directoryView struct {
	Entries     []entry
	Readme      template.HTML
	ReadmeError string
}

// listDirectory enumerates dir, which must already be resolved inside root.
func listDirectory(dir, root string, md goldmark.Markdown, ignore []string) (directoryView, error) {
	rel := relativeURLPath(root, dir)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return directoryView{}, fsError(rel, err, errReadFailure)
	}

	var view directoryView
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, hiddenMarker) || matchesIgnorePattern(name, ignore) {
			continue
		}

		full := filepath.Join(dir, name)
		kind := "file"
		if isDirEntry(full, de) {
			kind = "dir"
		}
		view.Entries = append(view.Entries, entry{
			Name:    name,
			Kind:    kind,
			URLPath: relativeURLPath(root, full),
			Ext:     extensionTag(name),
		})
	}
	sort.Slice(view.Entries, func(i, j int) bool {
		return view.Entries[i].Name < view.Entries[j].Name
	})

	view.Readme, view.ReadmeError = renderReadme(root, path.Join(rel, readmeName), md)
	return view, nil
}

// isDirEntry follows symlinks so a link to a directory lists as one.
func isDirEntry(full string, de fs.DirEntry) bool {
	if de.Type()&fs.ModeSymlink == 0 {
		return de.IsDir()
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

// renderReadme returns the rendered README at the root-relative readmeRel or
// a message explaining why it could not be shown. A missing README, or one
// that resolves outside root, yields two empty values.
func renderReadme(root, readmeRel string, md goldmark.Markdown) (template.HTML, string) {
	abs, err := resolveExisting(root, readmeRel)
	switch {
	case errors.Is(err, errNotFound):
		return "", ""
	case errors.Is(err, errPathEscape):
		log.Printf("Security: skipped %s linking outside the repository root", readmeRel)
		return "", ""
	case err != nil:
		log.Printf("Warning: cannot resolve %s: %v", readmeRel, err)
		return "", readmeErrorMessage(err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", ""
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		log.Printf("Warning: cannot read %s: %v", readmeRel, err)
		return "", readmeErrorMessage(err)
	}

	html, err := renderMarkdown(md, decodeText(raw))
	if err != nil {
		log.Printf("Warning: cannot render %s: %v", readmeRel, err)
		return "", readmeErrorMessage(err)
	}
	return template.HTML(html), ""
}

func readmeErrorMessage(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, errPermissionDenied):
		return fmt.Sprintf("Error reading %s: permission denied.", readmeName)
	case errors.Is(err, errRenderFailure):
		return fmt.Sprintf("Error rendering %s.", readmeName)
	default:
		return fmt.Sprintf("Error reading %s.", readmeName)
	}
}

// crumb is one link of the breadcrumb trail.
type crumb struct {
	Name    string
	URLPath string
}

// breadcrumbs splits a root-relative path into cumulative links.
func breadcrumbs(rel string) []crumb {
	if rel == "" {
		return nil
	}
	parts := strings.Split(rel, "/")
	crumbs := make([]crumb, 0, len(parts))
	for i, part := range parts {
		crumbs = append(crumbs, crumb{
			Name:    part,
			URLPath: strings.Join(parts[:i+1], "/"),
		})
	}
	return crumbs
}

// parentPath is the root-relative parent of rel; ok is false at the root.
func parentPath(rel string) (parent string, ok bool) {
	if rel == "" {
		return "", false
	}
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return "", true
	}
	return rel[:i], true
}
