package main

import (
	"errors"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData("Login", false)
	if out := s.gate.status(clientID(r)); out.Result == outcomeRateLimited {
		data.Error = out.Message
	}
	renderPage(w, loginTmpl, http.StatusOK, data)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	out := s.gate.attempt(clientID(r), r.PostFormValue("password"), s.secret.load())
	if out.Result != outcomeAllowed {
		if out.Result == outcomeRateLimited {
			log.Printf("Login rate limited for %s (%s remaining)", clientID(r), out.Remaining.Round(time.Second))
		}
		data := s.newPageData("Login", false)
		data.Error = out.Message
		renderPage(w, loginTmpl, http.StatusOK, data)
		return
	}

	_, sess, err := s.sessions.get(r)
	if err != nil {
		log.Printf("Session load error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := s.sessions.renew(w, r, sessionData{LoggedIn: true, RepoPath: sess.RepoPath}); err != nil {
		log.Printf("Session save error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.clear(w, r); err != nil {
		log.Printf("Session delete error: %v", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleSetRoot replaces the session's repository root with the submitted
// repo_path.
func (s *server) handleSetRoot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	input := r.PostFormValue("repo_path")
	if input == "" {
		http.Error(w, "Error: no path provided.", http.StatusBadRequest)
		return
	}

	root, err := normalizeRoot(input)
	if err != nil {
		if !errors.Is(err, errInvalidRoot) {
			s.renderError(w, r, err)
			return
		}
		data := s.newPageData("peekrepo", true)
		data.View = "form"
		data.Error = userMessage(err)
		renderPage(w, indexTmpl, http.StatusBadRequest, data)
		return
	}

	id, _, err := s.sessions.get(r)
	if err != nil {
		log.Printf("Session load error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := s.sessions.put(w, r, id, sessionData{LoggedIn: true, RepoPath: root}); err != nil {
		log.Printf("Session save error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	log.Printf("Repository root set to %s", root)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleBrowse resolves the request path against the session root and shows
// a listing, a file, or redirects PDFs to the raw endpoint.
func (s *server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	_, sess, err := s.sessions.get(r)
	if err != nil {
		log.Printf("Session load error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	root := sess.RepoPath
	if root == "" {
		data := s.newPageData("peekrepo", true)
		data.View = "form"
		data.LiveReload = false
		renderPage(w, indexTmpl, http.StatusOK, data)
		return
	}

	subpath := requestSubpath(r, "/")
	abs, err := resolveExisting(root, subpath)
	if err != nil {
		if errors.Is(err, errPathEscape) {
			log.Printf("Security: rejected path %q outside repository root", subpath)
		}
		s.renderError(w, r, err)
		return
	}
	rel := relativeURLPath(root, abs)

	kind, err := classify(abs)
	if err != nil {
		s.renderError(w, r, fsError(rel, err, errReadFailure))
		return
	}

	data := s.newPageData(repoName(root), true)
	data.HighlightCSS = s.hl.css
	data.RepoName = repoName(root)
	data.CurrentPath = rel
	data.Crumbs = breadcrumbs(rel)
	data.Parent, data.HasParent = parentPath(rel)

	if kind == kindDirectory {
		view, err := listDirectory(abs, root, s.md, s.ignore.patterns(root))
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		s.watch(abs, rel)
		data.View = "browser"
		if rel != "" {
			data.Title = rel
		}
		data.Entries = view.Entries
		data.Readme = view.Readme
		data.ReadmeError = view.ReadmeError
		renderPage(w, indexTmpl, http.StatusOK, data)
		return
	}

	view, err := renderFile(abs, rel, kind, s.md, s.hl)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if view.Kind == viewRedirect {
		http.Redirect(w, r, view.Redirect, http.StatusFound)
		return
	}
	parent, _ := parentPath(rel)
	s.watch(filepath.Dir(abs), parent)
	data.View = "viewer"
	data.Title = view.Name
	data.File = view
	renderPage(w, indexTmpl, http.StatusOK, data)
}

func (s *server) watch(absDir, relDir string) {
	if s.live == nil {
		return
	}
	if err := s.live.watch(absDir, relDir); err != nil {
		log.Printf("Warning: Cannot watch %s for changes: %v", relDir, err)
	}
}

// handleServe streams a file from the session root with its natural content
// type. With attachment set the browser is asked to download it.
func (s *server) handleServe(attachment bool) http.HandlerFunc {
	prefix := "/serve/"
	if attachment {
		prefix = "/download/"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess, err := s.sessions.get(r)
		if err != nil {
			log.Printf("Session load error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if sess.RepoPath == "" {
			http.Error(w, "Error: repository not set.", http.StatusInternalServerError)
			return
		}

		subpath := requestSubpath(r, prefix)
		abs, err := resolveExisting(sess.RepoPath, subpath)
		if err != nil {
			http.Error(w, userMessage(err), statusFor(err))
			return
		}
		rel := relativeURLPath(sess.RepoPath, abs)

		f, err := os.Open(abs)
		if err != nil {
			err = fsError(rel, err, errReadFailure)
			log.Printf("Error opening %s: %v", rel, err)
			http.Error(w, userMessage(err), statusFor(err))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			err = &browseError{Kind: errNotFound, Path: rel, Err: err}
			http.Error(w, userMessage(err), statusFor(err))
			return
		}

		if attachment {
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name()}))
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}
