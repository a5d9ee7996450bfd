// Package assets serves the admin's static files embedded via go:embed.
// Each file gets a content version so pages can link it with long-lived
// cache headers and still pick up changes after a deploy.
package assets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
)

// Prefix is where FileServer is mounted.
const Prefix = "/static/"

//go:embed static
var staticFS embed.FS

// versions maps a file name (e.g. "admin.css") to a short hash of its
// contents. Filled once at init; read-only afterwards.
var versions = map[string]string{}

func init() {
	// Errors are ignored: these only fail if extension format is invalid,
	// and our literals are known-good.
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".map", "application/json")

	err := fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(staticFS, p)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		versions[strings.TrimPrefix(p, "static/")] = hex.EncodeToString(sum[:4])
		return nil
	})
	if err != nil {
		slog.Error("failed to index static assets", "error", err)
	}
}

// Version returns the content version of an embedded file, or "" when the
// file does not exist.
func Version(name string) string {
	return versions[name]
}

// URL returns the versioned URL of an embedded file. Unknown files get a
// plain URL so a missing asset shows up as a 404 rather than a broken page.
func URL(name string) string {
	v := Version(name)
	if v == "" {
		return Prefix + name
	}
	return Prefix + name + "?v=" + v
}

// mimeFromExt returns the MIME type for a file extension.
// Falls back to the Go standard library's MIME type database,
// then to "application/octet-stream" if unknown.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".woff2":
		return "font/woff2"
	case ".svg":
		return "image/svg+xml"
	case ".map":
		return "application/json"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// FileServer returns an http.Handler that serves the embedded files.
// Requests carrying the file's current version get immutable cache headers;
// everything else gets no-cache. The handler expects paths relative to the
// static root (strip Prefix before calling).
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("assets: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.HasSuffix(name, "/") {
			// No directory listings.
			http.NotFound(w, r)
			return
		}

		if ext := strings.ToLower(path.Ext(name)); ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}

		if v := Version(name); v != "" && r.URL.Query().Get("v") == v {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}

		fileServer.ServeHTTP(w, r)
	})
}
