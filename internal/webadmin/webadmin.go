// ABOUTME: Admin web UI package for the Stellara catalog
// ABOUTME: Provides login/logout, the route guard, CSRF protection, dashboard, activity and help routes

package webadmin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stellara/stellara-admin/internal/assets"
	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/catalog"
	"github.com/stellara/stellara-admin/internal/products"
	"github.com/stellara/stellara-admin/internal/session"
	"github.com/stellara/stellara-admin/internal/store"
	"github.com/stellara/stellara-admin/internal/submit"
)

const (
	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "stellara_csrf"

	// productsPart is the session part holding the products workflow
	productsPart = "products"
)

// User-facing auth messages.
const (
	msgEmailRequired    = "Please enter your email!"
	msgPasswordRequired = "Please enter your password!"
	msgLoginFailed      = "Login failed. Please try again."
	msgInvalidRequest   = "Invalid request, please try again"
	msgInternalError    = "An error occurred"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Backend is the part of the backend client the admin calls.
type Backend interface {
	products.Backend
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResult, error)
}

// Config holds admin UI configuration
type Config struct {
	// Categories are offered in the product form.
	Categories []string
	// MaxImageSize caps uploaded product images, in bytes.
	MaxImageSize int
	// SecureCookie forces the Secure attribute on the CSRF cookie.
	SecureCookie bool
	// Activity records logins and product changes. Nil disables recording
	// and the activity page shows nothing.
	Activity store.ActivityLog
}

// Admin handles admin UI routes and authentication
type Admin struct {
	sessions *session.Manager
	api      Backend
	summary  *catalog.Service
	guard    *submit.Guard
	config   Config
	pages    map[string]*template.Template
	help     *helpPages
	logger   *slog.Logger
}

// New creates a new Admin handler
func New(sessions *session.Manager, api Backend, summary *catalog.Service, guard *submit.Guard, cfg Config) *Admin {
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = products.DefaultMaxImageSize
	}
	return &Admin{
		sessions: sessions,
		api:      api,
		summary:  summary,
		guard:    guard,
		config:   cfg,
		pages:    parsePages(),
		help:     loadHelpPages(),
		logger:   slog.Default().With("component", "admin"),
	}
}

// Handler returns the admin UI with the session middleware applied.
func (a *Admin) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	// Static files need no session.
	root := http.NewServeMux()
	root.Handle("GET "+assets.Prefix, http.StripPrefix(assets.Prefix, assets.FileServer()))
	root.Handle("/", a.sessions.Middleware(mux))
	return root
}

// RegisterRoutes registers all admin routes on the given mux. The routes
// expect a session in the request context; see Handler.
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no auth required)
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /login", a.handleLoginPage)
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.HandleFunc("POST /logout", a.handleLogout)

	// Protected routes (auth required)
	mux.HandleFunc("GET /dashboard", a.requireAuth(a.handleDashboard))
	mux.HandleFunc("GET /dashboard/stats", a.requireAuth(a.handleStats))
	mux.HandleFunc("GET /dashboard/help", a.requireAuth(a.handleHelp))
	mux.HandleFunc("GET /dashboard/help/{page}", a.requireAuth(a.handleHelp))
	mux.HandleFunc("GET /dashboard/activity", a.requireAuth(a.handleActivity))

	// Product management
	mux.HandleFunc("GET /dashboard/products", a.requireAuth(a.handleProductsPage))
	mux.HandleFunc("GET /dashboard/products/new", a.requireAuth(a.handleProductNew))
	mux.HandleFunc("GET /dashboard/products/{id}/edit", a.requireAuth(a.handleProductEdit))
	mux.HandleFunc("POST /dashboard/products/cancel", a.requireAuth(a.handleProductCancel))
	mux.HandleFunc("POST /dashboard/products/save", a.requireAuth(a.handleProductSave))
	mux.HandleFunc("POST /dashboard/products/image", a.requireAuth(a.handleImageSelect))
	mux.HandleFunc("POST /dashboard/products/image/remove", a.requireAuth(a.handleImageRemove))
	mux.HandleFunc("GET /dashboard/products/image/preview", a.requireAuth(a.handleImagePreview))
	mux.HandleFunc("POST /dashboard/products/{id}/delete", a.requireAuth(a.handleProductDelete))

	a.logger.Info("admin routes registered")
}

// requireAuth wraps a handler to require a session holding a token.
// Unauthenticated browsers are sent to the login page; htmx requests get an
// HX-Redirect so the whole page navigates.
func (a *Admin) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || sess.Token() == "" {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// currentSession returns the session attached by the middleware
func currentSession(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	// Try to get existing token from cookie
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	// Generate new token
	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.config.SecureCookie || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie.
// The form must already be parsed for multipart requests.
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		// Also check header for htmx requests
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// handleRoot sends the browser to the dashboard or the login page
func (a *Admin) handleRoot(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess != nil && sess.Token() != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLoginPage renders the login page
func (a *Admin) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard
	if sess := currentSession(r); sess != nil && sess.Token() != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderLoginPage(w, r, loginForm{}, csrfToken)
}

// handleLogin processes login form submission. Every submission goes to the
// backend; the session is only touched when the backend accepts.
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess == nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, r, loginForm{Error: "Invalid form data"}, csrfToken)
		return
	}

	// Validate CSRF token
	if !a.validateCSRF(r) {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, r, loginForm{Error: msgInvalidRequest}, csrfToken)
		return
	}

	form := loginForm{Email: strings.TrimSpace(r.FormValue("email"))}
	password := r.FormValue("password")
	if form.Email == "" {
		form.EmailError = msgEmailRequired
	}
	if password == "" {
		form.PasswordError = msgPasswordRequired
	}
	if form.EmailError != "" || form.PasswordError != "" {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, r, form, csrfToken)
		return
	}

	res, err := a.api.Login(r.Context(), backend.Credentials{Email: form.Email, Password: password})
	if err != nil {
		a.logger.Info("login rejected", "email", form.Email, "error", err)
		form.Error = backend.UserMessage(err, msgLoginFailed)
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, r, form, csrfToken)
		return
	}

	if err := sess.SetToken(r.Context(), res.Token); err != nil {
		a.logger.Error("failed to store token", "error", err)
		form.Error = msgInternalError
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, r, form, csrfToken)
		return
	}
	if err := sess.SetUser(r.Context(), session.UserFromToken(res.Token)); err != nil {
		// The token is stored; a missing user record only affects display.
		a.logger.Warn("failed to store user", "error", err)
	}

	sess.AddFlash(session.FlashSuccess, res.Message)
	a.record(r.Context(), actor(sess), store.ActivityLogin, "", "")
	a.logger.Info("admin login successful", "email", form.Email)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout logs out the current session
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Parse form to get CSRF token
	if err := r.ParseForm(); err == nil {
		// Validate CSRF - but don't block logout if invalid (security trade-off)
		if !a.validateCSRF(r) {
			a.logger.Warn("logout request with invalid CSRF token")
		}
	}

	if sess := currentSession(r); sess != nil {
		if sess.Token() != "" {
			a.record(r.Context(), actor(sess), store.ActivityLogout, "", "")
		}
		a.dismissProducts(sess)
		if err := a.sessions.End(r.Context(), w, r, sess); err != nil {
			a.logger.Error("failed to end session", "error", err)
		}
	}

	// Clear CSRF cookie
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleDashboard renders the summary page. Its tiles load from /dashboard/stats.
func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	// Leaving the products view ends its workflow.
	a.dismissProducts(sess)

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderDashboard(w, r, sess, csrfToken)
}

// handleStats returns the summary tiles (htmx partial). A failed fetch
// renders zero counts; the error is logged by the catalog service.
func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, _ := a.summary.Load(r.Context())
	a.renderStats(w, summary)
}

// handleHelp renders a help page from the embedded markdown
func (a *Admin) handleHelp(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("page")
	if name == "" {
		name = defaultHelpPage
	}
	page, ok := a.help.get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderHelp(w, r, currentSession(r), page, csrfToken)
}

// sessionExpired handles a missing or rejected token: the stale token is
// dropped and the browser is sent to log in again.
func (a *Admin) sessionExpired(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.SetToken(r.Context(), ""); err != nil {
		a.logger.Error("failed to clear token", "error", err)
	}
	sess.AddFlash(session.FlashError, products.MsgSessionExpired)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// isAuthError reports whether err means the operator must log in again
func isAuthError(err error) bool {
	if errors.Is(err, backend.ErrUnauthorized) {
		return true
	}
	code := backend.StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
