// ABOUTME: Template rendering functions for admin UI
// ABOUTME: Loads templates from embedded filesystem and renders them

package webadmin

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stellara/stellara-admin/internal/assets"
	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/catalog"
	"github.com/stellara/stellara-admin/internal/products"
	"github.com/stellara/stellara-admin/internal/session"
	"github.com/stellara/stellara-admin/internal/submit"
)

// Page templates, each rendered inside templates/base.html.
var pageFiles = []string{"login", "dashboard", "products", "help", "activity"}

var templateFuncs = template.FuncMap{
	"naira":         func(d decimal.Decimal) string { return "₦" + d.String() },
	"categoryLabel": catalog.Label,
	"whatsappURL": func(number string) string {
		return "https://wa.me/" + strings.TrimPrefix(strings.TrimSpace(number), "+")
	},
	"timestamp": func(t time.Time) string { return t.Local().Format("Jan 02 15:04") },
	"asset":     assets.URL,
	"kb": func(size int) string {
		return decimal.NewFromInt(int64(size)).Div(decimal.NewFromInt(1024)).StringFixed(1) + " KB"
	},
}

// parsePages parses every page with the base layout
func parsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageFiles)+1)
	for _, name := range pageFiles {
		pages[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html", "templates/"+name+".html"))
	}
	pages["stats"] = template.Must(template.New("stats").Funcs(templateFuncs).ParseFS(templateFS,
		"templates/partials/stats.html"))
	return pages
}

// Template data types
type shellData struct {
	Title     string
	Active    string
	User      string
	Email     string
	CSRFToken string
	Flashes   []session.Flash
}

type loginForm struct {
	Email         string
	EmailError    string
	PasswordError string
	Error         string
}

type loginData struct {
	shellData
	Form loginForm
}

type dashboardData struct {
	shellData
	Placeholders []catalog.Tile
}

type statsData struct {
	Tiles []catalog.Tile
}

type productsData struct {
	shellData
	View products.View
	// Preview is what the modal's <img> shows for the image entry.
	Preview        template.URL
	ConfirmDelete  *backend.Product
	ConfirmMessage string
	// ConfirmToken identifies one confirmation prompt; each deletes once.
	ConfirmToken string
}

// ModalTitle is the heading of the product modal
func (d productsData) ModalTitle() string {
	if d.View.Mode == products.ModeEdit {
		return "Edit Product"
	}
	return "Add Product"
}

// SubmitLabel is the caption of the modal's submit button
func (d productsData) SubmitLabel() string {
	if d.View.Mode == products.ModeEdit {
		return "Update Product"
	}
	return "Save Product"
}

// Submitting reports whether a save is in flight
func (d productsData) Submitting() bool {
	return d.View.State == products.StateSubmitting
}

type helpData struct {
	shellData
	Page  *helpPage
	Pages []*helpPage
}

// shell builds the common layout data. Flashes are consumed.
func shell(sess *session.Session, title, active, csrfToken string) shellData {
	d := shellData{
		Title:     title,
		Active:    active,
		CSRFToken: csrfToken,
	}
	if sess == nil {
		return d
	}
	d.Flashes = sess.TakeFlashes()
	snap := sess.Snapshot()
	if snap.Authenticated() {
		d.User = snap.User.DisplayName()
		if d.User == "" {
			d.User = "Admin"
		}
		d.Email = snap.User.Email()
	}
	return d
}

// render executes a page template with the base layout
func (a *Admin) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := a.pages[page]
	if !ok {
		a.logger.Error("unknown page template", "page", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
	}
}

// renderLoginPage renders the login page
func (a *Admin) renderLoginPage(w http.ResponseWriter, r *http.Request, form loginForm, csrfToken string) {
	sh := shell(currentSession(r), "Login", "", csrfToken)
	// The login page never shows the shell, even for a stale session.
	sh.User, sh.Email = "", ""
	a.render(w, "login", loginData{shellData: sh, Form: form})
}

// renderDashboard renders the dashboard with placeholder tiles
func (a *Admin) renderDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session, csrfToken string) {
	a.render(w, "dashboard", dashboardData{
		shellData:    shell(sess, "Dashboard", "dashboard", csrfToken),
		Placeholders: catalog.Summarize(nil, a.summary.Categories()).Tiles,
	})
}

// renderStats renders the summary tiles partial (htmx response)
func (a *Admin) renderStats(w http.ResponseWriter, summary catalog.Summary) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.pages["stats"].ExecuteTemplate(w, "stats", statsData{Tiles: summary.Tiles}); err != nil {
		a.logger.Error("failed to render stats", "error", err)
	}
}

// renderProducts renders the product list and the modal when open
func (a *Admin) renderProducts(w http.ResponseWriter, r *http.Request, sess *session.Session, wf *products.Workflow, confirmID, csrfToken string) {
	data := productsData{
		shellData:      shell(sess, "Products", "products", csrfToken),
		View:           wf.View(),
		ConfirmMessage: products.MsgConfirmDelete,
	}
	if src, ok := wf.Preview(); ok {
		// Preview is either the backend's image URL or a data: URL of image
		// bytes that passed sniffing.
		data.Preview = template.URL(src)
	}
	if confirmID != "" {
		for i := range data.View.Products {
			if data.View.Products[i].ID == confirmID {
				data.ConfirmDelete = &data.View.Products[i]
				data.ConfirmToken = submit.NewNonce()
				break
			}
		}
	}
	a.render(w, "products", data)
}

// renderHelp renders a help page
func (a *Admin) renderHelp(w http.ResponseWriter, r *http.Request, sess *session.Session, page *helpPage, csrfToken string) {
	a.render(w, "help", helpData{
		shellData: shell(sess, "Help: "+page.Title, "help", csrfToken),
		Page:      page,
		Pages:     a.help.list(),
	})
}
