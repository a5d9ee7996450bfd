// ABOUTME: Product management routes: list, modal form, image picker, delete
// ABOUTME: Each browser session drives its own products.Workflow held in the session

package webadmin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/products"
	"github.com/stellara/stellara-admin/internal/session"
	"github.com/stellara/stellara-admin/internal/store"
	"github.com/stellara/stellara-admin/internal/submit"
)

const productsPath = "/dashboard/products"

// multipartOverhead is room for the text fields next to the image.
const multipartOverhead = 1 << 20

// workflow returns the session's products workflow, creating it on first use.
func (a *Admin) workflow(sess *session.Session) *products.Workflow {
	return sess.Part(productsPart, func() any {
		return products.NewWorkflow(a.api, products.Config{
			Categories:   a.config.Categories,
			Guard:        a.guard,
			MaxImageSize: a.config.MaxImageSize,
			Logger:       a.logger.With("session_view", "products"),
		})
	}).(*products.Workflow)
}

// dismissProducts ends the session's products workflow, if any. Calls still
// in flight are cancelled and their results discarded.
func (a *Admin) dismissProducts(sess *session.Session) {
	if sess == nil {
		return
	}
	if wf, ok := sess.DropPart(productsPart).(*products.Workflow); ok {
		wf.Dismiss()
	}
}

// ensureLoaded fetches the list when the workflow has never loaded it.
func (a *Admin) ensureLoaded(ctx context.Context, wf *products.Workflow) {
	if wf.View().Loaded {
		return
	}
	_ = wf.Refresh(ctx)
}

// handleProductsPage renders the product list and, when open, the modal.
// The list is refetched on every visit while no modal is open.
func (a *Admin) handleProductsPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	wf := a.workflow(sess)

	if wf.State() == products.StateIdle {
		if err := wf.Refresh(r.Context()); err != nil && !errors.Is(err, products.ErrDismissed) {
			sess.AddFlash(session.FlashError, "Failed to load products.")
		}
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderProducts(w, r, sess, wf, r.URL.Query().Get("confirm_delete"), csrfToken)
}

// handleProductNew opens an empty modal
func (a *Admin) handleProductNew(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	wf := a.workflow(sess)
	a.ensureLoaded(r.Context(), wf)

	if err := wf.OpenCreate(); err != nil {
		a.flashWorkflowError(sess, err)
	}
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// handleProductEdit opens the modal seeded from a listed product
func (a *Admin) handleProductEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Product ID required", http.StatusBadRequest)
		return
	}

	sess := currentSession(r)
	wf := a.workflow(sess)
	a.ensureLoaded(r.Context(), wf)

	if err := wf.OpenEdit(id); err != nil {
		a.flashWorkflowError(sess, err)
	}
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// handleProductCancel closes the modal and discards the draft
func (a *Admin) handleProductCancel(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	a.workflow(currentSession(r)).Cancel()
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// draftForm reads the modal fields of a parsed form. ok is false when the
// request did not come from the modal form.
func draftForm(r *http.Request) (form products.Form, ok bool) {
	if !r.Form.Has("name") {
		return products.Form{}, false
	}
	return products.Form{
		Name:      r.FormValue("name"),
		Price:     r.FormValue("price"),
		OldPrice:  r.FormValue("oldPrice"),
		Category:  r.FormValue("category"),
		WhatsApp:  r.FormValue("whatsapp"),
		Instagram: r.FormValue("instagram"),
		Facebook:  r.FormValue("facebook"),
		Nonce:     r.FormValue("nonce"),
	}, true
}

// keepDraft stores the typed modal fields, if the request carries them.
func (a *Admin) keepDraft(r *http.Request, wf *products.Workflow) {
	if form, ok := draftForm(r); ok {
		if err := wf.SetDraft(form); err != nil {
			a.logger.Debug("draft not kept", "error", err)
		}
	}
}

// handleProductSave submits the modal form. A file sent along with the form
// replaces the image entry first; the typed fields are kept either way.
func (a *Admin) handleProductSave(w http.ResponseWriter, r *http.Request) {
	if !a.parseUpload(w, r) {
		return
	}
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	sess := currentSession(r)
	wf := a.workflow(sess)
	form, _ := draftForm(r)
	a.keepDraft(r, wf)

	up, ok, err := readUpload(r)
	if err != nil {
		a.logger.Warn("failed to read uploaded image", "error", err)
	}
	if ok {
		if err := wf.SelectImage(up); err != nil {
			// The rejection is shown in the modal; the form is not sent.
			http.Redirect(w, r, productsPath, http.StatusSeeOther)
			return
		}
	}

	res, err := wf.Submit(r.Context(), sess.Token(), form)
	if err != nil {
		var verrs products.ValidationErrors
		switch {
		case isAuthError(err):
			a.sessionExpired(w, r, sess)
			return
		case errors.As(err, &verrs):
			// Field errors are rendered inline by the modal.
		default:
			a.flashWorkflowError(sess, err)
		}
		http.Redirect(w, r, productsPath, http.StatusSeeOther)
		return
	}

	a.recordSave(r.Context(), sess, res)
	sess.AddFlash(session.FlashSuccess, res.Message)
	if res.RefreshErr != nil {
		sess.AddFlash(session.FlashError, "Failed to load products.")
	}
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// handleImageSelect puts an uploaded file in the image slot
func (a *Admin) handleImageSelect(w http.ResponseWriter, r *http.Request) {
	if !a.parseUpload(w, r) {
		return
	}
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	sess := currentSession(r)
	wf := a.workflow(sess)
	a.keepDraft(r, wf)

	up, ok, err := readUpload(r)
	if err != nil || !ok {
		sess.AddFlash(session.FlashError, "Please choose an image file.")
		http.Redirect(w, r, productsPath, http.StatusSeeOther)
		return
	}
	if err := wf.SelectImage(up); errors.Is(err, products.ErrNoModal) {
		a.flashWorkflowError(sess, err)
	}
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// handleImageRemove empties the image slot
func (a *Admin) handleImageRemove(w http.ResponseWriter, r *http.Request) {
	if !a.parseUpload(w, r) {
		return
	}
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}
	sess := currentSession(r)
	wf := a.workflow(sess)
	a.keepDraft(r, wf)
	if err := wf.RemoveImage(); err != nil {
		a.flashWorkflowError(sess, err)
	}
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// handleImagePreview shows the image entry full size: the bytes of a pending
// upload, or a redirect to the remote image of a persisted entry.
func (a *Admin) handleImagePreview(w http.ResponseWriter, r *http.Request) {
	wf := a.workflow(currentSession(r))

	if data, contentType, ok := wf.PendingImage(); ok {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Write(data)
		return
	}

	src, ok := wf.Preview()
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, src, http.StatusFound)
}

// handleProductDelete deletes a product. confirm carries the token of the
// confirmation prompt; without it the list is shown with the prompt instead.
func (a *Admin) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Product ID required", http.StatusBadRequest)
		return
	}

	sess := currentSession(r)
	wf := a.workflow(sess)
	name := listedName(wf, id)
	msg, err := wf.Delete(r.Context(), sess.Token(), id, r.FormValue("confirm"))
	switch {
	case err == nil:
		a.record(r.Context(), actor(sess), store.ActivityDeleteProduct, id, name)
		sess.AddFlash(session.FlashSuccess, msg)
	case errors.Is(err, products.ErrNotConfirmed):
		http.Redirect(w, r, productsPath+"?confirm_delete="+url.QueryEscape(id), http.StatusSeeOther)
		return
	case errors.Is(err, submit.ErrDuplicateSubmission):
		sess.AddFlash(session.FlashInfo, "This delete was already submitted.")
	case isAuthError(err):
		a.sessionExpired(w, r, sess)
		return
	case errors.Is(err, products.ErrDismissed):
	default:
		sess.AddFlash(session.FlashError, backend.UserMessage(err, products.MsgDeleteFailed))
	}
	http.Redirect(w, r, productsPath, http.StatusSeeOther)
}

// listedName returns the name of listed product id, or "".
func listedName(wf *products.Workflow, id string) string {
	for _, p := range wf.View().Products {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

// flashWorkflowError turns a workflow error into a notification
func (a *Admin) flashWorkflowError(sess *session.Session, err error) {
	switch {
	case errors.Is(err, products.ErrProductNotFound):
		sess.AddFlash(session.FlashError, "That product is no longer listed.")
	case errors.Is(err, products.ErrBusy):
		sess.AddFlash(session.FlashInfo, "A save is already in progress.")
	case errors.Is(err, products.ErrNoModal):
		sess.AddFlash(session.FlashInfo, "The product form is no longer open.")
	case errors.Is(err, products.ErrDismissed):
	default:
		sess.AddFlash(session.FlashError, backend.UserMessage(err, products.MsgSaveFailed))
	}
}

// parseUpload parses a multipart body up to the image limit. It writes the
// error response and returns false when the body cannot be parsed.
func (a *Admin) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	limit := int64(a.config.MaxImageSize) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	err := r.ParseMultipartForm(limit)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		if sess := currentSession(r); sess != nil {
			sess.AddFlash(session.FlashError, "The selected file is too large.")
		}
		http.Redirect(w, r, productsPath, http.StatusSeeOther)
		return false
	}
	http.Error(w, "Invalid form data", http.StatusBadRequest)
	return false
}

// readUpload returns the "image" file of a parsed multipart form. ok is false
// when no file was chosen.
func readUpload(r *http.Request) (products.Upload, bool, error) {
	file, header, err := r.FormFile(backend.ImageField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return products.Upload{}, false, nil
	}
	if err != nil {
		return products.Upload{}, false, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return products.Upload{}, false, err
	}
	if len(data) == 0 && header.Filename == "" {
		return products.Upload{}, false, nil
	}
	return products.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true, nil
}
