// ABOUTME: Product management workflow: list, create/edit modal, image picker, delete
// ABOUTME: A mutex-guarded state machine whose backend calls run outside the lock

package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/submit"
)

// User-facing messages.
const (
	MsgSaved          = "Product saved!"
	MsgSaveFailed     = "Failed to save product."
	MsgDeleted        = "Product deleted successfully!"
	MsgDeleteFailed   = "Failed to delete product."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgConfirmDelete  = "Are you sure to delete this product?"
)

var (
	// ErrDismissed is returned when the workflow was dismissed while a call
	// was in flight. The call's result was discarded.
	ErrDismissed = errors.New("product view dismissed")
	// ErrNoModal is returned when an operation needs an open modal, or the
	// submitted form belongs to a modal that is no longer open.
	ErrNoModal = errors.New("no product form is open")
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("a submission is in progress")
	// ErrNotConfirmed is returned when a delete lacks confirmation.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrProductNotFound is returned when the product is not in the list.
	ErrProductNotFound = errors.New("product not found")
)

// State is the workflow state.
type State int

const (
	StateIdle State = iota
	StateModalOpen
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateModalOpen:
		return "modal_open"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode says what the modal is for.
type Mode int

const (
	ModeNone Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "none"
	}
}

// Backend is the part of the backend client the workflow uses.
type Backend interface {
	ListProducts(ctx context.Context) ([]backend.Product, error)
	CreateProduct(ctx context.Context, token string, in backend.ProductInput) (*backend.Result, error)
	UpdateProduct(ctx context.Context, token, id string, in backend.ProductInput) (*backend.Result, error)
	DeleteProduct(ctx context.Context, token, id string) (*backend.Result, error)
}

// Config configures a Workflow.
type Config struct {
	// Categories are offered in the form in addition to those seen in the list.
	Categories []string
	// Guard makes each delete confirmation usable once. Nil disables the check.
	Guard        *submit.Guard
	MaxImageSize int
	Logger       *slog.Logger
}

// Workflow is the product management state machine of one list view.
// It is safe for concurrent use; backend calls are made without the lock
// held, and whichever list refresh completes last is what the view shows.
type Workflow struct {
	api          Backend
	guard        *submit.Guard
	categories   []string
	maxImageSize int
	logger       *slog.Logger

	scope  context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	mode       Mode
	editID     string
	form       Form
	image      *ImageEntry
	imageErr   string
	errs       ValidationErrors
	modalErr   string
	nonce      string
	modalSeq   uint64
	products   []backend.Product
	loaded     bool
	listFailed bool
}

// NewWorkflow creates an idle workflow with an empty list.
func NewWorkflow(api Backend, cfg Config) *Workflow {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "products")
	}
	maxSize := cfg.MaxImageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	scope, cancel := context.WithCancel(context.Background())
	return &Workflow{
		api:          api,
		guard:        cfg.Guard,
		categories:   normalizeCategories(cfg.Categories),
		maxImageSize: maxSize,
		logger:       logger,
		scope:        scope,
		cancel:       cancel,
	}
}

// Dismiss ends the view session. In-flight calls are cancelled and any
// result that still arrives is discarded.
func (w *Workflow) Dismiss() {
	w.cancel()
}

// Dismissed reports whether Dismiss was called.
func (w *Workflow) Dismissed() bool {
	return w.scope.Err() != nil
}

// bind derives a context that is cancelled with ctx or with the workflow scope.
func (w *Workflow) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(w.scope, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Refresh refetches the full product list. The list is replaced only when
// the fetch succeeds.
func (w *Workflow) Refresh(ctx context.Context) error {
	if w.Dismissed() {
		return ErrDismissed
	}
	ctx, done := w.bind(ctx)
	defer done()

	list, err := w.api.ListProducts(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Dismissed() {
		return ErrDismissed
	}
	if err != nil {
		w.listFailed = true
		w.logger.Warn("failed to fetch products", "error", err)
		return err
	}
	w.products = list
	w.loaded = true
	w.listFailed = false
	return nil
}

// OpenCreate opens an empty modal in Create mode. Any previous draft,
// image, and errors are discarded.
func (w *Workflow) OpenCreate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkOpenable(); err != nil {
		return err
	}
	w.resetDraftLocked()
	w.state = StateModalOpen
	w.mode = ModeCreate
	w.nonce = submit.NewNonce()
	return nil
}

// OpenEdit opens the modal seeded from the listed product id. The image
// picker holds the product's current image as an already persisted entry.
func (w *Workflow) OpenEdit(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkOpenable(); err != nil {
		return err
	}
	p, ok := w.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	w.resetDraftLocked()
	w.state = StateModalOpen
	w.mode = ModeEdit
	w.editID = p.ID
	w.form = formFromProduct(p)
	w.image = persistedImage(p.Image)
	w.nonce = submit.NewNonce()
	return nil
}

// Cancel closes the modal and discards the draft, image, preview, and errors.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetDraftLocked()
	w.state = StateIdle
}

// SetDraft keeps the fields typed into the open modal without sending
// them, so picking or removing an image does not lose them. The form must
// carry the open modal's nonce.
func (w *Workflow) SetDraft(form Form) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateModalOpen || form.Nonce != w.nonce {
		return ErrNoModal
	}
	w.form = form
	return nil
}

// SelectImage puts an upload in the image slot, replacing what was there.
// A file that is not an image is rejected, the rejection is kept for
// display, and the slot keeps its previous entry.
func (w *Workflow) SelectImage(up Upload) error {
	entry, err := newPendingImage(up, w.maxImageSize)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateModalOpen {
		return ErrNoModal
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotImage):
			w.imageErr = NotImageMessage
		case errors.Is(err, ErrImageTooLarge):
			w.imageErr = fmt.Sprintf("Image must be smaller than %d MB", w.maxImageSize>>20)
		default:
			w.imageErr = "Could not read the selected file"
		}
		return err
	}
	w.image = entry
	w.imageErr = ""
	w.errs = removeField(w.errs, FieldImage)
	return nil
}

// RemoveImage empties the image slot.
func (w *Workflow) RemoveImage() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateModalOpen {
		return ErrNoModal
	}
	w.image = nil
	w.imageErr = ""
	return nil
}

// Preview returns a URL showing the current image entry. ok is false when
// the slot is empty.
func (w *Workflow) Preview() (url string, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.image == nil {
		return "", false
	}
	return w.image.previewURL(), true
}

// PendingImage returns the bytes and type of a pending upload.
func (w *Workflow) PendingImage() (data []byte, contentType string, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.image == nil || w.image.Persisted {
		return nil, "", false
	}
	return w.image.data, w.image.ContentType, true
}

// SaveResult is a successful submission.
type SaveResult struct {
	Message string
	// Mode, ProductID, and Name describe what was saved. ProductID is empty
	// for creates.
	Mode      Mode
	ProductID string
	Name      string
	// RefreshErr is set when the save went through but the list refetch failed.
	RefreshErr error
}

// Submit validates the form and sends it: an update of the edited product
// in Edit mode, a create in Create mode. On success the modal closes and the
// list is refetched. On failure the modal stays open with the form as typed
// and the server's message.
func (w *Workflow) Submit(ctx context.Context, token string, form Form) (*SaveResult, error) {
	if w.Dismissed() {
		return nil, ErrDismissed
	}

	w.mu.Lock()
	switch {
	case w.state == StateSubmitting:
		w.mu.Unlock()
		return nil, ErrBusy
	case w.state != StateModalOpen || form.Nonce != w.nonce:
		w.mu.Unlock()
		return nil, ErrNoModal
	}

	w.form = form.Trimmed()
	w.form.Nonce = w.nonce
	w.modalErr = ""

	if token == "" {
		w.mu.Unlock()
		return nil, backend.ErrUnauthorized
	}

	if errs := Validate(w.mode, w.form, w.offeredCategoriesLocked(), w.image != nil); len(errs) > 0 {
		w.errs = errs
		w.mu.Unlock()
		return nil, errs
	}
	w.errs = nil

	in := inputFromForm(w.form, w.image)
	mode, id, seq, name := w.mode, w.editID, w.modalSeq, w.form.Name
	w.state = StateSubmitting
	w.mu.Unlock()

	callCtx, done := w.bind(ctx)
	var res *backend.Result
	var err error
	if mode == ModeEdit {
		res, err = w.api.UpdateProduct(callCtx, token, id, in)
	} else {
		res, err = w.api.CreateProduct(callCtx, token, in)
	}
	done()

	w.mu.Lock()
	if w.Dismissed() {
		w.mu.Unlock()
		return nil, ErrDismissed
	}
	current := w.modalSeq == seq
	if err != nil {
		if current {
			w.state = StateModalOpen
			w.modalErr = backend.UserMessage(err, MsgSaveFailed)
		}
		w.mu.Unlock()
		w.logger.Warn("failed to save product", "mode", mode.String(), "product_id", id, "error", err)
		return nil, err
	}
	if current {
		w.resetDraftLocked()
		w.state = StateIdle
	}
	w.mu.Unlock()

	w.logger.Info("saved product", "mode", mode.String(), "product_id", id)

	msg := MsgSaved
	if res != nil && res.Message != "" {
		msg = res.Message
	}
	result := &SaveResult{Message: msg, Mode: mode, ProductID: id, Name: name}
	if err := w.Refresh(ctx); err != nil {
		if errors.Is(err, ErrDismissed) {
			return nil, err
		}
		result.RefreshErr = err
	}
	return result, nil
}

// Delete removes product id once the operator confirmed. confirmation is
// the token of the confirmation prompt; empty means not confirmed yet. With
// a guard configured each confirmation deletes at most once, so a repeated
// POST of the same prompt is refused with submit.ErrDuplicateSubmission
// before reaching the backend. A failed delete releases the confirmation for
// a retry. The list is only changed by the refetch that follows a successful
// delete, never locally.
func (w *Workflow) Delete(ctx context.Context, token, id, confirmation string) (string, error) {
	if w.Dismissed() {
		return "", ErrDismissed
	}
	if confirmation == "" {
		return "", ErrNotConfirmed
	}
	if token == "" {
		return "", backend.ErrUnauthorized
	}

	key := id + "/" + confirmation
	if w.guard != nil {
		if err := w.guard.Claim(key); err != nil {
			return "", err
		}
	}

	callCtx, done := w.bind(ctx)
	_, err := w.api.DeleteProduct(callCtx, token, id)
	done()

	if err != nil && w.guard != nil {
		w.guard.Release(key)
	}
	if w.Dismissed() {
		return "", ErrDismissed
	}
	if err != nil {
		w.logger.Warn("failed to delete product", "product_id", id, "error", err)
		return "", err
	}

	w.logger.Info("deleted product", "product_id", id)
	if err := w.Refresh(ctx); err != nil && errors.Is(err, ErrDismissed) {
		return "", err
	}
	return MsgDeleted, nil
}

// View is a consistent copy of everything the products page renders.
type View struct {
	State      State
	Mode       Mode
	EditID     string
	Products   []backend.Product
	Loaded     bool
	ListFailed bool
	Categories []string

	// CategoryOptions is Categories with the draft's category selected.
	CategoryOptions []CategoryOption

	Form       Form
	Errors     ValidationErrors
	ModalError string
	Image      *ImageView
	ImageError string
	Nonce      string
}

// ImageView describes the image slot.
type ImageView struct {
	Name      string
	Persisted bool
	URL       string
	Size      int
}

// ModalOpen reports whether the modal is shown.
func (v View) ModalOpen() bool {
	return v.State != StateIdle
}

// Error returns the message for field, empty when the field is fine.
func (v View) Error(field string) string {
	if fe, ok := v.Errors.For(field); ok {
		return fe.Message
	}
	return ""
}

// View returns a snapshot of the workflow.
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		State:      w.state,
		Mode:       w.mode,
		EditID:     w.editID,
		Products:   append([]backend.Product(nil), w.products...),
		Loaded:     w.loaded,
		ListFailed: w.listFailed,
		Categories: w.offeredCategoriesLocked(),
		Form:       w.form,
		Errors:     append(ValidationErrors(nil), w.errs...),
		ModalError: w.modalErr,
		ImageError: w.imageErr,
		Nonce:      w.nonce,
	}
	v.Form.Nonce = w.nonce
	v.CategoryOptions = categoryOptions(v.Categories, v.Form.Category)
	if w.image != nil {
		iv := &ImageView{Name: w.image.Name(), Persisted: w.image.Persisted, Size: w.image.Size}
		if w.image.Persisted {
			iv.URL = w.image.URL
		}
		v.Image = iv
	}
	return v
}

// Products returns the currently displayed list.
func (w *Workflow) Products() []backend.Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]backend.Product(nil), w.products...)
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) checkOpenable() error {
	if w.Dismissed() {
		return ErrDismissed
	}
	if w.state == StateSubmitting {
		return ErrBusy
	}
	return nil
}

// resetDraftLocked clears all modal state and starts a new modal sequence so
// late results of an earlier modal cannot touch the new one.
func (w *Workflow) resetDraftLocked() {
	w.mode = ModeNone
	w.editID = ""
	w.form = Form{}
	w.image = nil
	w.imageErr = ""
	w.errs = nil
	w.modalErr = ""
	w.nonce = ""
	w.modalSeq++
}

func (w *Workflow) findLocked(id string) (backend.Product, bool) {
	for _, p := range w.products {
		if p.ID == id {
			return p, true
		}
	}
	return backend.Product{}, false
}

// offeredCategoriesLocked is the configured categories plus every category
// seen in the list, configured ones first. Categories differing only in case
// are offered once; a listed one keeps the server's spelling.
func (w *Workflow) offeredCategoriesLocked() []string {
	out := append([]string(nil), w.categories...)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[strings.ToLower(c)] = true
	}
	var extra []string
	for _, p := range w.products {
		c := strings.TrimSpace(p.Category)
		key := strings.ToLower(c)
		if c != "" && !seen[key] {
			seen[key] = true
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// CategoryOption is one entry of the category select.
type CategoryOption struct {
	Value    string
	Selected bool
}

// categoryOptions marks the offered category matching current, ignoring
// case. The selected option carries current's spelling so a product's
// category is sent back as the server stored it.
func categoryOptions(offered []string, current string) []CategoryOption {
	current = strings.TrimSpace(current)
	opts := make([]CategoryOption, 0, len(offered))
	for _, c := range offered {
		if current != "" && strings.EqualFold(c, current) {
			opts = append(opts, CategoryOption{Value: current, Selected: true})
			continue
		}
		opts = append(opts, CategoryOption{Value: c})
	}
	return opts
}

func normalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func formFromProduct(p backend.Product) Form {
	f := Form{
		Name:      p.Name,
		Price:     p.Price.String(),
		Category:  p.Category,
		WhatsApp:  p.SocialMedia.WhatsApp,
		Instagram: p.SocialMedia.Instagram,
		Facebook:  p.SocialMedia.Facebook,
	}
	if p.OldPrice.Valid {
		f.OldPrice = p.OldPrice.Decimal.String()
	}
	return f
}

// inputFromForm builds the backend payload from a validated form.
func inputFromForm(f Form, image *ImageEntry) backend.ProductInput {
	price, _ := decimal.NewFromString(f.Price)
	in := backend.ProductInput{
		Name:     f.Name,
		Price:    price,
		Category: f.Category,
		Social: backend.SocialMedia{
			WhatsApp:  f.WhatsApp,
			Instagram: f.Instagram,
			Facebook:  f.Facebook,
		},
		Image: image.upload(),
	}
	if f.OldPrice != "" {
		if old, err := decimal.NewFromString(f.OldPrice); err == nil {
			in.OldPrice = decimal.NewNullDecimal(old)
		}
	}
	return in
}

func removeField(errs ValidationErrors, field string) ValidationErrors {
	out := errs[:0:0]
	for _, e := range errs {
		if e.Field != field {
			out = append(out, e)
		}
	}
	return out
}
