// ABOUTME: Operator activity: records logins and product changes, and lists them
// ABOUTME: Recording is best effort; a failed append is logged and never blocks the action

package webadmin

import (
	"context"
	"net/http"
	"strings"

	"github.com/stellara/stellara-admin/internal/products"
	"github.com/stellara/stellara-admin/internal/session"
	"github.com/stellara/stellara-admin/internal/store"
)

// activityPageSize is how many entries the activity page shows.
const activityPageSize = 50

var activityLabels = map[store.ActivityAction]string{
	store.ActivityLogin:         "Logged in",
	store.ActivityLogout:        "Logged out",
	store.ActivityCreateProduct: "Created product",
	store.ActivityUpdateProduct: "Updated product",
	store.ActivityDeleteProduct: "Deleted product",
}

// activityLabel is the display text of an action.
func activityLabel(action store.ActivityAction) string {
	if l, ok := activityLabels[action]; ok {
		return l
	}
	return string(action)
}

// actor names the operator of sess by email.
func actor(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Snapshot().User.Email()
}

// record appends an activity entry when an activity log is configured.
func (a *Admin) record(ctx context.Context, who string, action store.ActivityAction, productID, name string) {
	if a.config.Activity == nil {
		return
	}
	e := &store.Activity{
		Actor:     who,
		Action:    action,
		ProductID: productID,
	}
	if name != "" {
		e.Detail = map[string]any{"name": name}
	}
	if err := a.config.Activity.AppendActivity(context.WithoutCancel(ctx), e); err != nil {
		a.logger.Warn("failed to record activity", "action", action, "error", err)
	}
}

// recordSave records a successful product save.
func (a *Admin) recordSave(ctx context.Context, sess *session.Session, res *products.SaveResult) {
	action := store.ActivityCreateProduct
	if res.Mode == products.ModeEdit {
		action = store.ActivityUpdateProduct
	}
	a.record(ctx, actor(sess), action, res.ProductID, res.Name)
}

type activityRow struct {
	store.Activity
	Label string
	Name  string
}

type activityData struct {
	shellData
	Enabled   bool
	ProductID string
	Rows      []activityRow
}

// handleActivity lists recent activity, optionally for one product.
func (a *Admin) handleActivity(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	r, csrfToken := a.ensureCSRFToken(w, r)

	data := activityData{
		shellData: shell(sess, "Activity", "activity", csrfToken),
		Enabled:   a.config.Activity != nil,
		ProductID: strings.TrimSpace(r.URL.Query().Get("product")),
	}

	if data.Enabled {
		filter := store.ActivityFilter{Limit: activityPageSize}
		if data.ProductID != "" {
			filter.ProductID = &data.ProductID
		}
		entries, err := a.config.Activity.ListActivity(r.Context(), filter)
		if err != nil {
			a.logger.Error("failed to list activity", "error", err)
			data.Flashes = append(data.Flashes, session.Flash{Kind: session.FlashError, Message: "Failed to load activity."})
		}
		for _, e := range entries {
			name, _ := e.Detail["name"].(string)
			data.Rows = append(data.Rows, activityRow{Activity: e, Label: activityLabel(e.Action), Name: name})
		}
	}

	a.render(w, "activity", data)
}
