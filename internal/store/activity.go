// ABOUTME: Activity log of operator actions: logins and product creates, updates, deletes
// ABOUTME: Entries outlive the session that produced them and are listed newest first

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActivityAction represents a recorded operator action.
type ActivityAction string

const (
	ActivityLogin         ActivityAction = "login"
	ActivityLogout        ActivityAction = "logout"
	ActivityCreateProduct ActivityAction = "create_product"
	ActivityUpdateProduct ActivityAction = "update_product"
	ActivityDeleteProduct ActivityAction = "delete_product"
)

// ValidActivityActions lists all valid activity actions.
var ValidActivityActions = []ActivityAction{
	ActivityLogin,
	ActivityLogout,
	ActivityCreateProduct,
	ActivityUpdateProduct,
	ActivityDeleteProduct,
}

// Activity is a single activity log entry.
type Activity struct {
	ID        string         // UUID v4
	Actor     string         // operator email, or "" when the token carried none
	Action    ActivityAction // what was done
	ProductID string         // affected product; empty for logins and creates
	Timestamp time.Time
	Detail    map[string]any // e.g. the product name
}

// ActivityFilter specifies filtering options for listing activity.
type ActivityFilter struct {
	Since     *time.Time
	Until     *time.Time
	Actor     *string
	Action    *ActivityAction
	ProductID *string
	Limit     int // max results (default 100, max 1000)
}

// matches reports whether e passes every set criterion of f.
func (f ActivityFilter) matches(e *Activity) bool {
	switch {
	case f.Since != nil && e.Timestamp.Before(f.Since.UTC().Truncate(time.Second)):
		return false
	case f.Until != nil && e.Timestamp.After(f.Until.UTC()):
		return false
	case f.Actor != nil && e.Actor != *f.Actor:
		return false
	case f.Action != nil && e.Action != *f.Action:
		return false
	case f.ProductID != nil && e.ProductID != *f.ProductID:
		return false
	}
	return true
}

// normalizeActivityLimit applies default (100) and cap (1000).
func normalizeActivityLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// prepareActivity fills the ID and timestamp when unset.
func prepareActivity(e *Activity) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Second)
}

// AppendActivity appends a new entry to the activity log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendActivity(ctx context.Context, e *Activity) error {
	prepareActivity(e)

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling activity detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query := `
		INSERT INTO activity_log (activity_id, actor, action, product_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Actor,
		e.Action,
		e.ProductID,
		e.Timestamp.Format(time.RFC3339),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}

	s.logger.Debug("appended activity",
		"id", e.ID,
		"actor", e.Actor,
		"action", e.Action,
		"product_id", e.ProductID,
	)
	return nil
}

// activityQueryArgs holds the query arguments built from an ActivityFilter.
type activityQueryArgs struct {
	sinceStr  *string
	untilStr  *string
	actionStr *string
}

// buildActivityQueryArgs converts filter time/action fields to query args.
func buildActivityQueryArgs(f ActivityFilter) activityQueryArgs {
	var args activityQueryArgs
	if f.Since != nil {
		s := f.Since.UTC().Format(time.RFC3339)
		args.sinceStr = &s
	}
	if f.Until != nil {
		s := f.Until.UTC().Format(time.RFC3339)
		args.untilStr = &s
	}
	if f.Action != nil {
		a := string(*f.Action)
		args.actionStr = &a
	}
	return args
}

// scanActivity scans a row into an Activity.
func scanActivity(scanner interface{ Scan(dest ...any) error }) (Activity, error) {
	var e Activity
	var actionStr, tsStr string
	var detailJSON *string

	if err := scanner.Scan(
		&e.ID,
		&e.Actor,
		&actionStr,
		&e.ProductID,
		&tsStr,
		&detailJSON,
	); err != nil {
		return e, fmt.Errorf("scanning activity: %w", err)
	}

	e.Action = ActivityAction(actionStr)
	var err error
	e.Timestamp, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

// rowid breaks ties between entries recorded in the same second.
const activityQuery = `
	SELECT activity_id, actor, action, product_id, ts, detail_json
	FROM activity_log
	WHERE (? IS NULL OR ts >= ?)
	  AND (? IS NULL OR ts <= ?)
	  AND (? IS NULL OR actor = ?)
	  AND (? IS NULL OR action = ?)
	  AND (? IS NULL OR product_id = ?)
	ORDER BY ts DESC, rowid DESC
	LIMIT ?
`

// ListActivity returns entries matching the filter, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, f ActivityFilter) ([]Activity, error) {
	limit := normalizeActivityLimit(f.Limit)
	args := buildActivityQueryArgs(f)

	rows, err := s.db.QueryContext(ctx, activityQuery,
		args.sinceStr, args.sinceStr,
		args.untilStr, args.untilStr,
		f.Actor, f.Actor,
		args.actionStr, args.actionStr,
		f.ProductID, f.ProductID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Activity
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}

	if entries == nil {
		entries = []Activity{}
	}
	return entries, nil
}

// AppendActivity appends a new entry to the activity log.
func (m *MemoryStore) AppendActivity(ctx context.Context, e *Activity) error {
	prepareActivity(e)

	stored := *e
	stored.Detail = cloneDetail(e.Detail)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, &stored)
	return nil
}

// ListActivity returns entries matching the filter, newest first.
func (m *MemoryStore) ListActivity(ctx context.Context, f ActivityFilter) ([]Activity, error) {
	limit := normalizeActivityLimit(f.Limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Appends are mostly in time order; a stable pass from the end keeps
	// same-second entries newest first.
	matched := make([]*Activity, 0, len(m.activity))
	for i := len(m.activity) - 1; i >= 0; i-- {
		if f.matches(m.activity[i]) {
			matched = append(matched, m.activity[i])
		}
	}
	sortActivityDesc(matched)

	entries := make([]Activity, 0, min(limit, len(matched)))
	for _, e := range matched {
		if len(entries) == limit {
			break
		}
		c := *e
		c.Detail = cloneDetail(e.Detail)
		entries = append(entries, c)
	}
	return entries, nil
}

func sortActivityDesc(entries []*Activity) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

func cloneDetail(d map[string]any) map[string]any {
	if d == nil {
		return nil
	}
	c := make(map[string]any, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
