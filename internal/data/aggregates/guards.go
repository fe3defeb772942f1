package aggregates

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
)

// CASGuard issues conditional UPDATEs keyed on a row's version column. Every
// successful guarded update bumps version by one, so a second writer holding
// the same snapshot matches zero rows.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// casTarget describes one guarded row. Statuses, when set, must also contain
// the row's current status.
type casTarget struct {
	Table    string
	ID       int64
	Version  int
	Statuses []string
}

func (g CASGuard) update(dbc dbctx.Context, target casTarget, updates map[string]any) (bool, error) {
	if dbc.Tx == nil && g.db == nil {
		return false, ValidationError("missing db transaction context")
	}
	target.Table = strings.TrimSpace(target.Table)
	if target.Table == "" || target.ID <= 0 {
		return false, ValidationError("table and id are required for a guarded update")
	}
	if target.Version < 0 {
		return false, ValidationError("expected version must be >= 0")
	}
	if len(updates) == 0 {
		return false, ValidationError("guarded update has no fields")
	}

	fields := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields["version"] = target.Version + 1

	q := dbc.DB(g.db).Table(target.Table).
		Where("id = ? AND version = ? AND deleted_at IS NULL", target.ID, target.Version)
	if len(target.Statuses) > 0 {
		q = q.Where("status IN ?", target.Statuses)
	}
	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateByVersion updates a live row only while its version is still expectedVersion.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id int64, expectedVersion int, updates map[string]any) (bool, error) {
	return g.update(dbc, casTarget{Table: table, ID: id, Version: expectedVersion}, updates)
}

// UpdateByVersionAndStatus additionally requires the row's status to be one of
// allowedStatuses, so a concurrent status change (e.g. to completed) also
// loses the race.
func (g CASGuard) UpdateByVersionAndStatus(dbc dbctx.Context, table string, id int64, expectedVersion int, allowedStatuses []string, updates map[string]any) (bool, error) {
	if len(allowedStatuses) == 0 {
		return false, ValidationError("allowed statuses must not be empty")
	}
	return g.update(dbc, casTarget{Table: table, ID: id, Version: expectedVersion, Statuses: allowedStatuses}, updates)
}

// RequireCASSuccess converts a lost compare-and-swap into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
