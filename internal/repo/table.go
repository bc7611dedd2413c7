package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/idgen"
	"github.com/xxxsen/mshelf/internal/pkg/timeutil"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// tableDef binds a row type to its postgres table.
type tableDef[T any] struct {
	name    string
	columns []string
	mutable []string
	scan    func(rowScanner) (T, error)
	values  func(T) map[string]interface{}
	stamp   func(row *T, id string, ctime int64)
}

// Table implements gateway.Table over one owner-scoped table. Ids and ctime
// are assigned here, never by the caller.
type Table[T any] struct {
	db  *sql.DB
	def tableDef[T]
}

func (r *Table[T]) Select(ctx context.Context, ownerID, orderBy string) ([]T, error) {
	desc, err := gateway.ParseOrder(orderBy)
	if err != nil {
		return nil, err
	}
	order := "ctime asc, id asc"
	if desc {
		order = "ctime desc, id desc"
	}
	where := map[string]interface{}{"user_id": ownerID, "_orderby": order}
	sqlStr, args, err := dbutil.Build(builder.BuildSelect(r.def.name, where, r.def.columns))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]T, 0)
	for rows.Next() {
		item, err := r.def.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Table[T]) Insert(ctx context.Context, row T) (T, error) {
	var zero T
	r.def.stamp(&row, idgen.NewID(), timeutil.NowUnixMilli())
	data := r.def.values(row)
	if owner, _ := data["user_id"].(string); owner == "" {
		return zero, fmt.Errorf("%w: user_id is required", appErr.ErrInvalid)
	}
	sqlStr, args, err := dbutil.Build(builder.BuildInsert(r.def.name, []map[string]interface{}{data}))
	if err != nil {
		return zero, err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return zero, fmt.Errorf("%w: %s row already exists", appErr.ErrConflict, r.def.name)
		}
		return zero, err
	}
	return row, nil
}

func (r *Table[T]) Update(ctx context.Context, ownerID, id string, patch gateway.Patch) error {
	if err := gateway.CheckPatch(patch, r.def.mutable...); err != nil {
		return err
	}
	where := map[string]interface{}{"id": id, "user_id": ownerID}
	sqlStr, args, err := dbutil.Build(builder.BuildUpdate(r.def.name, where, map[string]interface{}(patch)))
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}

func (r *Table[T]) Delete(ctx context.Context, ownerID, id string) error {
	where := map[string]interface{}{"id": id, "user_id": ownerID}
	sqlStr, args, err := dbutil.Build(builder.BuildDelete(r.def.name, where))
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}

func (r *Table[T]) execAffected(ctx context.Context, sqlStr string, args []interface{}) error {
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
