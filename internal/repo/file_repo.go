package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/pkg/dbutil"
)

var fileColumns = []string{"id", "user_id", "filename", "mime_type", "size", "storage_path", "ctime"}

// FileRepo stores file and media metadata. Rows are immutable.
type FileRepo struct {
	Table[model.FileAsset]
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{Table: Table[model.FileAsset]{db: db, def: tableDef[model.FileAsset]{
		name:    "files",
		columns: fileColumns,
		scan:    scanFile,
		values: func(f model.FileAsset) map[string]interface{} {
			return map[string]interface{}{
				"id":           f.ID,
				"user_id":      f.UserID,
				"filename":     f.Filename,
				"mime_type":    f.MimeType,
				"size":         f.Size,
				"storage_path": f.StoragePath,
				"ctime":        f.Ctime,
			}
		},
		stamp: func(f *model.FileAsset, id string, ctime int64) {
			f.ID, f.Ctime = id, ctime
		},
	}}}
}

func scanFile(s rowScanner) (model.FileAsset, error) {
	var f model.FileAsset
	err := s.Scan(&f.ID, &f.UserID, &f.Filename, &f.MimeType, &f.Size, &f.StoragePath, &f.Ctime)
	return f, err
}

// ListAfter pages through every owner's rows in id order.
func (r *FileRepo) ListAfter(ctx context.Context, afterID string, limit uint) ([]model.FileAsset, error) {
	where := map[string]interface{}{"_orderby": "id asc"}
	if afterID != "" {
		where["id >"] = afterID
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := dbutil.Build(builder.BuildSelect("files", where, fileColumns))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.FileAsset, 0)
	for rows.Next() {
		item, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
