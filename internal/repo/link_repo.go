package repo

import (
	"database/sql"

	"github.com/xxxsen/mshelf/internal/model"
)

type LinkRepo struct {
	Table[model.Link]
}

func NewLinkRepo(db *sql.DB) *LinkRepo {
	return &LinkRepo{Table: Table[model.Link]{db: db, def: tableDef[model.Link]{
		name:    "links",
		columns: []string{"id", "user_id", "url", "description", "ctime"},
		mutable: []string{"url", "description"},
		scan: func(s rowScanner) (model.Link, error) {
			var l model.Link
			err := s.Scan(&l.ID, &l.UserID, &l.URL, &l.Description, &l.Ctime)
			return l, err
		},
		values: func(l model.Link) map[string]interface{} {
			return map[string]interface{}{
				"id":          l.ID,
				"user_id":     l.UserID,
				"url":         l.URL,
				"description": l.Description,
				"ctime":       l.Ctime,
			}
		},
		stamp: func(l *model.Link, id string, ctime int64) {
			l.ID, l.Ctime = id, ctime
		},
	}}}
}
