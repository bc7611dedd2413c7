package repo

import (
	"database/sql"

	"github.com/xxxsen/mshelf/internal/model"
)

type NoteRepo struct {
	Table[model.Note]
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{Table: Table[model.Note]{db: db, def: tableDef[model.Note]{
		name:    "notes",
		columns: []string{"id", "user_id", "title", "content", "ctime"},
		mutable: []string{"title", "content"},
		scan: func(s rowScanner) (model.Note, error) {
			var n model.Note
			err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Ctime)
			return n, err
		},
		values: func(n model.Note) map[string]interface{} {
			return map[string]interface{}{
				"id":      n.ID,
				"user_id": n.UserID,
				"title":   n.Title,
				"content": n.Content,
				"ctime":   n.Ctime,
			}
		},
		stamp: func(n *model.Note, id string, ctime int64) {
			n.ID, n.Ctime = id, ctime
		},
	}}}
}
