package repo

import (
	"database/sql"

	"github.com/xxxsen/mshelf/internal/model"
)

type TodoRepo struct {
	Table[model.Todo]
}

// NewTodoRepo only allows completion to change; the text is fixed at creation.
func NewTodoRepo(db *sql.DB) *TodoRepo {
	return &TodoRepo{Table: Table[model.Todo]{db: db, def: tableDef[model.Todo]{
		name:    "todos",
		columns: []string{"id", "user_id", "text", "completed", "ctime"},
		mutable: []string{"completed"},
		scan: func(s rowScanner) (model.Todo, error) {
			var t model.Todo
			err := s.Scan(&t.ID, &t.UserID, &t.Text, &t.Completed, &t.Ctime)
			return t, err
		},
		values: func(t model.Todo) map[string]interface{} {
			return map[string]interface{}{
				"id":        t.ID,
				"user_id":   t.UserID,
				"text":      t.Text,
				"completed": t.Completed,
				"ctime":     t.Ctime,
			}
		},
		stamp: func(t *model.Todo, id string, ctime int64) {
			t.ID, t.Ctime = id, ctime
		},
	}}}
}
