package model

type Todo struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Ctime     int64  `json:"ctime"`
}
