package model

type Link struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Ctime       int64  `json:"ctime"`
}
