package model

import "strings"

const (
	KindFile  = "file"
	KindImage = "image"
	KindVideo = "video"
)

// FileAsset is the metadata row of an uploaded binary. Rows whose mime type is
// image/* or video/* are media assets; the kind is derived, never stored.
type FileAsset struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	StoragePath string `json:"storage_path"`
	Ctime       int64  `json:"ctime"`
}

func (f FileAsset) Kind() string {
	mt := strings.ToLower(strings.TrimSpace(f.MimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

func (f FileAsset) IsMedia() bool {
	return f.Kind() != KindFile
}
