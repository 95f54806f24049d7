package models

import "time"

// Image is an uploaded equipment picture deduplicated by content hash.
type Image struct {
	ID        string    `db:"id" json:"id"`
	FileName  string    `db:"file_name" json:"file_name"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	MD5Hash   string    `db:"md5_hash" json:"md5_hash"`
	Size      int64     `db:"size_bytes" json:"size_bytes"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StorageKey is the object name of the original image.
func (i Image) StorageKey() string {
	switch i.MimeType {
	case "image/jpeg":
		return i.ID + ".jpg"
	case "image/gif":
		return i.ID + ".gif"
	}
	return i.ID + ".png"
}

// ThumbnailKey is the object name of the generated thumbnail. Only jpeg
// sources keep their format; everything else is thumbnailed as png.
func (i Image) ThumbnailKey() string {
	if i.MimeType == "image/jpeg" {
		return i.ID + "_thumb.jpg"
	}
	return i.ID + "_thumb.png"
}

// ThumbnailType is the content type of the generated thumbnail.
func (i Image) ThumbnailType() string {
	if i.MimeType == "image/jpeg" {
		return "image/jpeg"
	}
	return "image/png"
}

// ImageUpload carries an uploaded file before it is persisted.
type ImageUpload struct {
	FileName string
	Content  []byte
}
