package domain

import "time"

// FileURLUnavailable is stored when no public URL can be derived for an object.
const FileURLUnavailable = "URL not available"

// File is the metadata row kept for an object stored in the bucket.
type File struct {
	ID              string    `json:"id"`
	ObjectKey       string    `json:"objectKey"`
	FileURL         string    `json:"fileUrl"`
	UserID          string    `json:"userId"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
	CreatedAt       time.Time `json:"createdAt"`
}

type PresignRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
}

type PresignResponse struct {
	PresignedURL  string  `json:"presignedUrl"`
	ObjectKey     string  `json:"objectKey"`
	PublicFileURL *string `json:"publicFileUrl"`
	ExpiresIn     int64   `json:"expiresIn"`
}

type SaveFileRequest struct {
	ObjectKey     string `json:"objectKey" validate:"required"`
	PublicFileURL string `json:"publicFileUrl,omitempty" validate:"omitempty,url"`
}
