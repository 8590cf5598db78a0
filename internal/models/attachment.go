package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Attachment struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Filename     string             `json:"filename" bson:"filename"`
	OriginalName string             `json:"originalName" bson:"originalName"`
	MimeType     string             `json:"mimeType" bson:"mimeType"`
	Size         int64              `json:"size" bson:"size"`
	Path         string             `json:"-" bson:"path"`
	URL          string             `json:"url" bson:"url"`
	Task         primitive.ObjectID `json:"task" bson:"task"`
	UploadedBy   primitive.ObjectID `json:"uploadedBy" bson:"uploadedBy"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

var imageTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// Extension is the original file extension without the dot, lower-cased.
func (a *Attachment) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(a.OriginalName)), ".")
}

func (a *Attachment) FormattedSize() string {
	if a.Size <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(a.Size))
}

func (a *Attachment) IsImage() bool {
	return imageTypes[baseMime(a.MimeType)]
}

func (a *Attachment) IsDocument() bool {
	return documentTypes[baseMime(a.MimeType)]
}

// AttachmentView adds the derived fields to the stored record.
type AttachmentView struct {
	Attachment
	Extension     string `json:"extension"`
	FormattedSize string `json:"formattedSize"`
	IsImage       bool   `json:"isImage"`
	IsDocument    bool   `json:"isDocument"`
}

func (a *Attachment) View() AttachmentView {
	return AttachmentView{
		Attachment:    *a,
		Extension:     a.Extension(),
		FormattedSize: a.FormattedSize(),
		IsImage:       a.IsImage(),
		IsDocument:    a.IsDocument(),
	}
}

// AllowedUpload reports whether a sniffed MIME type may be stored.
func AllowedUpload(mimeType string) bool {
	m := baseMime(mimeType)
	return imageTypes[m] || documentTypes[m] || m == "text/plain" || m == "text/csv" ||
		m == "application/zip" || m == "application/json"
}

func baseMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
