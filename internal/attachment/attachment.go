package attachment

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/herasat/internal"
	attachmentDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/attachment"
)

type Attachment struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	Data       []byte    `json:"-"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// NewAttachment is an upload. An empty FileType is sniffed from Data.
type NewAttachment struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Data     []byte `json:"data"`
}

// Patch renames or retypes an attachment. The payload is immutable.
type Patch struct {
	FileName *string `json:"fileName,omitempty"`
	FileType *string `json:"fileType,omitempty"`
}

func ToDataModel(a *Attachment) *attachmentDatamodel.Attachment {
	return &attachmentDatamodel.Attachment{
		ID:         a.ID,
		FileName:   a.FileName,
		FileType:   a.FileType,
		FileData:   base64.StdEncoding.EncodeToString(a.Data),
		UploadedAt: a.UploadedAt,
	}
}

// FromDataModel decodes the stored payload. Rows written as data URLs
// ("data:<type>;base64,<payload>") are accepted too.
func FromDataModel(row *attachmentDatamodel.Attachment) (*Attachment, error) {
	encoded := row.FileData
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ";base64,"); i >= 0 {
			encoded = encoded[i+len(";base64,"):]
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &internal.AppError{
			Type:       internal.ErrorTypeCorruptData,
			Code:       internal.ErrCodeCorruptAttachment,
			Message:    "attachment payload is not valid base64",
			StatusCode: http.StatusUnprocessableEntity,
			Cause:      err,
		}
	}
	return &Attachment{
		ID:         row.ID,
		FileName:   row.FileName,
		FileType:   row.FileType,
		Data:       data,
		Size:       len(data),
		UploadedAt: row.UploadedAt.UTC(),
	}, nil
}
