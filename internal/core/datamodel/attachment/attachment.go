package attachment

import "time"

// Attachment holds an uploaded file. FileData is the payload in standard
// base64.
type Attachment struct {
	ID         string    `gorm:"column:id;primaryKey"`
	FileName   string    `gorm:"column:file_name;not null"`
	FileType   string    `gorm:"column:file_type;not null"`
	FileData   string    `gorm:"column:file_data;not null"`
	UploadedAt time.Time `gorm:"column:uploaded_at;not null"`
}

func (Attachment) TableName() string { return "attachments" }
