package lifecycle

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/models"
)

// DefaultAttachmentName is used when a client omits the filename.
const DefaultAttachmentName = "attachment"

// DefaultFileType is used when the extension is unknown.
const DefaultFileType = "application/octet-stream"

var fileTypesByExt = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
}

// FileTypeFromURL infers a MIME type from the extension of a file URL.
func FileTypeFromURL(fileURL string) string {
	p := fileURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if t, ok := fileTypesByExt[ext]; ok {
		return t
	}
	return DefaultFileType
}

// AllowedExtension reports whether ext (without dot) is accepted for upload.
func AllowedExtension(ext string) bool {
	_, ok := fileTypesByExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// AttachmentInput is one entry of the attachment list in a create or edit request.
// Ref carries a prefixed id for attachments that are already stored.
type AttachmentInput struct {
	Ref      string
	Filename string
	FileURL  string
	FileType string
	FileSize int64
}

// NewAttachment builds a stored attachment from input, filling defaults.
func NewAttachment(supervisionID uuid.UUID, in AttachmentInput) models.Attachment {
	a := models.Attachment{
		ID:            uuid.New(),
		SupervisionID: supervisionID,
		Filename:      in.Filename,
		FileURL:       in.FileURL,
		FileType:      in.FileType,
		FileSize:      in.FileSize,
	}
	if a.Filename == "" {
		a.Filename = DefaultAttachmentName
	}
	if a.FileType == "" {
		a.FileType = FileTypeFromURL(in.FileURL)
	}
	if a.FileSize < 0 {
		a.FileSize = 0
	}
	return a
}

// AttachmentDiff is the combined change applied to a supervision's attachments.
type AttachmentDiff struct {
	Delete []uuid.UUID
	Add    []models.Attachment
}

// Empty reports whether the diff changes nothing.
func (d AttachmentDiff) Empty() bool {
	return len(d.Delete) == 0 && len(d.Add) == 0
}

// DiffAttachments reconciles stored attachments with the edit request's list.
// An entry whose Ref names a stored attachment keeps it. Every other entry is new.
// Stored attachments not referenced are deleted.
func DiffAttachments(supervisionID uuid.UUID, existing []models.Attachment, incoming []AttachmentInput) AttachmentDiff {
	stored := make(map[uuid.UUID]bool, len(existing))
	for _, a := range existing {
		stored[a.ID] = true
	}

	keep := make(map[uuid.UUID]bool, len(incoming))
	var diff AttachmentDiff
	for _, in := range incoming {
		if id, ok := models.ParseAttachmentRef(in.Ref); ok && stored[id] {
			keep[id] = true
			continue
		}
		diff.Add = append(diff.Add, NewAttachment(supervisionID, in))
	}

	for _, a := range existing {
		if !keep[a.ID] {
			diff.Delete = append(diff.Delete, a.ID)
		}
	}
	return diff
}

// BuildIndicators turns request entries into the full replacement indicator set.
func BuildIndicators(supervisionID uuid.UUID, inputs []IndicatorInput) []models.Indicator {
	out := make([]models.Indicator, 0, len(inputs))
	for _, in := range inputs {
		ind := models.Indicator{
			ID:            uuid.New(),
			SupervisionID: supervisionID,
			Name:          in.Name,
			Level:         in.Level,
		}
		if in.Comment != "" {
			c := in.Comment
			ind.Comment = &c
		}
		out = append(out, ind)
	}
	return out
}

// IndicatorInput is one entry of the indicator list in a create or edit request.
type IndicatorInput struct {
	Name    string
	Level   models.IndicatorLevel
	Comment string
}
