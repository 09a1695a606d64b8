package model

const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Document is the metadata record kept for every uploaded file. Timestamps
// are unix milliseconds; zero means the event never happened.
type Document struct {
	ID                 string `json:"document_id"`
	SessionID          string `json:"session_id"`
	Filename           string `json:"filename"`
	StorageKey         string `json:"storage_key"`
	StorageURL         string `json:"storage_url"`
	FileSize           int64  `json:"file_size"`
	FileType           string `json:"file_type"`
	Status             string `json:"status"`
	UploadTime         int64  `json:"upload_time"`
	Processed          bool   `json:"processed"`
	IndexerTriggeredAt int64  `json:"indexer_triggered_at,omitempty"`
	CompletedAt        int64  `json:"completed_at,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
}
