package meeting

// ProcessRequest represents the request to process an audio file already on
// the server's disk
type ProcessRequest struct {
	AudioPath string `json:"audio_path" validate:"required"`
	MeetingID string `json:"meeting_id,omitempty" validate:"omitempty,meetingid"`
}

// UploadRequest represents the form fields sent alongside an uploaded file
type UploadRequest struct {
	MeetingID string `form:"meeting_id" validate:"omitempty,meetingid"`
}

// AskRequest represents a question about a meeting
type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
	TopK     int    `json:"top_k,omitempty" validate:"gte=0,lte=50"`
}

// CatalogQuery represents pagination parameters for the catalog listing
type CatalogQuery struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}
