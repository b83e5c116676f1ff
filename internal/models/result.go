package models

type UploadedDocument struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
}

type UploadResponse struct {
	Message       string           `json:"message"`
	CV            UploadedDocument `json:"cv"`
	ProjectReport UploadedDocument `json:"project_report"`
}

type EvaluateRequest struct {
	JobTitle          string `json:"job_title"`
	CVDocumentID      string `json:"cv_document_id"`
	ProjectDocumentID string `json:"project_document_id"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Result         *EvaluationData `json:"result,omitempty"`
	OverallSummary *string         `json:"overall_summary,omitempty"`
	ErrorMessage   *string         `json:"error,omitempty"`
}

type EvaluationData struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
}

type EvaluationListItem struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	JobTitle    string  `json:"job_title"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}
