package dto

// SubmitQueryRequest represents an administrator question
type SubmitQueryRequest struct {
	Query string `json:"query" binding:"required" example:"show me platform usage overview"`
}

// GetReportRequest represents report query parameters
type GetReportRequest struct {
	Period string `form:"period" binding:"required" example:"7days"`
	Type   string `form:"type" example:"comprehensive"`
}
