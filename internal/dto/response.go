package dto

import (
	"encoding/json"
	"time"
)

// QueryResponse is the answer to an administrator question
type QueryResponse struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	QueryType string          `json:"query_type"`
	Data      json.RawMessage `json:"data"`
	Narrative string          `json:"narrative"`
	Timestamp time.Time       `json:"timestamp"`
	FromCache bool            `json:"from_cache"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
