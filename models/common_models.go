package models

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Metadata represents generic metadata
type Metadata map[string]interface{}
