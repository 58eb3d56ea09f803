package model

import "time"

// SuccessResponse is the envelope for every successful API response.
type SuccessResponse struct {
	Success bool  `json:"success"` // always true
	Data    any   `json:"data"`
	Meta    *Meta `json:"meta,omitempty"`
}

// Meta carries pagination and timing information alongside responses.
type Meta struct {
	Page      int       `json:"page,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Total     int64     `json:"total,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the envelope for every failed API response.
type ErrorResponse struct {
	Success bool        `json:"success"` // always false
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail is the structured error body inside an ErrorResponse.
type ErrorDetail struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSuccess wraps data in the standard success envelope.
func NewSuccess(data any) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    &Meta{Timestamp: time.Now().UTC()},
	}
}

// NewList wraps a page of results in the standard success envelope with
// pagination metadata.
func NewList(data any, page, limit int, total int64) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:      page,
			Limit:     limit,
			Total:     total,
			Timestamp: time.Now().UTC(),
		},
	}
}
