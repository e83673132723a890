package dto

import "github.com/gatehouse/gatehouse/internal/domain"

// SuccessResponse represents a plain acknowledgement
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the wire form of a domain error
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// UserListResponse is one page of the admin user listing
type UserListResponse struct {
	Users   []*domain.User `json:"users"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}
