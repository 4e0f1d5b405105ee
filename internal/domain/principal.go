package domain

import "time"

// Principal represents an authenticated identity making query requests.
// It is created at authentication time and is immutable for the duration
// of a pipeline run.
type Principal struct {
	ID        string
	Name      string
	Type      string // "user" or "service_principal"
	IsAdmin   bool
	CreatedAt time.Time
}

// CreatePrincipalRequest holds parameters for creating a new principal.
type CreatePrincipalRequest struct {
	Name    string
	Type    string // "user" or "service_principal"; defaults to "user"
	Secret  string
	IsAdmin bool
}

// Validate checks that the request is well-formed.
func (r *CreatePrincipalRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("principal name is required")
	}
	if r.Secret == "" {
		return ErrValidation("principal secret is required")
	}
	if r.Type == "" {
		r.Type = "user"
	}
	if r.Type != "user" && r.Type != "service_principal" {
		return ErrValidation("type must be 'user' or 'service_principal'")
	}
	return nil
}
