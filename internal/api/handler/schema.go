package handler

import (
	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

// --- Request types ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required,min=8"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

type resendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// draftRequest carries the editable application fields as JSON. Completeness
// is checked on submit, not here.
type draftRequest struct {
	Dzongkhag     string   `json:"dzongkhag"`
	City          string   `json:"city"`
	Categories    []string `json:"categories"`
	CitizenID     string   `json:"cid"`
	PricingType   string   `json:"pricingType"`
	PricingAmount float64  `json:"pricing"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// --- Response types ---

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type decisionResponse struct {
	Application *domain.ProviderApplication `json:"application"`
	Applied     bool                        `json:"applied"`
}

type applicationListResponse struct {
	Applications []*domain.ProviderApplication `json:"applications"`
	Count        int                           `json:"count"`
}

type providerListResponse struct {
	Providers []*ports.ProviderListing `json:"providers"`
	Count     int                      `json:"count"`
}

type userListResponse struct {
	Users []*domain.User `json:"users"`
	Count int            `json:"count"`
}

type notificationListResponse struct {
	Notifications []*domain.Notification `json:"notifications"`
	// LastSeq is the cursor to pass as ?after= on the next poll.
	LastSeq int64 `json:"last_seq"`
}
