package domain

import (
	"errors"
	"time"
)

// ApplicationStatus represents the lifecycle state of a provider application.
type ApplicationStatus string

const (
	StatusDraft    ApplicationStatus = "draft"
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

// validTransitions defines the allowed state machine transitions on a single record.
// Rejected -> Draft (resubmit) opens a new record and is therefore not listed here.
var validTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:   {StatusPending},
	StatusPending: {StatusApproved, StatusRejected, StatusDraft},
}

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrActiveApplication   = errors.New("an application is already in progress")
	ErrAlreadyProvider     = errors.New("application already approved")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrForbidden           = errors.New("access forbidden")
	ErrDocumentNotFound    = errors.New("document not found")
)

// ParseStatus converts a raw string into an ApplicationStatus.
func ParseStatus(s string) (ApplicationStatus, bool) {
	switch st := ApplicationStatus(s); st {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return st, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	case StatusDraft, StatusPending:
		return false
	default:
		return false
	}
}

// ServiceCategory is a kind of service a provider can be listed under.
type ServiceCategory string

const (
	CategoryPlumber      ServiceCategory = "Plumber"
	CategoryHouseCleaner ServiceCategory = "House Cleaner"
	CategoryElectrician  ServiceCategory = "Electrician"
	CategoryPainter      ServiceCategory = "Painter"
	CategoryHouseShifter ServiceCategory = "House Shifter"
	CategoryCarpenter    ServiceCategory = "Carpenter"
)

// ServiceCategories lists every known category in display order.
var ServiceCategories = []ServiceCategory{
	CategoryPlumber,
	CategoryHouseCleaner,
	CategoryElectrician,
	CategoryPainter,
	CategoryHouseShifter,
	CategoryCarpenter,
}

// PricingType is how a provider charges.
type PricingType string

const (
	PricingPerHour PricingType = "perHour"
	PricingPerJob  PricingType = "perJob"
)

// Location is where a provider operates.
type Location struct {
	Dzongkhag string `json:"dzongkhag" bson:"dzongkhag"`
	City      string `json:"city" bson:"city"`
}

// Pricing is the provider's advertised rate.
type Pricing struct {
	Type   PricingType `json:"type" bson:"type"`
	Amount float64     `json:"amount" bson:"amount"`
}

// DocumentRef points at a certificate held by the document store.
type DocumentRef struct {
	ID          string    `json:"id" bson:"id"`
	Filename    string    `json:"filename" bson:"filename"`
	ContentType string    `json:"content_type" bson:"content_type"`
	Size        int64     `json:"size" bson:"size"`
	UploadedAt  time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// ProviderApplication is the aggregate tracking a user's request to be listed as a provider.
type ProviderApplication struct {
	ID              string            `json:"id" bson:"_id"`
	UserID          string            `json:"user_id" bson:"user_id"`
	Location        Location          `json:"location" bson:"location"`
	Categories      []ServiceCategory `json:"categories" bson:"categories"`
	CitizenID       string            `json:"cid" bson:"cid"`
	Pricing         Pricing           `json:"pricing" bson:"pricing"`
	Certificates    []DocumentRef     `json:"certificates" bson:"certificates"`
	Status          ApplicationStatus `json:"status" bson:"status"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" bson:"updated_at"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty" bson:"submitted_at,omitempty"`
	DecidedAt       *time.Time        `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
	DecidedBy       string            `json:"decided_by,omitempty" bson:"decided_by,omitempty"`
	RejectReason    string            `json:"reject_reason,omitempty" bson:"reject_reason,omitempty"`
	ResubmittedFrom string            `json:"resubmitted_from,omitempty" bson:"resubmitted_from,omitempty"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (a *ProviderApplication) Clone() *ProviderApplication {
	if a == nil {
		return nil
	}
	c := *a
	c.Categories = append([]ServiceCategory(nil), a.Categories...)
	c.Certificates = append([]DocumentRef(nil), a.Certificates...)
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		c.SubmittedAt = &t
	}
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// StatusChange describes a compare-and-swap on an application's status.
type StatusChange struct {
	ID       string
	Expected ApplicationStatus
	Next     ApplicationStatus
	At       time.Time
	// Actor is recorded as DecidedBy on terminal transitions.
	Actor        string
	RejectReason string
}
