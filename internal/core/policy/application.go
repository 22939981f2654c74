package policy

import (
	"github.com/druksewa/marketplace/internal/core/domain"
)

// Field keys used in submission validation errors.
const (
	FieldDzongkhag     = "dzongkhag"
	FieldCity          = "city"
	FieldCategories    = "categories"
	FieldCitizenID     = "citizenId"
	FieldPricingType   = "pricingType"
	FieldPricingAmount = "pricingAmount"
	FieldCertificates  = "certificates"
)

// ValidateSubmission checks everything a draft must satisfy before it can be
// submitted. Every rule is evaluated; the returned error, when non-nil, is a
// *domain.ValidationError listing all violations.
func ValidateSubmission(app *domain.ProviderApplication) error {
	verr := domain.NewValidationError()

	dz := app.Location.Dzongkhag
	switch {
	case dz == "":
		verr.Add(FieldDzongkhag, "select a dzongkhag")
	case !IsDzongkhag(dz):
		verr.Add(FieldDzongkhag, "unknown dzongkhag "+dz)
	}

	city := app.Location.City
	switch {
	case city == "":
		verr.Add(FieldCity, "select a city")
	case IsDzongkhag(dz) && !IsCityOf(dz, city):
		verr.Add(FieldCity, city+" is not in "+dz)
	}

	if len(app.Categories) == 0 {
		verr.Add(FieldCategories, "select at least one service category")
	}
	for _, c := range app.Categories {
		if !IsServiceCategory(c) {
			verr.Add(FieldCategories, "unknown service category "+string(c))
		}
	}

	if !IsCitizenID(app.CitizenID) {
		verr.Add(FieldCitizenID, "enter a valid 11-digit CID")
	}

	switch app.Pricing.Type {
	case domain.PricingPerHour, domain.PricingPerJob:
		if app.Pricing.Amount <= 0 {
			verr.Add(FieldPricingAmount, "enter a pricing amount greater than zero")
		}
	case "":
		verr.Add(FieldPricingType, "select a pricing type")
	default:
		verr.Add(FieldPricingType, "unknown pricing type "+string(app.Pricing.Type))
	}

	if len(app.Certificates) == 0 {
		verr.Add(FieldCertificates, "upload at least one certificate")
	}
	for _, d := range app.Certificates {
		if msg := CheckDocument(d.Filename, d.ContentType, d.Size); msg != "" {
			verr.Add(FieldCertificates, msg)
		}
	}

	return verr.OrNil()
}

// IsServiceCategory reports whether c is a known category.
func IsServiceCategory(c domain.ServiceCategory) bool {
	for _, known := range domain.ServiceCategories {
		if c == known {
			return true
		}
	}
	return false
}
