package waitlist

import (
	"net/mail"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/guaupro/landing/internal/model"
)

const (
	maxEmailLength   = 254
	maxNameLength    = 200
	maxCompanyLength = 200
	maxPhoneLength   = 32
	minPhoneDigits   = 7
	maxPhoneDigits   = 15
)

// Field names as they appear in validation errors and API payloads.
const (
	FieldEmail            = "email"
	FieldFullName         = "full_name"
	FieldBusinessType     = "business_type"
	FieldPetVolume        = "pet_volume"
	FieldCompanyName      = "company_name"
	FieldPhone            = "phone"
	FieldFeatures         = "features"
	FieldMarketingConsent = "marketing_consent"
)

// Validate checks a submission and returns the first failure as a *ValidationError.
// Consent is checked before anything else.
func Validate(sub Submission) error {
	if !sub.MarketingConsent {
		return &ValidationError{Field: FieldMarketingConsent, Reason: ReasonConsentRequired}
	}

	email := model.NormalizeEmail(sub.Email)
	required := []struct {
		field string
		value string
	}{
		{FieldEmail, email},
		{FieldFullName, strings.TrimSpace(sub.FullName)},
		{FieldBusinessType, strings.TrimSpace(sub.BusinessType)},
		{FieldPetVolume, strings.TrimSpace(sub.PetVolume)},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Reason: ReasonMissing}
		}
	}

	if !validEmail(email) {
		return &ValidationError{Field: FieldEmail, Reason: ReasonInvalid}
	}
	if utf8.RuneCountInString(strings.TrimSpace(sub.FullName)) > maxNameLength {
		return &ValidationError{Field: FieldFullName, Reason: ReasonInvalid}
	}
	if !model.BusinessType(strings.TrimSpace(sub.BusinessType)).IsValid() {
		return &ValidationError{Field: FieldBusinessType, Reason: ReasonInvalid}
	}
	if !model.PetVolume(strings.TrimSpace(sub.PetVolume)).IsValid() {
		return &ValidationError{Field: FieldPetVolume, Reason: ReasonInvalid}
	}
	if utf8.RuneCountInString(strings.TrimSpace(sub.CompanyName)) > maxCompanyLength {
		return &ValidationError{Field: FieldCompanyName, Reason: ReasonInvalid}
	}
	if phone := strings.TrimSpace(sub.Phone); phone != "" && !validPhone(phone) {
		return &ValidationError{Field: FieldPhone, Reason: ReasonInvalid}
	}
	for _, f := range sub.Features {
		if !slices.Contains(model.ValidFeatures, f) {
			return &ValidationError{Field: FieldFeatures, Reason: ReasonInvalid}
		}
	}
	return nil
}

// validEmail accepts a bare address only, no display name.
func validEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func validPhone(phone string) bool {
	if len(phone) > maxPhoneLength {
		return false
	}
	digits := 0
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r) && r < utf8.RuneSelf:
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

// normalizeFeatures drops duplicates and keeps first-seen order.
func normalizeFeatures(features []string) []string {
	if len(features) == 0 {
		return nil
	}
	out := make([]string, 0, len(features))
	for _, f := range features {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
