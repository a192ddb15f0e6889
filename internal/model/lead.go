// Package model defines domain entities for the application.
package model

import (
	"slices"
	"strings"
	"time"
)

// BusinessType is the kind of pet-care business a lead runs.
type BusinessType string

const (
	BusinessHotel      BusinessType = "hotel"
	BusinessDaycare    BusinessType = "daycare"
	BusinessPetsitter  BusinessType = "petsitter"
	BusinessGrooming   BusinessType = "grooming"
	BusinessVeterinary BusinessType = "veterinary"
	BusinessTraining   BusinessType = "training"
	BusinessOther      BusinessType = "other"
)

// BusinessTypes lists every accepted business type in display order.
var BusinessTypes = []BusinessType{
	BusinessHotel,
	BusinessDaycare,
	BusinessPetsitter,
	BusinessGrooming,
	BusinessVeterinary,
	BusinessTraining,
	BusinessOther,
}

// IsValid checks if the business type is a known value.
func (b BusinessType) IsValid() bool {
	return slices.Contains(BusinessTypes, b)
}

// PetVolume is the bucketed number of pets a business handles.
type PetVolume string

const (
	PetVolume1To10   PetVolume = "1-10"
	PetVolume11To30  PetVolume = "11-30"
	PetVolume31To100 PetVolume = "31-100"
	PetVolumeOver100 PetVolume = "100+"
)

// PetVolumes lists every accepted pet volume bucket in display order.
var PetVolumes = []PetVolume{
	PetVolume1To10,
	PetVolume11To30,
	PetVolume31To100,
	PetVolumeOver100,
}

// IsValid checks if the pet volume is a known bucket.
func (p PetVolume) IsValid() bool {
	return slices.Contains(PetVolumes, p)
}

// Feature values a lead can mark as interesting on the waitlist form.
const (
	FeatureUpdates   = "updates"
	FeatureGuauApp   = "guau-app"
	FeatureTeam      = "team"
	FeatureBilling   = "billing"
	FeatureQRCheckin = "qr-checkin"
)

// ValidFeatures contains all valid feature values.
var ValidFeatures = []string{FeatureUpdates, FeatureGuauApp, FeatureTeam, FeatureBilling, FeatureQRCheckin}

// Lead is a prospective customer that joined the waitlist.
// The email is the lead's identity.
type Lead struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	FullName         string       `json:"full_name"`
	BusinessType     BusinessType `json:"business_type"`
	PetVolume        PetVolume    `json:"pet_volume"`
	CompanyName      *string      `json:"company_name,omitempty"`
	Phone            *string      `json:"phone,omitempty"`
	Features         []string     `json:"features,omitempty"`
	MarketingConsent bool         `json:"marketing_consent"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NormalizeEmail trims and lower-cases an email so it can be compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OptionalString returns nil for blank strings, the trimmed value otherwise.
func OptionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// LeadStats aggregates waitlist leads for the admin dashboard.
type LeadStats struct {
	Total          int64                  `json:"total"`
	ByBusinessType map[BusinessType]int64 `json:"by_business_type"`
	ByPetVolume    map[PetVolume]int64    `json:"by_pet_volume"`
}
