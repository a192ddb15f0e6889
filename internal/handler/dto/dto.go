// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/roi"
	"github.com/guaupro/landing/internal/waitlist"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// ROIDefaultsResponse pairs the calculator's initial inputs with their results.
type ROIDefaultsResponse struct {
	Inputs  roi.Inputs  `json:"inputs"`
	Results roi.Results `json:"results"`
}

// WaitlistRequest represents the waitlist form body.
type WaitlistRequest struct {
	Email            string   `json:"email"`
	FullName         string   `json:"full_name"`
	BusinessType     string   `json:"business_type"`
	PetVolume        string   `json:"pet_volume"`
	CompanyName      string   `json:"company_name,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Features         []string `json:"features,omitempty"`
	MarketingConsent bool     `json:"marketing_consent"`
}

// ToSubmission snapshots the request as a waitlist submission.
func (r WaitlistRequest) ToSubmission() waitlist.Submission {
	return waitlist.Submission{
		Email:            r.Email,
		FullName:         r.FullName,
		BusinessType:     r.BusinessType,
		PetVolume:        r.PetVolume,
		CompanyName:      r.CompanyName,
		Phone:            r.Phone,
		Features:         append([]string(nil), r.Features...),
		MarketingConsent: r.MarketingConsent,
	}
}

// WaitlistResponse is returned when a lead joins the waitlist.
type WaitlistResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// LeadResponse represents a lead in admin responses.
type LeadResponse struct {
	ID               string             `json:"id"`
	Email            string             `json:"email"`
	FullName         string             `json:"full_name"`
	BusinessType     model.BusinessType `json:"business_type"`
	PetVolume        model.PetVolume    `json:"pet_volume"`
	CompanyName      *string            `json:"company_name,omitempty"`
	Phone            *string            `json:"phone,omitempty"`
	Features         []string           `json:"features"`
	MarketingConsent bool               `json:"marketing_consent"`
	CreatedAt        time.Time          `json:"created_at"`
}

// LeadListResponse represents a paginated list of leads.
type LeadListResponse struct {
	Data       []LeadResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ToLeadResponse converts a Lead model to LeadResponse DTO.
func ToLeadResponse(lead *model.Lead) LeadResponse {
	features := lead.Features
	if features == nil {
		features = []string{}
	}
	return LeadResponse{
		ID:               lead.ID,
		Email:            lead.Email,
		FullName:         lead.FullName,
		BusinessType:     lead.BusinessType,
		PetVolume:        lead.PetVolume,
		CompanyName:      lead.CompanyName,
		Phone:            lead.Phone,
		Features:         features,
		MarketingConsent: lead.MarketingConsent,
		CreatedAt:        lead.CreatedAt,
	}
}

// ToLeadListResponse converts a slice of Lead models to LeadListResponse.
func ToLeadListResponse(leads []*model.Lead, nextCursor string) *LeadListResponse {
	responses := make([]LeadResponse, len(leads))
	for i, lead := range leads {
		responses[i] = ToLeadResponse(lead)
	}
	return &LeadListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    nextCursor != "",
		},
	}
}

// APIKeyListResponse lists admin API keys without secrets.
type APIKeyListResponse struct {
	Keys []model.APIKeyResponse `json:"keys"`
}
