package events

import (
	"errors"
	"slices"

	"github.com/guaupro/landing/internal/model"
)

// ValidateLeadPayload rejects payloads the worker cannot act on.
func ValidateLeadPayload(p LeadPayload) error {
	if p.LeadID == "" {
		return errors.New("id is required")
	}
	if p.Email == "" {
		return errors.New("email is required")
	}
	if p.FullName == "" {
		return errors.New("full name is required")
	}
	if !model.BusinessType(p.BusinessType).IsValid() {
		return errors.New("unknown business type")
	}
	if !model.PetVolume(p.PetVolume).IsValid() {
		return errors.New("unknown pet volume")
	}
	for _, f := range p.Features {
		if !slices.Contains(model.ValidFeatures, f) {
			return errors.New("unknown feature " + f)
		}
	}
	if p.CreatedAt <= 0 {
		return errors.New("created_at must be set")
	}
	return nil
}
