// Package assignment validates and normalizes assignee selections.
package assignment

import (
	"sort"
	"strings"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

const (
	techPrefix   = "tech:"
	vendorPrefix = "vendor:"
)

// Resolver answers eligibility questions over the injected zone table and technician roster.
type Resolver struct {
	zones       domain.ZoneTable
	technicians []domain.Technician
}

// NewResolver constructs a resolver.
func NewResolver(zones domain.ZoneTable, technicians []domain.Technician) *Resolver {
	return &Resolver{zones: zones, technicians: append([]domain.Technician(nil), technicians...)}
}

// Zone returns the zone servicing the store.
func (r *Resolver) Zone(storeCode string) domain.Zone {
	return r.zones.ZoneFor(storeCode)
}

// EligibleTechnicians returns the technicians whose zone services the store.
func (r *Resolver) EligibleTechnicians(storeCode string) []domain.Technician {
	zone := r.zones.ZoneFor(storeCode)
	out := make([]domain.Technician, 0, len(r.technicians))
	for _, tech := range r.technicians {
		if tech.Zone == zone {
			out = append(out, tech)
		}
	}
	return out
}

// EligibleVendors returns every approved vendor, vendors serving category first.
func EligibleVendors(vendors []domain.Vendor, category domain.TicketCategory) []domain.Vendor {
	out := append([]domain.Vendor(nil), vendors...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Serves(category) && !out[j].Serves(category)
	})
	return out
}

// ResolveAssignment parses a tagged "tech:<email>" or "vendor:<name>" value.
// Empty input resolves to unassigned.
func ResolveAssignment(raw string) (domain.Assignment, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return domain.Unassigned, nil
	}
	switch {
	case strings.HasPrefix(value, techPrefix):
		email := strings.TrimSpace(strings.TrimPrefix(value, techPrefix))
		if email == "" {
			return domain.Assignment{}, apperrors.NewInvalidAssignee("technician email is missing", map[string]any{"value": raw})
		}
		return domain.Assignment{AssignedTo: email, AssigneeType: domain.AssigneeTech}, nil
	case strings.HasPrefix(value, vendorPrefix):
		name := strings.TrimSpace(strings.TrimPrefix(value, vendorPrefix))
		if name == "" {
			return domain.Assignment{}, apperrors.NewInvalidAssignee("vendor name is missing", map[string]any{"value": raw})
		}
		return domain.Assignment{AssignedTo: name, AssigneeType: domain.AssigneeVendor}, nil
	}
	return domain.Assignment{}, apperrors.NewInvalidAssignee("assignee must look like tech:<email> or vendor:<name>", map[string]any{"value": raw})
}

// Tag formats an assignment the way ResolveAssignment reads it.
func Tag(a domain.Assignment) string {
	switch {
	case a.IsEmpty():
		return ""
	case a.AssigneeType == domain.AssigneeVendor:
		return vendorPrefix + a.AssignedTo
	default:
		return techPrefix + a.AssignedTo
	}
}

// Validate checks that a resolved assignment may service the store. Technicians
// must belong to the store's zone; vendors must be on the approved list.
func (r *Resolver) Validate(storeCode string, a domain.Assignment, vendors []domain.Vendor) (domain.Assignment, error) {
	if a.IsEmpty() {
		return domain.Unassigned, nil
	}
	switch a.AssigneeType {
	case domain.AssigneeTech:
		for _, tech := range r.EligibleTechnicians(storeCode) {
			if domain.SameEmail(tech.Email, a.AssignedTo) {
				return domain.Assignment{AssignedTo: tech.Email, AssigneeType: domain.AssigneeTech}, nil
			}
		}
		return domain.Assignment{}, apperrors.NewInvalidAssignee("technician does not service this store", map[string]any{
			"store_code": storeCode,
			"assignee":   a.AssignedTo,
			"zone":       string(r.zones.ZoneFor(storeCode)),
		})
	case domain.AssigneeVendor:
		for _, vendor := range vendors {
			if strings.EqualFold(vendor.Name, a.AssignedTo) {
				return domain.Assignment{AssignedTo: vendor.Name, AssigneeType: domain.AssigneeVendor}, nil
			}
		}
		return domain.Assignment{}, apperrors.NewInvalidAssignee("vendor is not on the approved list", map[string]any{"assignee": a.AssignedTo})
	}
	return domain.Assignment{}, apperrors.NewInvalidAssignee("unknown assignee type", map[string]any{"assignee_type": string(a.AssigneeType)})
}

// CanManageVendors reports whether actor may edit the approved vendor list.
func CanManageVendors(actor domain.Actor, editors []string) bool {
	if actor.Role == domain.RoleAdmin || actor.Role == domain.RoleDirector {
		return true
	}
	for _, editor := range editors {
		if domain.SameEmail(editor, actor.Email) {
			return true
		}
	}
	return false
}
