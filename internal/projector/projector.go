// Package projector derives read-only workload and notification views from a
// ticket set. Every function is pure.
package projector

import (
	"sort"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
)

// StoreCounts summarizes one store's tickets.
type StoreCounts struct {
	Open          int  `json:"open"`
	Total         int  `json:"total"`
	SeverityScore int  `json:"severityScore"`
	HasEmergency  bool `json:"hasEmergency"`
}

// MarkerColor and MarkerSize drive map rendering.
type (
	MarkerColor string
	MarkerSize  string
)

const (
	MarkerGreen MarkerColor = "green"
	MarkerAmber MarkerColor = "amber"
	MarkerRed   MarkerColor = "red"

	MarkerSmall  MarkerSize = "small"
	MarkerMedium MarkerSize = "medium"
	MarkerLarge  MarkerSize = "large"
)

// severeScore is the score at which a store is flagged red.
const severeScore = 3

// Marker is the visual treatment for a store.
type Marker struct {
	Color MarkerColor `json:"color"`
	Size  MarkerSize  `json:"size"`
}

// CountByStore counts tickets for each requested store. Stores with no tickets
// still appear with zero counts; tickets at other stores are ignored.
func CountByStore(tickets []*domain.Ticket, storeCodes []string) map[string]StoreCounts {
	out := make(map[string]StoreCounts, len(storeCodes))
	for _, code := range storeCodes {
		out[code] = StoreCounts{}
	}
	for _, ticket := range tickets {
		counts, ok := out[ticket.StoreCode]
		if !ok {
			continue
		}
		counts.Total++
		if ticket.Status.IsOpen() {
			counts.Open++
			counts.SeverityScore += ticket.Priority.Weight()
			if ticket.Priority == domain.TicketPriorityEmergency {
				counts.HasEmergency = true
			}
		}
		out[ticket.StoreCode] = counts
	}
	return out
}

// MarkerFor maps counts onto a marker.
func MarkerFor(counts StoreCounts) Marker {
	switch {
	case counts.HasEmergency || counts.SeverityScore >= severeScore:
		return Marker{Color: MarkerRed, Size: MarkerLarge}
	case counts.Open > 0:
		return Marker{Color: MarkerAmber, Size: MarkerMedium}
	default:
		return Marker{Color: MarkerGreen, Size: MarkerSmall}
	}
}

// VisibleTicketsFor returns the open tickets the actor should be notified about,
// most pressing first. Category routing only ever widens what an actor sees.
func VisibleTicketsFor(actor domain.Actor, tickets []*domain.Ticket, routing domain.NotifyRouting) []*domain.Ticket {
	routed := routing.RoutedCategories(actor.Email)
	out := make([]*domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if !ticket.Status.IsOpen() {
			continue
		}
		if visible(actor, ticket, routed) {
			out = append(out, ticket)
		}
	}
	SortByUrgency(out)
	return out
}

func visible(actor domain.Actor, ticket *domain.Ticket, routed map[domain.TicketCategory]struct{}) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTechnician:
		return actor.Email != "" && domain.SameEmail(ticket.AssignedTo, actor.Email)
	}
	if actor.Stores.Contains(ticket.StoreCode) {
		return true
	}
	_, ok := routed[ticket.Category]
	return ok
}

// SortByUrgency orders by priority, then workflow progress, then most recently
// updated. Ticket id breaks remaining ties so the order is deterministic.
func SortByUrgency(tickets []*domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Status.Progress() != b.Status.Progress() {
			return a.Status.Progress() < b.Status.Progress()
		}
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		return a.ID < b.ID
	})
}
