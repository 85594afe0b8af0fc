package service

import "github.com/DossaniParadise/rm-tracker/internal/domain"

func canAccessStore(actor domain.Actor, storeCode string) bool {
	return actor.SeesAllStores() || actor.Stores.Contains(storeCode)
}

// canOpenTicket: technicians open only tickets assigned to them; everyone
// else opens tickets at stores in scope.
func canOpenTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.Role == domain.RoleTechnician {
		return actor.Email != "" && domain.SameEmail(ticket.AssignedTo, actor.Email)
	}
	return canAccessStore(actor, ticket.StoreCode)
}

func visibleTickets(actor domain.Actor, tickets []*domain.Ticket) []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if canOpenTicket(actor, ticket) {
			out = append(out, ticket)
		}
	}
	return out
}
