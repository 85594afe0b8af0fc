package domain

// Zone is a geographic partition for technician coverage.
type Zone string

const (
	ZoneEast Zone = "east"
	ZoneWest Zone = "west"
)

// Technician is an internal repair technician.
type Technician struct {
	Email string `yaml:"email" json:"email"`
	Name  string `yaml:"name" json:"name"`
	Zone  Zone   `yaml:"zone" json:"zone"`
}

// Vendor is an approved third-party service company.
type Vendor struct {
	ID         string           `yaml:"id" json:"id"`
	Name       string           `yaml:"name" json:"name"`
	Areas      []string         `yaml:"areas" json:"areas"`
	Categories []TicketCategory `yaml:"categories" json:"categories"`
}

// Serves reports whether the vendor lists the category.
func (v Vendor) Serves(category TicketCategory) bool {
	for _, c := range v.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Store is a location in the store directory.
type Store struct {
	Code    string  `yaml:"code" json:"code"`
	Name    string  `yaml:"name" json:"name"`
	Type    string  `yaml:"type" json:"type"`
	Brand   string  `yaml:"brand" json:"brand"`
	Lat     float64 `yaml:"lat" json:"lat"`
	Lng     float64 `yaml:"lng" json:"lng"`
	Address string  `yaml:"address" json:"address"`
}

// ZoneTable pins store codes to zones; unpinned stores fall into Default.
type ZoneTable struct {
	Pinned  map[string]Zone
	Default Zone
}

// ZoneFor returns the zone servicing the store.
func (z ZoneTable) ZoneFor(storeCode string) Zone {
	if zone, ok := z.Pinned[storeCode]; ok {
		return zone
	}
	return z.Default
}

// NotifyRouting maps categories to the emails that follow them.
type NotifyRouting map[TicketCategory][]string

// RoutedCategories returns the categories routed to email.
func (r NotifyRouting) RoutedCategories(email string) map[TicketCategory]struct{} {
	out := map[TicketCategory]struct{}{}
	if email == "" {
		return out
	}
	for category, emails := range r {
		for _, candidate := range emails {
			if SameEmail(candidate, email) {
				out[category] = struct{}{}
				break
			}
		}
	}
	return out
}

// Recipients returns the emails routed for a category.
func (r NotifyRouting) Recipients(category TicketCategory) []string {
	out := make([]string, 0, len(r[category]))
	for _, email := range r[category] {
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}

// Assignment is a resolved assignee. The zero value means unassigned.
type Assignment struct {
	AssignedTo   string       `json:"assignedTo"`
	AssigneeType AssigneeType `json:"assigneeType"`
}

// Unassigned is the empty assignment.
var Unassigned = Assignment{AssigneeType: AssigneeUnassigned}

// IsEmpty reports whether nobody is assigned.
func (a Assignment) IsEmpty() bool {
	return a.AssignedTo == ""
}

// Equal compares two assignments, treating emails case-insensitively.
func (a Assignment) Equal(other Assignment) bool {
	if a.IsEmpty() || other.IsEmpty() {
		return a.IsEmpty() == other.IsEmpty()
	}
	if a.AssigneeType != other.AssigneeType {
		return false
	}
	if a.AssigneeType == AssigneeTech {
		return SameEmail(a.AssignedTo, other.AssignedTo)
	}
	return a.AssignedTo == other.AssignedTo
}

// AssignmentOf returns the ticket's current assignment.
func AssignmentOf(t *Ticket) Assignment {
	if t.AssignedTo == "" {
		return Unassigned
	}
	return Assignment{AssignedTo: t.AssignedTo, AssigneeType: t.AssigneeType}
}
