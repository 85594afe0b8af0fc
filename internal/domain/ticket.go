package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnassigned TicketStatus = "unassigned"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "inprogress"
	TicketStatusWaiting    TicketStatus = "waiting"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"

	// legacyStatusOpen is the pre-assignment name still present in older records.
	legacyStatusOpen = "open"
)

// AllStatuses lists statuses in workflow order.
var AllStatuses = []TicketStatus{
	TicketStatusUnassigned,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusWaiting,
	TicketStatusResolved,
	TicketStatusClosed,
}

// NormalizeStatus maps a persisted status string onto the closed enumeration.
func NormalizeStatus(raw string) (TicketStatus, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == legacyStatusOpen {
		return TicketStatusUnassigned, true
	}
	for _, status := range AllStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Progress orders statuses along the workflow.
func (s TicketStatus) Progress() int {
	for i, status := range AllStatuses {
		if status == s {
			return i
		}
	}
	return len(AllStatuses)
}

// IsOpen reports whether the ticket still needs work.
func (s TicketStatus) IsOpen() bool {
	return s != TicketStatusResolved && s != TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityRoutine   TicketPriority = "routine"
	TicketPriorityUrgent    TicketPriority = "urgent"
	TicketPriorityEmergency TicketPriority = "emergency"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityRoutine, TicketPriorityUrgent, TicketPriorityEmergency:
		return true
	}
	return false
}

// Rank sorts emergencies first.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityEmergency:
		return 0
	case TicketPriorityUrgent:
		return 1
	default:
		return 2
	}
}

// Weight is the severity contribution of an open ticket.
func (p TicketPriority) Weight() int {
	switch p {
	case TicketPriorityEmergency:
		return 3
	case TicketPriorityUrgent:
		return 2
	default:
		return 1
	}
}

// TicketCategory classifies the reported issue.
type TicketCategory string

const (
	CategoryPlumbing   TicketCategory = "plumbing"
	CategoryEquipment  TicketCategory = "equipment"
	CategoryIT         TicketCategory = "it"
	CategoryStructural TicketCategory = "structural"
	CategorySafety     TicketCategory = "safety"
	CategoryOther      TicketCategory = "other"
)

var categoryPrefixes = map[TicketCategory]string{
	CategoryPlumbing:   "PLM",
	CategoryEquipment:  "EQP",
	CategoryIT:         "IT",
	CategoryStructural: "STR",
	CategorySafety:     "SAF",
	CategoryOther:      "GEN",
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	_, ok := categoryPrefixes[c]
	return ok
}

// Prefix is the id segment for the category.
func (c TicketCategory) Prefix() string {
	if prefix, ok := categoryPrefixes[c]; ok {
		return prefix
	}
	return "GEN"
}

// TicketLocation says where on site the issue is.
type TicketLocation string

const (
	LocationInterior TicketLocation = "interior"
	LocationExterior TicketLocation = "exterior"
)

// Valid reports whether l is a known location.
func (l TicketLocation) Valid() bool {
	return l == LocationInterior || l == LocationExterior
}

// AssigneeType distinguishes internal technicians from vendors.
type AssigneeType string

const (
	AssigneeUnassigned AssigneeType = "unassigned"
	AssigneeTech       AssigneeType = "tech"
	AssigneeVendor     AssigneeType = "vendor"
)

// WaitingReason explains why work is paused.
type WaitingReason string

const (
	WaitingParts    WaitingReason = "parts"
	WaitingVendor   WaitingReason = "vendor"
	WaitingApproval WaitingReason = "approval"
	WaitingOther    WaitingReason = "other"
)

// Valid reports whether r is a known reason.
func (r WaitingReason) Valid() bool {
	switch r {
	case WaitingParts, WaitingVendor, WaitingApproval, WaitingOther:
		return true
	}
	return false
}

// RequestedDate is the reporter's preferred service window.
type RequestedDate struct {
	Type    string `json:"type"`
	Date    string `json:"date"`
	EndDate string `json:"endDate,omitempty"`
}

// Ticket is the aggregate for maintenance requests. Timestamps are epoch milliseconds.
type Ticket struct {
	ID                string           `json:"id"`
	StoreCode         string           `json:"storeCode"`
	StoreName         string           `json:"storeName"`
	Brand             string           `json:"brand"`
	Category          TicketCategory   `json:"category"`
	Location          TicketLocation   `json:"location"`
	Priority          TicketPriority   `json:"priority"`
	Status            TicketStatus     `json:"status"`
	AssignedTo        string           `json:"assignedTo"`
	AssigneeType      AssigneeType     `json:"assigneeType"`
	WaitingReason     WaitingReason    `json:"waitingReason,omitempty"`
	WaitingReasonNote string           `json:"waitingReasonNote,omitempty"`
	Description       string           `json:"description"`
	ContactName       string           `json:"contactName"`
	ContactPhone      string           `json:"contactPhone"`
	Photos            []string         `json:"photos"`
	RequestedDate     *RequestedDate   `json:"requestedDate"`
	CreatedBy         string           `json:"createdBy"`
	CreatedByName     string           `json:"createdByName"`
	CreatedAt         int64            `json:"createdAt"`
	UpdatedAt         int64            `json:"updatedAt"`
	Activity          []ActivityRecord `json:"activity"`
}

// TicketID formats the human-readable ticket identifier.
func TicketID(storeCode string, category TicketCategory, sequence int64) string {
	return fmt.Sprintf("%s-%s-%04d", storeCode, category.Prefix(), sequence)
}

// CounterPath is the shared counter key for a store/category pair.
func CounterPath(storeCode string, category TicketCategory) string {
	return fmt.Sprintf("counters/%s/%s", storeCode, category.Prefix())
}

// Normalize applies read-side fixes for legacy records.
func (t *Ticket) Normalize() {
	if status, ok := NormalizeStatus(string(t.Status)); ok {
		t.Status = status
	}
	if t.AssignedTo == "" {
		t.AssigneeType = AssigneeUnassigned
	} else if t.AssigneeType == "" || t.AssigneeType == AssigneeUnassigned {
		t.AssigneeType = AssigneeTech
	}
	if t.Status != TicketStatusWaiting {
		t.WaitingReason = ""
		t.WaitingReasonNote = ""
	}
	for i := range t.Activity {
		t.Activity[i].normalize()
	}
}

// Clone returns a deep copy safe to mutate.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.Photos != nil {
		out.Photos = append([]string{}, t.Photos...)
	}
	if t.RequestedDate != nil {
		rd := *t.RequestedDate
		out.RequestedDate = &rd
	}
	if t.Activity != nil {
		out.Activity = make([]ActivityRecord, len(t.Activity))
		for i, record := range t.Activity {
			out.Activity[i] = record.clone()
		}
	}
	return &out
}

// EncodeTicket serializes a ticket in the persisted document layout.
func EncodeTicket(t *Ticket) ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTicket parses a persisted document and normalizes legacy values.
func DecodeTicket(data []byte) (*Ticket, error) {
	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	t.Normalize()
	return &t, nil
}
