package models

import "strings"

// RecipientQuery is the raw text of the recipient input, recreated on every
// keystroke the client forwards.
type RecipientQuery struct {
	RawHandle string `json:"raw_handle"`
}

// Handle strips any leading @ and surrounding whitespace. An empty result
// must never be dispatched to the billing service.
func (q RecipientQuery) Handle() string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(q.RawHandle), "@"))
}

// ResolvedRecipient is the billing service's answer to a handle lookup.
// Immutable once produced; a new resolution replaces it wholesale.
// BillingID is the only field the billing service accepts back for
// quoting - Handle and DisplayName are display-only.
type ResolvedRecipient struct {
	Handle      string  `json:"handle"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	BillingID   string  `json:"billing_id"`
}

// ResolutionState is the recipient resolver's per-form state machine.
type ResolutionState string

const (
	ResolutionIdle      ResolutionState = "idle"
	ResolutionSearching ResolutionState = "searching"
	ResolutionFound     ResolutionState = "found"
	ResolutionNotFound  ResolutionState = "not_found"
)

type Resolution struct {
	State     ResolutionState    `json:"state"`
	Recipient *ResolvedRecipient `json:"recipient,omitempty"`
}
