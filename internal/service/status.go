package service

// Status is the offer lifecycle state. The record store accepts any allowed
// value directly (no enforced ordering at the storage layer); the canonical
// ordering below is consulted by the generation pipeline and the write-back
// orchestrator.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusGenerated Status = "generated"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
)

// AllowedStatuses is the full set of values the store accepts.
var AllowedStatuses = []Status{StatusDraft, StatusGenerated, StatusSent, StatusAccepted, StatusExpired}

// happy-path transitions: draft -> generated -> sent -> accepted|expired,
// with regeneration (generated -> generated) as a normal user action.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusGenerated},
	StatusGenerated: {StatusGenerated, StatusSent, StatusAccepted, StatusExpired},
	StatusSent:      {StatusAccepted, StatusExpired},
	StatusAccepted:  {},
	StatusExpired:   {},
}

// Valid reports whether s is one of the five allowed values.
func (s Status) Valid() bool {
	for _, allowed := range AllowedStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// CanTransition reports whether moving to next follows the happy path.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
