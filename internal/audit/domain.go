// Package audit records security-relevant actions: state changes with
// field-level before/after diffs, plus authentication events. Records are
// append-only; deletion happens only through the privileged purge operation.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action verbs stored in audit records.
const (
	ActionCreate      = "CREATE"
	ActionUpdate      = "UPDATE"
	ActionDelete      = "DELETE"
	ActionLogin       = "LOGIN"
	ActionLoginFailed = "LOGIN_FAILED"
	ActionLogout      = "LOGOUT"
	ActionPurge       = "PURGE"
)

// Record is a persisted audit entry. ActorID is nil for events without an
// authenticated context, e.g. failed logins or self-registration.
type Record struct {
	ID           uuid.UUID
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IP           string
	UserAgent    string
	At           time.Time
}

// FieldChange holds the serialized before/after pair for one field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff returns the fields whose serialized values differ between old and new.
// An empty result means the update was a no-op and must not be audited.
func Diff(old, new map[string]any) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for field, after := range new {
		before, existed := old[field]
		if existed && serialize(before) == serialize(after) {
			continue
		}
		changes[field] = FieldChange{Old: before, New: after}
	}
	return changes
}

// serialize normalizes values for comparison; unserializable values fall back
// to their fmt representation.
func serialize(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
