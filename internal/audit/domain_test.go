package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffDetectsChangedFields(t *testing.T) {
	old := map[string]any{"name": "Physics", "code": "PHY", "description": ""}
	updated := map[string]any{"name": "Physics", "code": "PHYS", "description": "Natural sciences"}

	changes := Diff(old, updated)

	assert.Len(t, changes, 2)
	assert.Equal(t, FieldChange{Old: "PHY", New: "PHYS"}, changes["code"])
	assert.Equal(t, FieldChange{Old: "", New: "Natural sciences"}, changes["description"])
}

func TestDiffEmptyForIdenticalSnapshots(t *testing.T) {
	snap := map[string]any{"amount": 120.5, "active": true}

	changes := Diff(snap, map[string]any{"amount": 120.5, "active": true})

	assert.Empty(t, changes, "a no-op update must produce no audit record")
}

func TestDiffIncludesNewFields(t *testing.T) {
	changes := Diff(map[string]any{}, map[string]any{"role": "viewer"})

	assert.Equal(t, FieldChange{Old: nil, New: "viewer"}, changes["role"])
}

func TestDiffComparesSerializedValues(t *testing.T) {
	// Numerically equal values of different Go types compare equal once
	// serialized.
	changes := Diff(map[string]any{"year": 2026}, map[string]any{"year": float64(2026)})

	assert.Empty(t, changes)
}
