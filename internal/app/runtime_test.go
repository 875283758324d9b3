package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestModeSetByGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestRefreshTestModeTracksEnv(t *testing.T) {
	t.Setenv("CAMPUSLEDGER_TEST_MODE", "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv("CAMPUSLEDGER_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}
