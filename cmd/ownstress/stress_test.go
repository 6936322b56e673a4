package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolkov/ownrt/internal/diag"
)

func TestMain(m *testing.M) {
	diag.SetLogger(zap.NewNop())
	m.Run()
}

// TestScenariosPassSmall runs each scenario with a small profile; every
// one of them self-checks its invariants and must come back clean.
func TestScenariosPassSmall(t *testing.T) {
	for _, name := range scenarioOrder {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, scenarios[name](4, 200))
		})
	}
}
