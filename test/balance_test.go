package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
)

func TestBalanceSuite(t *testing.T) {
	suite := NewBalanceSuite(rules.DefaultConfig(), logger.Discard())
	suite.Run(context.Background())

	results := suite.GetResults()
	require.Len(t, results, 8)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s (expected %s, got %s)", r.ScenarioName, r.Reason, r.Expected, r.Actual)
	}
}

func TestBalanceSuiteStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite := NewBalanceSuite(rules.DefaultConfig(), logger.Discard())
	suite.Run(ctx)
	assert.Empty(t, suite.GetResults())
}
