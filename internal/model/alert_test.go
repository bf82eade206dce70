package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverityForRatio(t *testing.T) {
	tests := []struct {
		name      string
		ratio     float64
		threshold float64
		want      AlertSeverity
	}{
		{"double the threshold is critical", 60.0, 30.0, AlertSeverityCritical},
		{"1.5x is high", 45.0, 30.0, AlertSeverityHigh},
		{"1.2x is medium", 36.0, 30.0, AlertSeverityMedium},
		{"just under 1.2x is low", 35.7, 30.0, AlertSeverityLow},
		{"1.49x is medium", 44.7, 30.0, AlertSeverityMedium},
		{"1.19x is low", 35.69, 30.0, AlertSeverityLow},
		{"barely over threshold is low", 30.1, 30.0, AlertSeverityLow},
		{"zero threshold never divides", 50.0, 0.0, AlertSeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityForRatio(tt.ratio, tt.threshold))
		})
	}
}

func TestOperatorCompare(t *testing.T) {
	assert.True(t, OpGreaterThan.Compare(5, 3))
	assert.False(t, OpGreaterThan.Compare(3, 3))
	assert.True(t, OpGreaterEqual.Compare(3, 3))
	assert.True(t, OpLessThan.Compare(2, 3))
	assert.False(t, OpLessThan.Compare(3, 3))
	assert.True(t, OpLessEqual.Compare(3, 3))
	assert.True(t, OpEqual.Compare(3, 3))
	assert.False(t, OpEqual.Compare(3, 4))
	assert.True(t, OpNotEqual.Compare(3, 4))
	assert.False(t, Operator("bogus").Compare(1, 1))
}

func TestAlertRuleInCooldown(t *testing.T) {
	now := time.Now()

	// Never triggered
	rule := &AlertRule{CooldownMinutes: 30}
	assert.False(t, rule.InCooldown(now))

	// Triggered 10 minutes ago with a 30 minute cooldown
	triggered := now.Add(-10 * time.Minute)
	rule.LastTriggered = &triggered
	assert.True(t, rule.InCooldown(now))

	// Cooldown elapsed
	old := now.Add(-31 * time.Minute)
	rule.LastTriggered = &old
	assert.False(t, rule.InCooldown(now))

	// Zero cooldown never suppresses
	rule.CooldownMinutes = 0
	rule.LastTriggered = &triggered
	assert.False(t, rule.InCooldown(now))
}
