package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcosRuleUpdateApply(t *testing.T) {
	rule := &AcosRule{
		Name:           "original",
		Enabled:        true,
		ThresholdType:  ThresholdMaximum,
		ThresholdValue: 30.0,
		WindowHours:    24,
		ActionType:     ActionSendAlert,
		MinimumSpend:   50.0,
	}

	name := "renamed"
	threshold := 40.0
	enabled := false
	update := &AcosRuleUpdate{
		Name:           &name,
		ThresholdValue: &threshold,
		Enabled:        &enabled,
	}
	update.Apply(rule)

	assert.Equal(t, "renamed", rule.Name)
	assert.Equal(t, 40.0, rule.ThresholdValue)
	assert.False(t, rule.Enabled)
	// Untouched fields survive
	assert.Equal(t, ThresholdMaximum, rule.ThresholdType)
	assert.Equal(t, 24, rule.WindowHours)
	assert.Equal(t, ActionSendAlert, rule.ActionType)
	assert.Equal(t, 50.0, rule.MinimumSpend)
	assert.False(t, rule.UpdatedAt.IsZero())
}

func TestCampaignInCategory(t *testing.T) {
	c := &Campaign{Categories: []string{"electronics", "home"}}
	assert.True(t, c.InCategory("electronics"))
	assert.False(t, c.InCategory("toys"))
	assert.False(t, (&Campaign{}).InCategory("electronics"))
}
