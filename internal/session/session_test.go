package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnText_NoSessionActive(t *testing.T) {
	m := NewManager(time.Minute)

	effect := m.OnText(42, "LAX")
	assert.Equal(t, NoSessionActive, effect.Kind)
}

func TestSearchFlow_NormalizesAirportCodes(t *testing.T) {
	m := NewManager(time.Minute)
	m.Start(42, ActionSearch)

	effect := m.OnText(42, "los angeles")
	require.Equal(t, PromptNext, effect.Kind)

	effect = m.OnText(42, "new york city")
	require.Equal(t, PromptNext, effect.Kind)

	effect = m.OnText(42, "2024-03-15")
	require.Equal(t, Complete, effect.Kind)
	assert.Equal(t, ActionSearch, effect.Action)
	assert.Equal(t, map[string]string{
		"origin":      "LOS",
		"destination": "NEW",
		"date":        "2024-03-15",
	}, effect.Params)

	// Flow completion removes the session.
	assert.Equal(t, NoSessionActive, m.OnText(42, "anything").Kind)
}

func TestTrackFlow_RouteValidationRetriesStep(t *testing.T) {
	m := NewManager(time.Minute)
	m.Start(42, ActionTrack)

	effect := m.OnText(42, "LAXJFK")
	require.Equal(t, PromptNext, effect.Kind)
	assert.Contains(t, effect.Prompt, "ORIGIN-DESTINATION")

	effect = m.OnText(42, "lax-jfk")
	require.Equal(t, PromptNext, effect.Kind)

	effect = m.OnText(42, "skip")
	require.Equal(t, Complete, effect.Kind)
	assert.Equal(t, "LAX-JFK", effect.Params["route"])
	assert.Equal(t, "", effect.Params["max_price"])
}

func TestTrackFlow_MaxPrice(t *testing.T) {
	m := NewManager(time.Minute)
	m.Start(42, ActionTrack)

	m.OnText(42, "LAX-JFK")
	effect := m.OnText(42, "not a number")
	require.Equal(t, PromptNext, effect.Kind)

	effect = m.OnText(42, "450")
	require.Equal(t, Complete, effect.Kind)
	assert.Equal(t, "450", effect.Params["max_price"])
}

func TestStart_OverwritesExistingSession(t *testing.T) {
	m := NewManager(time.Minute)
	m.Start(42, ActionSearch)
	m.OnText(42, "LAX")

	m.Start(42, ActionPredict)

	effect := m.OnText(42, "NYC-LON")
	require.Equal(t, Complete, effect.Kind)
	assert.Equal(t, ActionPredict, effect.Action)
	assert.Equal(t, map[string]string{"route": "NYC-LON"}, effect.Params)
}

func TestCancel(t *testing.T) {
	m := NewManager(time.Minute)

	assert.False(t, m.Cancel(42))

	m.Start(42, ActionSearch)
	assert.True(t, m.Active(42))
	assert.True(t, m.Cancel(42))
	assert.False(t, m.Active(42))
}

func TestSessionExpiry(t *testing.T) {
	m := NewManager(time.Millisecond)
	m.Start(42, ActionSearch)

	time.Sleep(5 * time.Millisecond)

	assert.False(t, m.Active(42))
	assert.Equal(t, NoSessionActive, m.OnText(42, "LAX").Kind)
}
