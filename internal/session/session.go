// Package session drives the per-user multi-step input collection for
// search, track and predict flows.
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Action is the flow kind a session is collecting input for.
type Action string

const (
	ActionSearch  Action = "search"
	ActionTrack   Action = "track"
	ActionPredict Action = "predict"
)

// EffectKind tells the caller what to do after a text input.
type EffectKind int

const (
	// NoSessionActive means the user has no flow in progress.
	NoSessionActive EffectKind = iota
	// PromptNext means the input was accepted (or rejected) and the user
	// should be shown Prompt for the current step.
	PromptNext
	// Complete means the flow finished; Params holds everything collected.
	Complete
)

type Effect struct {
	Kind   EffectKind
	Action Action
	Prompt string
	Params map[string]string
}

type step struct {
	key       string
	prompt    string
	normalize func(string) (string, error)
}

// Airport-code inputs are uppercased and truncated to 3 runes. This is
// lossy for free-text city names ("los angeles" becomes "LOS") and is
// kept as the documented input heuristic.
func airportCode(text string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(text))
	if code == "" {
		return "", fmt.Errorf("enter a city or airport code")
	}
	runes := []rune(code)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes), nil
}

func rawText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("enter a value")
	}
	return text, nil
}

func routePair(text string) (string, error) {
	route := strings.ToUpper(strings.TrimSpace(text))
	parts := strings.Split(route, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("use the format ORIGIN-DESTINATION, e.g. LAX-JFK")
	}
	return route, nil
}

func optionalPrice(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "skip") {
		return "", nil
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return "", fmt.Errorf("enter a price like 450, or 'skip'")
	}
	return text, nil
}

var flows = map[Action][]step{
	ActionSearch: {
		{key: "origin", prompt: "Enter the departure city or airport code (e.g. LAX):", normalize: airportCode},
		{key: "destination", prompt: "Enter the destination:", normalize: airportCode},
		{key: "date", prompt: "Enter the travel date (YYYY-MM-DD):", normalize: rawText},
	},
	ActionTrack: {
		{key: "route", prompt: "Enter the route to track as origin-destination (e.g. LAX-JFK):", normalize: routePair},
		{key: "max_price", prompt: "Enter a max price for alerts, or 'skip':", normalize: optionalPrice},
	},
	ActionPredict: {
		{key: "route", prompt: "Enter the route to analyze as origin-destination (e.g. NYC-LON):", normalize: routePair},
	},
}

type state struct {
	action    Action
	stepIndex int
	params    map[string]string
	touchedAt time.Time
}

// Manager owns the per-user session map. Sessions expire after the
// configured TTL so abandoned flows don't accumulate.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*state
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[int64]*state),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Start begins a flow for the user, silently replacing any session in
// progress, and returns the first step's prompt.
func (m *Manager) Start(userID int64, action Action) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = &state{
		action:    action,
		params:    make(map[string]string),
		touchedAt: m.now(),
	}
	return flows[action][0].prompt
}

// OnText feeds one text input into the user's session.
func (m *Manager) OnText(userID int64, text string) Effect {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[userID]
	if !exists || m.expired(sess) {
		delete(m.sessions, userID)
		return Effect{Kind: NoSessionActive}
	}
	sess.touchedAt = m.now()

	steps := flows[sess.action]
	current := steps[sess.stepIndex]

	value, err := current.normalize(text)
	if err != nil {
		// Invalid input retries the same step.
		return Effect{
			Kind:   PromptNext,
			Action: sess.action,
			Prompt: err.Error() + "\n" + current.prompt,
		}
	}
	sess.params[current.key] = value

	sess.stepIndex++
	if sess.stepIndex < len(steps) {
		return Effect{
			Kind:   PromptNext,
			Action: sess.action,
			Prompt: steps[sess.stepIndex].prompt,
		}
	}

	delete(m.sessions, userID)
	return Effect{
		Kind:   Complete,
		Action: sess.action,
		Params: sess.params,
	}
}

// Cancel removes the user's session, reporting whether one existed.
func (m *Manager) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.sessions[userID]
	delete(m.sessions, userID)
	return exists
}

// Active reports whether the user currently has a live session.
func (m *Manager) Active(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[userID]
	return exists && !m.expired(sess)
}

// Run sweeps expired sessions until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, sess := range m.sessions {
		if m.expired(sess) {
			delete(m.sessions, userID)
		}
	}
}

func (m *Manager) expired(sess *state) bool {
	return m.ttl > 0 && m.now().Sub(sess.touchedAt) > m.ttl
}
