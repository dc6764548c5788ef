package eventstore

import (
	"maps"
	"strings"
	"time"
)

// Level is the severity an agent attached to an event.
type Level string

// The levels an Event can carry. Anything else is normalized to LevelInfo.
const (
	LevelInfo     Level = "INFO"
	LevelSuccess  Level = "SUCCESS"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Defaults applied to fields an agent did not supply.
const (
	DefaultLevel        = LevelInfo
	DefaultAgentID      = "unknown"
	DefaultHashrate     = "0 H/s"
	DefaultStrategyName = "Unknown"
)

// ParseLevel maps s case-insensitively onto a known Level.
// The second return value is false if s is not one of the known levels.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelInfo:
		return LevelInfo, true
	case LevelSuccess:
		return LevelSuccess, true
	case LevelWarning:
		return LevelWarning, true
	case LevelError:
		return LevelError, true
	case LevelCritical:
		return LevelCritical, true
	default:
		return DefaultLevel, false
	}
}

// Events is an alias type for a slice of Event.
type Events = []Event

// Event is the stored form of an agent event.
//
// The JSON names are the wire format spectators receive on the stream and from the query endpoints.
type Event struct {
	ID           IDInt64        `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Level        Level          `json:"level"`
	Message      string         `json:"message"`
	AgentID      string         `json:"agent_id"`
	StrategyName string         `json:"strategy_name"`
	Hashrate     string         `json:"hashrate"`
	ForkCount    ForkCountInt64 `json:"forks"`
	Extra        map[string]any `json:"payload"`
}

// Candidate is an event that has not been stored yet. It has no id and no fork count.
type Candidate struct {
	Timestamp    time.Time
	Level        Level
	Message      string
	AgentID      string
	StrategyName string
	Hashrate     string
	Extra        map[string]any
}

// WithDefaults returns a copy of the Candidate where every empty field carries its default.
// A zero Timestamp, or one that cannot be encoded as JSON, becomes now.
func (c Candidate) WithDefaults(now time.Time) Candidate {
	if c.Timestamp.IsZero() || !encodableTimestamp(c.Timestamp) {
		c.Timestamp = now
	}

	if level, ok := ParseLevel(string(c.Level)); ok {
		c.Level = level
	} else {
		c.Level = DefaultLevel
	}

	if c.AgentID == "" {
		c.AgentID = DefaultAgentID
	}

	if c.Hashrate == "" {
		c.Hashrate = DefaultHashrate
	}

	if c.StrategyName == "" {
		c.StrategyName = DefaultStrategyName
	}

	if c.Extra == nil {
		c.Extra = map[string]any{}
	} else {
		c.Extra = maps.Clone(c.Extra)
	}

	return c
}

// ToEvent builds the stored form of the Candidate with the given id and a zero fork count.
func (c Candidate) ToEvent(id IDInt64) Event {
	return Event{
		ID:           id,
		Timestamp:    c.Timestamp,
		Level:        c.Level,
		Message:      c.Message,
		AgentID:      c.AgentID,
		StrategyName: c.StrategyName,
		Hashrate:     c.Hashrate,
		ForkCount:    0,
		Extra:        c.Extra,
	}
}
