package eventstore

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Field names of the inbound wire format.
const (
	FieldID           = "id"
	FieldTimestamp    = "timestamp"
	FieldLevel        = "level"
	FieldMessage      = "message"
	FieldAgentID      = "agent_id"
	FieldStrategyName = "strategy_name"
	FieldHashrate     = "hashrate"
	FieldForks        = "forks"
	FieldPayload      = "payload"

	fieldAgentIDAlias      = "agentId"
	fieldStrategyNameAlias = "strategyName"
)

// timestampLayouts are tried in order when a timestamp arrives as a string.
// The zone-less layouts match what Python's datetime.isoformat() produces for naive datetimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// CandidateFromFields normalizes a decoded JSON object into a Candidate.
//
// Known fields are mapped onto the Candidate. Store-owned fields (id, forks) are ignored.
// A "payload" object is merged into Extra, and every other unknown key is copied into Extra verbatim,
// winning over a payload key of the same name. Malformed values are repaired with defaults, never rejected.
func CandidateFromFields(fields map[string]any, now time.Time) Candidate {
	candidate := Candidate{
		Extra: map[string]any{},
	}

	if payload, ok := fields[FieldPayload].(map[string]any); ok {
		for key, value := range payload {
			candidate.Extra[key] = value
		}
	}

	for key, value := range fields {
		switch key {
		case FieldID, FieldForks:
			// assigned by the store

		case FieldTimestamp:
			candidate.Timestamp = parseTimestamp(value, now)

		case FieldLevel:
			candidate.Level = Level(stringValue(value))

		case FieldMessage:
			candidate.Message = stringValue(value)

		case FieldAgentID, fieldAgentIDAlias:
			candidate.AgentID = stringValue(value)

		case FieldStrategyName, fieldStrategyNameAlias:
			candidate.StrategyName = stringValue(value)

		case FieldHashrate:
			candidate.Hashrate = stringValue(value)

		case FieldPayload:
			if _, isObject := value.(map[string]any); !isObject && value != nil {
				candidate.Extra[FieldPayload] = value
			}

		default:
			candidate.Extra[key] = value
		}
	}

	return candidate.WithDefaults(now)
}

// Timestamps outside [minTimestampYear, maxTimestampYear] cannot be encoded as RFC 3339 JSON.
const (
	minTimestampYear = 1
	maxTimestampYear = 9999
)

func encodableTimestamp(t time.Time) bool {
	for _, year := range []int{t.Year(), t.UTC().Year()} {
		if year < minTimestampYear || year > maxTimestampYear {
			return false
		}
	}

	return true
}

// parseTimestamp accepts time.Time values, the string layouts above and unix seconds.
// Anything else, including values that fall outside the encodable range, becomes now.
func parseTimestamp(value any, now time.Time) time.Time {
	parsed := parseTimestampValue(value)
	if parsed.IsZero() || !encodableTimestamp(parsed) {
		return now
	}

	return parsed
}

func parseTimestampValue(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v

	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
		return time.Time{}

	case float64:
		if !(v > 0 && v < float64(math.MaxInt64)) {
			return time.Time{}
		}
		seconds := int64(v)
		return time.Unix(seconds, int64((v-float64(seconds))*1e9)).UTC()

	default:
		return time.Time{}
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
