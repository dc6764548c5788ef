package broadcast

import (
	"fmt"
	"strings"
)

// OverflowPolicy decides what Publish does with a subscription whose buffer is full.
type OverflowPolicy int

const (
	// DropOldest discards the oldest buffered frame to make room for the new one.
	DropOldest OverflowPolicy = iota

	// DisconnectOnLag closes the subscription with ErrSubscriberLagged.
	DisconnectOnLag
)

const (
	policyNameDropOldest = "drop-oldest"
	policyNameDisconnect = "disconnect"
)

// ParseOverflowPolicy parses the configuration names "drop-oldest" and "disconnect".
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case policyNameDropOldest, "":
		return DropOldest, nil
	case policyNameDisconnect:
		return DisconnectOnLag, nil
	default:
		return DropOldest, fmt.Errorf("unknown overflow policy %q", name)
	}
}

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return policyNameDropOldest
	case DisconnectOnLag:
		return policyNameDisconnect
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}
