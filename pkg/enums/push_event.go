package enums

import "fmt"

// PushEventType names the events delivered over the realtime channel.
type PushEventType string

const (
	PushEventOrderUpdated          PushEventType = "order:updated"
	PushEventDiscountStatusChanged PushEventType = "discount:statusChanged"
	PushEventConnected             PushEventType = "connected"
	PushEventError                 PushEventType = "error"
)

var validPushEventTypes = []PushEventType{
	PushEventOrderUpdated,
	PushEventDiscountStatusChanged,
	PushEventConnected,
	PushEventError,
}

func (t PushEventType) String() string {
	return string(t)
}

func (t PushEventType) IsValid() bool {
	for _, candidate := range validPushEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParsePushEventType(value string) (PushEventType, error) {
	for _, candidate := range validPushEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid push event type %q", value)
}
