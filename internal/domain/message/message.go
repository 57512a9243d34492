// Package message defines the cross-agent work unit carried by the in-process bus,
// its forward-only status machine, and the store contract the bus is built on.
package message

import (
	"fmt"
	"time"
)

// Kind classifies a message
type Kind string

const (
	KindRequest      Kind = "REQUEST"
	KindResponse     Kind = "RESPONSE"
	KindNotification Kind = "NOTIFICATION"
)

// Priority is advisory and never reorders dispatch
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Status tracks a message through PENDING -> PROCESSING -> terminal
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRejected   Status = "REJECTED"
)

// ResponseKey is the payload key respond merges the response payload under
const ResponseKey = "response"

// IsTerminal reports whether no further transition may occur
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s.rank() >= 0
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed, StatusRejected:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a message in status from may move to status to.
// Terminal states are final and a status never moves backwards or stays put.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	return to.rank() > from.rank()
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindRequest, KindResponse, KindNotification:
		return true
	}
	return false
}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Message is a unit of cross-agent work
type Message struct {
	ID              string         `json:"id" bson:"_id"`
	Kind            Kind           `json:"kind" bson:"kind"`
	Sender          string         `json:"sender" bson:"sender"`
	Recipient       string         `json:"recipient" bson:"recipient"`
	Action          string         `json:"action" bson:"action"`
	Payload         map[string]any `json:"payload" bson:"payload"`
	Priority        Priority       `json:"priority" bson:"priority"`
	Status          Status         `json:"status" bson:"status"`
	OwnerUserID     string         `json:"ownerUserId" bson:"owner_user_id"`
	ConversationID  string         `json:"conversationId,omitempty" bson:"conversation_id,omitempty"`
	ResponseMessage string         `json:"responseMessage,omitempty" bson:"response_message,omitempty"`
	CreatedAt       time.Time      `json:"createdAt" bson:"created_at"`
	LastUpdatedAt   time.Time      `json:"lastUpdatedAt" bson:"last_updated_at"`
}

// SendRequest carries the fields a producer supplies to Send
type SendRequest struct {
	Sender         string
	Recipient      string
	Action         string
	Payload        map[string]any
	OwnerUserID    string
	Kind           Kind     // defaults to REQUEST
	Priority       Priority // defaults to MEDIUM
	ConversationID string
}

// Validate checks the request and fills defaults in place
func (r *SendRequest) Validate() error {
	if r.Recipient == "" {
		return ErrInvalidSendRequest{Reason: "recipient is required"}
	}
	if r.Action == "" {
		return ErrInvalidSendRequest{Reason: "action is required"}
	}
	if r.Kind == "" {
		r.Kind = KindRequest
	}
	if !r.Kind.Valid() {
		return ErrInvalidSendRequest{Reason: fmt.Sprintf("unknown kind %q", r.Kind)}
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.Valid() {
		return ErrInvalidSendRequest{Reason: fmt.Sprintf("unknown priority %q", r.Priority)}
	}
	return nil
}

// Response returns the payload merged by respond, if any
func (m *Message) Response() map[string]any {
	if m == nil || m.Payload == nil {
		return nil
	}
	resp, _ := m.Payload[ResponseKey].(map[string]any)
	return resp
}

// Clone returns a copy that shares no mutable state with m
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Payload = clonePayload(m.Payload)
	return &c
}

func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clonePayload(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// MergeResponse returns a copy of payload with responsePayload stored under ResponseKey
func MergeResponse(payload, responsePayload map[string]any) map[string]any {
	merged := clonePayload(payload)
	if merged == nil {
		merged = make(map[string]any, 1)
	}
	resp := clonePayload(responsePayload)
	if resp == nil {
		resp = map[string]any{}
	}
	merged[ResponseKey] = resp
	return merged
}
