package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType identifies the schema of an event's payload
type EventType string

const (
	EventTypeAgentRequest      EventType = "agent_request"
	EventTypePageView          EventType = "page_view"
	EventTypeMarketplaceAction EventType = "marketplace_action"
	EventTypeSearch            EventType = "search"
)

// ErrInvalidPayload is wrapped by every payload validation failure
var ErrInvalidPayload = errors.New("invalid event payload")

// Event is a single interaction record read from the event store.
// Events are immutable once stored.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Type      EventType `json:"event_type"`
	Data      Payload   `json:"event_data"`
}

// Identity returns the key sessions are grouped by. Anonymous events fall
// back to the network origin, prefixed so it can never collide with a user ID.
func (e Event) Identity() string {
	if e.UserID != "" {
		return e.UserID
	}
	return "ip:" + e.IPAddress
}

// Payload is the closed set of typed event bodies
type Payload interface {
	Kind() EventType
	Validate() error
}

// AgentRequest is recorded for every call to one of the platform's AI agents
type AgentRequest struct {
	Agent        string  `json:"agent"`
	ActionType   string  `json:"action_type,omitempty"`
	Success      *bool   `json:"success,omitempty"`
	ResponseTime float64 `json:"response_time,omitempty"`
	Prompt       string  `json:"prompt,omitempty"`
}

func (AgentRequest) Kind() EventType { return EventTypeAgentRequest }

func (p AgentRequest) Validate() error {
	if p.Agent == "" {
		return fmt.Errorf("%w: agent is required", ErrInvalidPayload)
	}
	if p.ResponseTime < 0 {
		return fmt.Errorf("%w: response_time must not be negative", ErrInvalidPayload)
	}
	return nil
}

// Succeeded reports the outcome, treating a missing flag as success
func (p AgentRequest) Succeeded() bool {
	return p.Success == nil || *p.Success
}

type PageView struct {
	Page     string `json:"page"`
	Referrer string `json:"referrer,omitempty"`
}

func (PageView) Kind() EventType { return EventTypePageView }

func (p PageView) Validate() error {
	if p.Page == "" {
		return fmt.Errorf("%w: page is required", ErrInvalidPayload)
	}
	return nil
}

type MarketplaceAction struct {
	Action string  `json:"action"`
	ItemID string  `json:"item_id,omitempty"`
	Price  float64 `json:"price,omitempty"`
}

func (MarketplaceAction) Kind() EventType { return EventTypeMarketplaceAction }

func (p MarketplaceAction) Validate() error {
	if p.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidPayload)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidPayload)
	}
	return nil
}

type Search struct {
	Query string `json:"query"`
}

func (Search) Kind() EventType { return EventTypeSearch }

func (p Search) Validate() error {
	if p.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidPayload)
	}
	return nil
}

// Generic carries payloads of event types this service has no schema for
type Generic struct {
	Type   EventType      `json:"-"`
	Fields map[string]any `json:"fields,omitempty"`
}

func (g Generic) Kind() EventType { return g.Type }

func (Generic) Validate() error { return nil }

// DecodePayload parses raw event_data JSON into the payload type registered
// for eventType and validates it.
func DecodePayload(eventType EventType, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var payload Payload
	var err error

	switch eventType {
	case EventTypeAgentRequest:
		var p AgentRequest
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventTypePageView:
		var p PageView
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventTypeMarketplaceAction:
		var p MarketplaceAction
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventTypeSearch:
		var p Search
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		g := Generic{Type: eventType}
		err = json.Unmarshal(raw, &g.Fields)
		payload = g
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %s data: %v", ErrInvalidPayload, eventType, err)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}
