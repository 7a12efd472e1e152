package webhook

import (
	"encoding/json"
	"fmt"
)

// Change is one change notification inside a webhook delivery. Value is
// field-dependent and stays raw until parseChange types it.
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Payload is the body of one webhook delivery: a batch of entries, each
// carrying the changes for one page.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"` // Meta page ID
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

// --- Typed change variants ---
//
// parseChange converts the raw envelope into exactly one of these, so the
// normalizer dispatches over a closed set instead of re-inspecting maps.

type changeEvent interface{ changeEvent() }

type ratingChange struct {
	Verb   string        `json:"verb"`
	Rating ratingPayload `json:"rating"`
}

type ratingPayload struct {
	ID                 string `json:"id"`
	ReviewerName       string `json:"reviewer_name"`
	ReviewerID         string `json:"reviewer_id"`
	ReviewText         string `json:"review_text"`
	Rating             int    `json:"rating"`
	RecommendationType string `json:"recommendation_type"`
}

type feedChange struct {
	Verb string      `json:"verb"`
	Post postPayload `json:"post"`
}

type postPayload struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	Story        string `json:"story"`
	Type         string `json:"type"`
	CreatedTime  string `json:"created_time"`
	PermalinkURL string `json:"permalink_url"`
}

type conversationChange struct {
	Verb           string `json:"verb"`
	ConversationID string `json:"conversation_id"`
}

type messagingChange struct {
	Messaging []messagingEvent `json:"messaging"`
}

// messagingEvent is one event in a messaging batch. Exactly one of Message,
// Delivery, Read, or Postback is set; only Message produces an action.
type messagingEvent struct {
	Sender    messagingParty  `json:"sender"`
	Recipient messagingParty  `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *messageContent `json:"message"`
	Delivery  json.RawMessage `json:"delivery"`
	Read      json.RawMessage `json:"read"`
	Postback  json.RawMessage `json:"postback"`
}

type messagingParty struct {
	ID string `json:"id"`
}

type messageContent struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}

// unknownChange marks a field this service does not handle. Not an error:
// the platform adds event kinds faster than we consume them.
type unknownChange struct {
	Field string
}

func (ratingChange) changeEvent()       {}
func (feedChange) changeEvent()         {}
func (conversationChange) changeEvent() {}
func (messagingChange) changeEvent()    {}
func (unknownChange) changeEvent()      {}

func parseChange(change Change) (changeEvent, error) {
	switch change.Field {
	case "ratings":
		var ev ratingChange
		if err := json.Unmarshal(change.Value, &ev); err != nil {
			return nil, fmt.Errorf("malformed ratings payload: %w", err)
		}
		return ev, nil
	case "feed":
		var ev feedChange
		if err := json.Unmarshal(change.Value, &ev); err != nil {
			return nil, fmt.Errorf("malformed feed payload: %w", err)
		}
		return ev, nil
	case "conversations":
		var ev conversationChange
		if err := json.Unmarshal(change.Value, &ev); err != nil {
			return nil, fmt.Errorf("malformed conversations payload: %w", err)
		}
		return ev, nil
	case "messages":
		var ev messagingChange
		if err := json.Unmarshal(change.Value, &ev); err != nil {
			return nil, fmt.Errorf("malformed messages payload: %w", err)
		}
		return ev, nil
	default:
		return unknownChange{Field: change.Field}, nil
	}
}
