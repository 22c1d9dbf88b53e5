// Package realtime fans simulation and API events out to WebSocket
// subscribers. All payloads travel as a typed envelope so every consumer
// sees the same shapes regardless of which side produced them.
package realtime

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageEventCreated    MessageType = "event_created"
	MessageAgentUpdate     MessageType = "agent_update"
	MessageRelationChanged MessageType = "relation_changed"
	MessageMemoryCreated   MessageType = "memory_created"
	MessageAgentDeleted    MessageType = "agent_deleted"
)

type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// Broadcaster is the producer-side view of the fan-out: the hub satisfies
// it directly, and a bus-backed publisher satisfies it for multi-node
// deployments.
type Broadcaster interface {
	Broadcast(msg Message)
}

type EventCreatedData struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Timestamp   string    `json:"timestamp"`
}

type AgentUpdateData struct {
	ID     uuid.UUID `json:"id"`
	Mood   float64   `json:"mood"`
	Energy int       `json:"energy"`
}

type RelationChangedData struct {
	Source   uuid.UUID `json:"source"`
	Target   uuid.UUID `json:"target"`
	Affinity float64   `json:"affinity"`
	Strength float64   `json:"strength"`
}

type MemoryCreatedData struct {
	AgentID     uuid.UUID `json:"agent_id"`
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Emotion     string    `json:"emotion"`
	Timestamp   string    `json:"timestamp"`
}

type AgentDeletedData struct {
	AgentID uuid.UUID `json:"agent_id"`
}

func NewEventCreated(id uuid.UUID, description string, createdAt time.Time) Message {
	return Message{Type: MessageEventCreated, Data: EventCreatedData{
		ID:          id,
		Description: description,
		Timestamp:   createdAt.UTC().Format(time.RFC3339Nano),
	}}
}

func NewAgentUpdate(id uuid.UUID, mood float64, energy int) Message {
	return Message{Type: MessageAgentUpdate, Data: AgentUpdateData{ID: id, Mood: mood, Energy: energy}}
}

func NewRelationChanged(source, target uuid.UUID, affinity, strength float64) Message {
	return Message{Type: MessageRelationChanged, Data: RelationChangedData{
		Source:   source,
		Target:   target,
		Affinity: affinity,
		Strength: strength,
	}}
}

func NewMemoryCreated(agentID, memoryID uuid.UUID, description, emotion string, timestamp time.Time) Message {
	return Message{Type: MessageMemoryCreated, Data: MemoryCreatedData{
		AgentID:     agentID,
		ID:          memoryID,
		Description: description,
		Emotion:     emotion,
		Timestamp:   timestamp.UTC().Format(time.RFC3339Nano),
	}}
}

func NewAgentDeleted(agentID uuid.UUID) Message {
	return Message{Type: MessageAgentDeleted, Data: AgentDeletedData{AgentID: agentID}}
}
