package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeResourceMutated = "resource.mutated"

// Mutation names a completed backend write, e.g. "ticket.update".
type Mutation string

const (
	TicketCreated     Mutation = "ticket.create"
	TicketUpdated     Mutation = "ticket.update"
	TicketDeleted     Mutation = "ticket.delete"
	CommentCreated    Mutation = "comment.create"
	DepartmentCreated Mutation = "department.create"
	DepartmentUpdated Mutation = "department.update"
	DepartmentDeleted Mutation = "department.delete"
	UserUpdated       Mutation = "user.update"
	UserDeleted       Mutation = "user.delete"
	UserRegistered    Mutation = "auth.register"
)

type ResourceMutatedEvent struct {
	BaseEvent
	Mutation   Mutation `json:"mutation"`
	ResourceID string   `json:"resource_id"`
	ActorID    string   `json:"actor_id"`
}

// NewResourceMutatedEvent records a successful write. resourceID is the id the
// mutation targeted (the ticket id for comment.create) and may be empty.
func NewResourceMutatedEvent(mutation Mutation, resourceID, actorID string) *ResourceMutatedEvent {
	return &ResourceMutatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeResourceMutated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"mutation":    string(mutation),
				"resource_id": resourceID,
				"actor_id":    actorID,
			},
		},
		Mutation:   mutation,
		ResourceID: resourceID,
		ActorID:    actorID,
	}
}
