package invalidation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/querycache"
)

// Table maps a completed write to the cache keys it makes stale. id is the
// resource the write targeted; an empty id widens item keys to their family.
type Table map[events.Mutation]func(id string) []querycache.Key

var Dependencies = Table{
	events.TicketCreated: func(string) []querycache.Key {
		return keys(querycache.FamilyKey(querycache.Tickets))
	},
	events.TicketUpdated: func(id string) []querycache.Key {
		return keys(
			querycache.FamilyKey(querycache.Tickets),
			querycache.ItemKey(querycache.Ticket, id),
		)
	},
	events.TicketDeleted: func(id string) []querycache.Key {
		return keys(
			querycache.FamilyKey(querycache.Tickets),
			querycache.ItemKey(querycache.Ticket, id),
			querycache.ItemKey(querycache.TicketComments, id),
		)
	},
	events.CommentCreated: func(ticketID string) []querycache.Key {
		return keys(
			querycache.ItemKey(querycache.TicketComments, ticketID),
			querycache.ItemKey(querycache.Ticket, ticketID),
		)
	},
	events.DepartmentCreated: func(string) []querycache.Key {
		return keys(querycache.FamilyKey(querycache.Departments))
	},
	// tickets embed the department name
	events.DepartmentUpdated: func(string) []querycache.Key {
		return keys(
			querycache.FamilyKey(querycache.Departments),
			querycache.FamilyKey(querycache.Tickets),
			querycache.FamilyKey(querycache.Ticket),
		)
	},
	events.DepartmentDeleted: func(string) []querycache.Key {
		return keys(
			querycache.FamilyKey(querycache.Departments),
			querycache.FamilyKey(querycache.Tickets),
			querycache.FamilyKey(querycache.Ticket),
		)
	},
	events.UserUpdated: func(string) []querycache.Key {
		return keys(querycache.FamilyKey(querycache.Users))
	},
	events.UserDeleted: func(string) []querycache.Key {
		return keys(
			querycache.FamilyKey(querycache.Users),
			querycache.FamilyKey(querycache.Tickets),
			querycache.FamilyKey(querycache.Ticket),
		)
	},
	events.UserRegistered: func(string) []querycache.Key {
		return keys(querycache.FamilyKey(querycache.Users))
	},
}

func keys(k ...querycache.Key) []querycache.Key {
	return k
}

// Keys returns the stale keys for a mutation, or nil for an unknown one.
func (t Table) Keys(m events.Mutation, id string) []querycache.Key {
	fn, ok := t[m]
	if !ok {
		return nil
	}
	return fn(id)
}

type Invalidator interface {
	Invalidate(ctx context.Context, key querycache.Key) error
}

type Subscriber struct {
	table  Table
	cache  Invalidator
	logger *slog.Logger
}

func NewSubscriber(table Table, cache Invalidator, logger *slog.Logger) *Subscriber {
	return &Subscriber{table: table, cache: cache, logger: logger}
}

// Register attaches the subscriber to resource.mutated events.
func (s *Subscriber) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeResourceMutated, s.Handle)
}

func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	mutated, ok := event.(*events.ResourceMutatedEvent)
	if !ok {
		return nil
	}

	stale := s.table.Keys(mutated.Mutation, mutated.ResourceID)
	if stale == nil {
		s.logger.Warn("mutation without dependency entry", "mutation", mutated.Mutation)
		return nil
	}

	var errs []error
	for _, key := range stale {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Debug("cache keys invalidated",
		"mutation", mutated.Mutation,
		"resource_id", mutated.ResourceID,
		"keys", len(stale))

	return errors.Join(errs...)
}
