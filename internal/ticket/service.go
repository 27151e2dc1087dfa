package ticket

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/service-desk/internal"
	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
	uploadDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/upload"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/upload"
	"golang.org/x/sync/errgroup"
)

type RepositoryAPI interface {
	List(ctx context.Context, sess *session.Session, q ticketDatamodel.ListQuery) (*ticketDatamodel.ListEnvelope, error)
	Get(ctx context.Context, sess *session.Session, id string) (*ticketDatamodel.Ticket, error)
	Create(ctx context.Context, sess *session.Session, req ticketDatamodel.CreateRequest) (*ticketDatamodel.Ticket, error)
	Update(ctx context.Context, sess *session.Session, id string, req ticketDatamodel.UpdateRequest) (*ticketDatamodel.Ticket, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
}

type Uploader interface {
	UploadAll(ctx context.Context, sess *session.Session, files []upload.File) ([]uploadDatamodel.Result, error)
}

type Service struct {
	repo      RepositoryAPI
	uploads   Uploader
	cache     *querycache.Cache
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, uploads Uploader, cache *querycache.Cache, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		uploads:   uploads,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// List returns one page of tickets. When the backend leaves out the status
// summary, each status total is read from its own one-item filtered list.
func (s *Service) List(ctx context.Context, sess *session.Session, q ListQuery) (*List, error) {
	q = q.Normalize()

	env, err := s.fetch(ctx, sess, q)
	if err != nil {
		s.logger.Error("failed to list tickets", "error", err, "page", q.Page, "status", q.Status)
		return nil, err
	}

	list := ListFromDataModel(env, q)
	if !list.Counts.Known {
		counts, err := s.statusTotals(ctx, sess)
		if err != nil {
			s.logger.Error("failed to count tickets by status", "error", err)
			return nil, err
		}
		list.Counts = counts
	}
	return list, nil
}

func (s *Service) fetch(ctx context.Context, sess *session.Session, q ListQuery) (*ticketDatamodel.ListEnvelope, error) {
	key := querycache.ItemKey(querycache.Tickets, q.CacheParam())
	return querycache.Fetch(ctx, s.cache, querycache.Namespace(sess.Token()), key,
		func(ctx context.Context) (*ticketDatamodel.ListEnvelope, error) {
			return s.repo.List(ctx, sess, q.ToDataModel())
		})
}

// statusTotals reads pagination.total of a status=X&limit=1 list per status.
// The counts stay unknown when any of those lists lacks a reported total.
func (s *Service) statusTotals(ctx context.Context, sess *session.Session) (StatusCounts, error) {
	totals := make([]Pagination, len(Statuses))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range Statuses {
		i, q := i, ListQuery{Page: 1, Limit: 1, Status: st}
		g.Go(func() error {
			env, err := s.fetch(gctx, sess, q)
			if err != nil {
				return err
			}
			totals[i] = ListFromDataModel(env, q).Pagination
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return StatusCounts{}, err
	}

	for _, p := range totals {
		if !p.Known {
			return StatusCounts{}, nil
		}
	}
	return StatusCounts{
		Pending:    totals[0].Total,
		InProgress: totals[1].Total,
		Resolved:   totals[2].Total,
		Known:      true,
	}, nil
}

func (s *Service) Get(ctx context.Context, sess *session.Session, id string) (*Ticket, error) {
	if id == "" {
		return nil, internal.NewNotFoundError("Ticket not found", internal.ErrCodeResourceNotFound)
	}

	t, err := querycache.Fetch(ctx, s.cache, querycache.Namespace(sess.Token()), querycache.ItemKey(querycache.Ticket, id),
		func(ctx context.Context) (*ticketDatamodel.Ticket, error) {
			return s.repo.Get(ctx, sess, id)
		})
	if err != nil {
		s.logger.Error("failed to get ticket", "error", err, "ticket_id", id)
		return nil, err
	}
	return FromDataModel(t), nil
}

// Create validates the form, uploads every attachment, then creates the
// ticket. Nothing reaches the backend when validation fails, and the ticket
// is never created when any upload fails.
func (s *Service) Create(ctx context.Context, sess *session.Session, dto CreateTicketDTO, files []upload.File) (*Ticket, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var urls []string
	if len(files) > 0 {
		results, err := s.uploads.UploadAll(ctx, sess, files)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			urls = append(urls, r.URL)
		}
	}

	created, err := s.repo.Create(ctx, sess, dto.ToDataModel(urls))
	if err != nil {
		s.logger.Error("failed to create ticket", "error", err)
		return nil, err
	}

	s.announce(ctx, sess, events.TicketCreated, created.ID)
	s.logger.Info("ticket created",
		"ticket_id", created.ID,
		"department_id", dto.DepartmentID,
		"priority", dto.Priority,
		"attachments", len(urls))
	return FromDataModel(created), nil
}

func (s *Service) Update(ctx context.Context, sess *session.Session, id string, dto UpdateTicketDTO) (*Ticket, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, sess, id, dto.ToDataModel())
}

func (s *Service) ChangeStatus(ctx context.Context, sess *session.Session, id string, dto ChangeStatusDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, sess, id, dto.ToDataModel())
}

func (s *Service) update(ctx context.Context, sess *session.Session, id string, req ticketDatamodel.UpdateRequest) (*Ticket, error) {
	updated, err := s.repo.Update(ctx, sess, id, req)
	if err != nil {
		s.logger.Error("failed to update ticket", "error", err, "ticket_id", id)
		return nil, err
	}
	s.announce(ctx, sess, events.TicketUpdated, id)
	if updated == nil || updated.ID == "" {
		return &Ticket{ID: id}, nil
	}
	return FromDataModel(updated), nil
}

func (s *Service) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := s.repo.Delete(ctx, sess, id); err != nil {
		s.logger.Error("failed to delete ticket", "error", err, "ticket_id", id)
		return err
	}
	s.announce(ctx, sess, events.TicketDeleted, id)
	s.logger.Info("ticket deleted", "ticket_id", id)
	return nil
}

// announce publishes a completed write so dependent cache keys go stale.
// The write already happened, so a failure here is logged, not returned.
func (s *Service) announce(ctx context.Context, sess *session.Session, m events.Mutation, id string) {
	actor, _ := sess.User()
	if err := s.publisher.PublishSync(ctx, events.NewResourceMutatedEvent(m, id, actor.ID)); err != nil {
		s.logger.Error("failed to invalidate cache after write", "mutation", m, "resource_id", id, "error", err)
	}
}
