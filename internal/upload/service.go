package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/service-desk/internal"
	uploadDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/upload"
	"github.com/frahmantamala/service-desk/internal/session"
	"golang.org/x/sync/errgroup"
)

type RepositoryAPI interface {
	Upload(ctx context.Context, sess *session.Session, filename, contentType string, r io.Reader) (uploadDatamodel.Result, error)
}

type Observer interface {
	ObserveUpload(ok bool)
}

type Service struct {
	repo        RepositoryAPI
	concurrency int
	observer    Observer
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, concurrency int, observer Observer, logger *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = internal.DefaultUploadConcurrency
	}
	return &Service{
		repo:        repo,
		concurrency: concurrency,
		observer:    observer,
		logger:      logger,
	}
}

// UploadAll sends every file concurrently and waits for all of them. The
// first failure cancels the rest and is the only error reported; results are
// returned in input order and only when every upload succeeded.
func (s *Service) UploadAll(ctx context.Context, sess *session.Session, files []File) ([]uploadDatamodel.Result, error) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]uploadDatamodel.Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res, err := s.uploadOne(gctx, sess, f)
			s.observe(err == nil)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("attachment upload failed", "files", len(files), "error", err)
		return nil, uploadError(err)
	}

	s.logger.Info("attachments uploaded", "files", len(files))
	return results, nil
}

func (s *Service) uploadOne(ctx context.Context, sess *session.Session, f File) (uploadDatamodel.Result, error) {
	rc, err := f.Open()
	if err != nil {
		return uploadDatamodel.Result{}, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	res, err := s.repo.Upload(ctx, sess, f.Name, f.ContentType, rc)
	if err != nil {
		return res, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	return res, nil
}

func (s *Service) observe(ok bool) {
	if s.observer != nil {
		s.observer.ObserveUpload(ok)
	}
}

// uploadError keeps a session rejection intact so the caller still ends on
// the login page; everything else collapses into one upload failure.
func uploadError(err error) error {
	if internal.IsUnauthorized(err) {
		appErr, _ := internal.IsAppError(err)
		return appErr
	}
	return &internal.AppError{
		Type:       internal.ErrorTypeExternal,
		Code:       internal.ErrCodeUploadFailed,
		Message:    "Failed to upload attachments",
		StatusCode: http.StatusBadGateway,
		Cause:      err,
	}
}
