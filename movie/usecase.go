package movie

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"moviegate/pkg/metrics"
	"moviegate/pkg/sentry"
)

type Service interface {
	Search(ctx context.Context, q SearchQuery) (Payload, error)
	Details(ctx context.Context, q DetailQuery) (DetailResult, error)
}

// Provider is the metadata provider the usecase fans out to.
type Provider interface {
	SearchMulti(ctx context.Context, q SearchQuery) (Payload, error)
	Detail(ctx context.Context, q DetailQuery) (Payload, error)
	Videos(ctx context.Context, mediaType string, id int) (VideoList, error)
}

type Usecase struct {
	p              Provider
	strictTrailers bool
	logger         *slog.Logger
}

type Option func(*Usecase)

// WithStrictTrailers makes a failed videos lookup fail the whole detail
// request instead of yielding an empty trailer list.
func WithStrictTrailers(strict bool) Option {
	return func(uc *Usecase) { uc.strictTrailers = strict }
}

func WithLogger(l *slog.Logger) Option {
	return func(uc *Usecase) { uc.logger = l }
}

func NewUsecase(p Provider, opts ...Option) *Usecase {
	uc := &Usecase{p: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *Usecase) Search(ctx context.Context, q SearchQuery) (Payload, error) {
	q.Normalize()
	return uc.p.SearchMulti(ctx, q)
}

// Details fetches the detail payload and the videos list concurrently. A
// failed detail call wins over whatever the videos call produced.
func (uc *Usecase) Details(ctx context.Context, q DetailQuery) (DetailResult, error) {
	if q.ID <= 0 {
		return DetailResult{}, ErrInvalidID
	}
	q.Normalize()

	var (
		detail    Payload
		videos    VideoList
		videosErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = uc.p.Detail(gctx, q)
		return err
	})
	g.Go(func() error {
		videos, videosErr = uc.p.Videos(gctx, q.Type, q.ID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return DetailResult{}, err
	}

	if videosErr != nil {
		if uc.strictTrailers {
			return DetailResult{}, videosErr
		}
		metrics.TrailerFallbacks.Inc()
		uc.logger.WarnContext(ctx, "trailer lookup failed, returning detail without trailers",
			"type", q.Type, "id", q.ID, "error", videosErr)
		sentry.WithTags(map[string]string{"component": "trailers", "media_type": q.Type}).
			Warningf("trailer lookup failed for %s/%d: %v", q.Type, q.ID, videosErr)
		return DetailResult{Detail: detail, Trailers: []string{}}, nil
	}

	return DetailResult{Detail: detail, Trailers: ExtractTrailerKeys(videos.Results)}, nil
}
