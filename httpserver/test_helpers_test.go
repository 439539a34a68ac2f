//nolint:unused
package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moviegate/httpserver"
	"moviegate/movie"
	"moviegate/pkg/config"
	"moviegate/ratelimit"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RateLimit.SearchLimit = 30
	cfg.RateLimit.SearchWindow = time.Minute
	cfg.RateLimit.DetailsLimit = 60
	cfg.RateLimit.DetailsWindow = time.Minute
	return cfg
}

type MockMovieService struct {
	mock.Mock
}

func (m *MockMovieService) Search(ctx context.Context, q movie.SearchQuery) (movie.Payload, error) {
	args := m.Called(ctx, q)
	p, _ := args.Get(0).(movie.Payload)
	return p, args.Error(1)
}

func (m *MockMovieService) Details(ctx context.Context, q movie.DetailQuery) (movie.DetailResult, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(movie.DetailResult)
	return res, args.Error(1)
}

// newTestServer returns a server with tight quotas on a fresh memory store.
func newTestServer(svc movie.Service, searchLimit, detailsLimit int) *httpserver.Server {
	server := httpserver.Default(testConfig())
	server.MovieService = svc
	server.Limiter = ratelimit.New(ratelimit.NewMemoryStore())
	server.Buckets = map[string]ratelimit.Bucket{
		httpserver.BucketSearch:  {Name: httpserver.BucketSearch, Limit: searchLimit, Window: time.Minute},
		httpserver.BucketDetails: {Name: httpserver.BucketDetails, Limit: detailsLimit, Window: time.Minute},
	}
	return server
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) httpserver.ErrorResponse {
	t.Helper()
	var resp httpserver.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeJSONObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
