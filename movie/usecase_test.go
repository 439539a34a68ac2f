package movie_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moviegate/errs"
	"moviegate/movie"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SearchMulti(ctx context.Context, q movie.SearchQuery) (movie.Payload, error) {
	args := m.Called(ctx, q)
	p, _ := args.Get(0).(movie.Payload)
	return p, args.Error(1)
}

func (m *MockProvider) Detail(ctx context.Context, q movie.DetailQuery) (movie.Payload, error) {
	args := m.Called(ctx, q)
	p, _ := args.Get(0).(movie.Payload)
	return p, args.Error(1)
}

func (m *MockProvider) Videos(ctx context.Context, mediaType string, id int) (movie.VideoList, error) {
	args := m.Called(ctx, mediaType, id)
	return args.Get(0).(movie.VideoList), args.Error(1)
}

func mixedVideos() movie.VideoList {
	return movie.VideoList{ID: 550, Results: []movie.Video{
		{Type: "Trailer", Site: "YouTube", Key: "abc"},
		{Type: "Clip", Site: "YouTube", Key: "xyz"},
		{Type: "Trailer", Site: "Vimeo", Key: "qqq"},
	}}
}

func TestSearch(t *testing.T) {
	t.Run("applies defaults and returns upstream payload unchanged", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		want := movie.Payload{"page": float64(1), "results": []interface{}{}, "total_results": float64(0)}
		p.On("SearchMulti", mock.Anything, movie.SearchQuery{Query: "alien", Page: 1, Language: "en-US"}).
			Return(want, nil).Once()

		got, err := uc.Search(context.Background(), movie.SearchQuery{Query: "alien"})

		assert.NoError(t, err)
		assert.Equal(t, want, got)
		p.AssertExpectations(t)
	})

	t.Run("passes explicit parameters through", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		q := movie.SearchQuery{Query: "amélie", Page: 3, Language: "fr-FR", Adult: true}
		p.On("SearchMulti", mock.Anything, q).Return(movie.Payload{"page": float64(3)}, nil).Once()

		_, err := uc.Search(context.Background(), q)

		assert.NoError(t, err)
		p.AssertExpectations(t)
	})

	t.Run("propagates upstream rate limit verbatim", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		upstream := &movie.UpstreamError{Operation: "search", Status: http.StatusTooManyRequests, Body: map[string]interface{}{"status_code": float64(25)}}
		p.On("SearchMulti", mock.Anything, mock.Anything).Return(nil, upstream).Once()

		_, err := uc.Search(context.Background(), movie.SearchQuery{Query: "alien"})

		assert.Same(t, upstream, err)
	})
}

func TestDetails(t *testing.T) {
	t.Run("merges youtube trailer keys into the detail payload", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		p.On("Detail", mock.Anything, movie.DetailQuery{ID: 550, Type: "movie", Language: "en-US"}).
			Return(movie.Payload{"id": float64(550), "title": "Fight Club"}, nil).Once()
		p.On("Videos", mock.Anything, "movie", 550).Return(mixedVideos(), nil).Once()

		res, err := uc.Details(context.Background(), movie.DetailQuery{ID: 550})

		require.NoError(t, err)
		assert.Equal(t, []string{"abc"}, res.Trailers)
		assert.Equal(t, "Fight Club", res.Merged()["title"])
		assert.Equal(t, []string{"abc"}, res.Merged()[movie.FieldTrailers])
		p.AssertExpectations(t)
	})

	t.Run("non-200 detail aborts composition", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		notFound := &movie.UpstreamError{Operation: "detail", Status: http.StatusNotFound, Body: map[string]interface{}{"status_message": "not found"}}
		p.On("Detail", mock.Anything, mock.Anything).Return(nil, notFound).Once()
		p.On("Videos", mock.Anything, "tv", 1).Return(mixedVideos(), nil).Maybe()

		res, err := uc.Details(context.Background(), movie.DetailQuery{ID: 1, Type: "tv"})

		var upstream *movie.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusNotFound, upstream.Status)
		assert.Nil(t, res.Detail)
		assert.Nil(t, res.Trailers)
	})

	t.Run("trailer failure degrades to empty list", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		p.On("Detail", mock.Anything, mock.Anything).Return(movie.Payload{"id": float64(7)}, nil).Once()
		p.On("Videos", mock.Anything, "movie", 7).
			Return(movie.VideoList{}, errs.Errorf(errs.EUPSTREAM, "connection refused")).Once()

		res, err := uc.Details(context.Background(), movie.DetailQuery{ID: 7})

		require.NoError(t, err)
		assert.Equal(t, []string{}, res.Trailers)
		assert.Equal(t, float64(7), res.Detail["id"])
	})

	t.Run("strict mode fails on trailer failure", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p, movie.WithStrictTrailers(true))
		trailerErr := &movie.UpstreamError{Operation: "videos", Status: http.StatusServiceUnavailable}
		p.On("Detail", mock.Anything, mock.Anything).Return(movie.Payload{"id": float64(7)}, nil).Once()
		p.On("Videos", mock.Anything, "movie", 7).Return(movie.VideoList{}, trailerErr).Once()

		_, err := uc.Details(context.Background(), movie.DetailQuery{ID: 7})

		assert.Same(t, trailerErr, err)
	})

	t.Run("rejects non-positive id without calling upstream", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)

		_, err := uc.Details(context.Background(), movie.DetailQuery{ID: 0})

		assert.Equal(t, movie.ErrInvalidID, err)
		p.AssertNotCalled(t, "Detail", mock.Anything, mock.Anything)
		p.AssertNotCalled(t, "Videos", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repeated requests yield identical trailer lists", func(t *testing.T) {
		p := new(MockProvider)
		uc := movie.NewUsecase(p)
		p.On("Detail", mock.Anything, mock.Anything).Return(movie.Payload{"id": float64(550)}, nil).Twice()
		p.On("Videos", mock.Anything, "movie", 550).Return(mixedVideos(), nil).Twice()

		first, err := uc.Details(context.Background(), movie.DetailQuery{ID: 550})
		require.NoError(t, err)
		second, err := uc.Details(context.Background(), movie.DetailQuery{ID: 550})
		require.NoError(t, err)

		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		assert.JSONEq(t, string(a), string(b))
	})
}

func TestExtractTrailerKeys(t *testing.T) {
	tests := []struct {
		name   string
		videos []movie.Video
		want   []string
	}{
		{
			name:   "keeps only youtube trailers",
			videos: mixedVideos().Results,
			want:   []string{"abc"},
		},
		{
			name: "preserves order and duplicates",
			videos: []movie.Video{
				{Type: "Trailer", Site: "YouTube", Key: "b"},
				{Type: "Trailer", Site: "YouTube", Key: "a"},
				{Type: "Trailer", Site: "YouTube", Key: "b"},
			},
			want: []string{"b", "a", "b"},
		},
		{
			name:   "no matches yields empty list",
			videos: []movie.Video{{Type: "Teaser", Site: "YouTube", Key: "t"}},
			want:   []string{},
		},
		{
			name:   "nil input yields empty list",
			videos: nil,
			want:   []string{},
		},
		{
			name:   "matching is case sensitive",
			videos: []movie.Video{{Type: "trailer", Site: "youtube", Key: "x"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, movie.ExtractTrailerKeys(tt.videos))
		})
	}
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, movie.ParsePage(""))
	assert.Equal(t, 1, movie.ParsePage("abc"))
	assert.Equal(t, 1, movie.ParsePage("0"))
	assert.Equal(t, 1, movie.ParsePage("-4"))
	assert.Equal(t, 1, movie.ParsePage("2.5"))
	assert.Equal(t, 7, movie.ParsePage(" 7 "))
}

func TestParseAdult(t *testing.T) {
	assert.False(t, movie.ParseAdult(""))
	assert.False(t, movie.ParseAdult("yes"))
	assert.False(t, movie.ParseAdult("false"))
	assert.True(t, movie.ParseAdult("true"))
	assert.True(t, movie.ParseAdult("1"))
}

func TestDetailResult_MarshalJSON(t *testing.T) {
	res := movie.DetailResult{Detail: movie.Payload{"id": 1, "trailers": "overwritten"}}

	b, err := json.Marshal(res)

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"trailers":[]}`, string(b))
	assert.Equal(t, "overwritten", res.Detail["trailers"], "source payload is not mutated")
}
