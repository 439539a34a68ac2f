package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"moviegate/errs"
	"moviegate/movie"
)

func (s *Server) RegisterMovieRoutes() {
	s.Router.GET("/search", s.handleSearch, s.rateLimit(BucketSearch))
	s.Router.GET("/details/:id", s.handleDetails, s.rateLimit(BucketDetails))
}

// handleSearch godoc
// @Summary Search
// @Description Multi search over movies, TV shows and people
// @Tags movies
// @Produce json
// @Param query query string false "Search text"
// @Param language query string false "Result language, default en-US"
// @Param page query int false "Result page, default 1"
// @Param adult query bool false "Include adult results, default false"
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} ErrorResponse
// @Router /search [get]
func (s *Server) handleSearch(c echo.Context) error {
	if s.MovieService == nil {
		return errs.Errorf(errs.ENOTIMPLEMENTED, "movie service not configured")
	}

	q := movie.SearchQuery{
		Query:    c.QueryParam("query"),
		Page:     movie.ParsePage(c.QueryParam("page")),
		Language: c.QueryParam("language"),
		Adult:    movie.ParseAdult(c.QueryParam("adult")),
	}

	result, err := s.MovieService.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// handleDetails godoc
// @Summary Details
// @Description Movie or TV show details with YouTube trailer keys
// @Tags movies
// @Produce json
// @Param id path int true "Provider id"
// @Param type query string false "movie or tv, default movie"
// @Param language query string false "Result language, default en-US"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /details/{id} [get]
func (s *Server) handleDetails(c echo.Context) error {
	if s.MovieService == nil {
		return errs.Errorf(errs.ENOTIMPLEMENTED, "movie service not configured")
	}

	var req DetailRequest
	if err := c.Bind(&req); err != nil {
		return movie.ErrInvalidID
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := s.MovieService.Details(c.Request().Context(), movie.DetailQuery{
		ID:       req.ID,
		Type:     req.Type,
		Language: req.Language,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
