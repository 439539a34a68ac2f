// Package tmdb is the adapter for The Movie Database v3 API.
//
// Authentication uses a v4 read access token sent as a Bearer header. The
// token is handed in through Options and never logged.
package tmdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"moviegate/errs"
	"moviegate/movie"
	"moviegate/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 1 << 20
)

var _ movie.Provider = (*Client)(nil)

type Options struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	// RPS caps outbound requests per second. Zero disables the throttle.
	RPS float64

	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, errors.New("tmdb: access token is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("tmdb: invalid base url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.AccessToken,
		http:    hc,
	}
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c, nil
}

// SearchMulti searches movies, TV shows and people in one call.
func (c *Client) SearchMulti(ctx context.Context, q movie.SearchQuery) (movie.Payload, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("language", q.Language)
	params.Set("include_adult", strconv.FormatBool(q.Adult))

	var payload movie.Payload
	if err := c.get(ctx, "search", "/search/multi", params, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Detail fetches /{type}/{id}. The type is not validated; unknown types are
// left for the provider to reject.
func (c *Client) Detail(ctx context.Context, q movie.DetailQuery) (movie.Payload, error) {
	params := url.Values{}
	params.Set("language", q.Language)

	var payload movie.Payload
	if err := c.get(ctx, "detail", mediaPath(q.Type, q.ID), params, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) Videos(ctx context.Context, mediaType string, id int) (movie.VideoList, error) {
	var list movie.VideoList
	if err := c.get(ctx, "videos", mediaPath(mediaType, id)+"/videos", nil, &list); err != nil {
		return movie.VideoList{}, err
	}
	return list, nil
}

func mediaPath(mediaType string, id int) string {
	return "/" + url.PathEscape(mediaType) + "/" + strconv.Itoa(id)
}

// get issues one GET and decodes a 200 body into dest. Other statuses come
// back as *movie.UpstreamError; anything that prevented a usable response is
// an EUPSTREAM application error.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, dest interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errs.Errorf(errs.EUPSTREAM, "%s request aborted: %v", op, err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("tmdb request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(op, 0, started)
		return errs.Errorf(errs.EUPSTREAM, "%s request failed: %v", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(op, resp.StatusCode, started)

	if resp.StatusCode != http.StatusOK {
		return &movie.UpstreamError{
			Operation: op,
			Status:    resp.StatusCode,
			Body:      readErrorBody(resp.Body),
		}
	}

	// numbers stay as their literal text so large ids survive the round trip
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return errs.Errorf(errs.EUPSTREAM, "%s response malformed: %v", op, err)
	}
	return nil
}

// readErrorBody returns the decoded JSON body, or the raw text when the
// provider did not answer with JSON.
func readErrorBody(r io.Reader) interface{} {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body interface{}
	if err := dec.Decode(&body); err != nil || dec.More() {
		return strings.TrimSpace(string(raw))
	}
	return body
}
