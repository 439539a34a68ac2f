package movie

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"moviegate/errs"
)

const (
	DefaultLanguage = "en-US"
	TypeMovie       = "movie"

	// FieldTrailers is the key the trailer keys are merged under.
	FieldTrailers = "trailers"

	videoTypeTrailer = "Trailer"
	videoSiteYouTube = "YouTube"
)

var ErrInvalidID = errs.Errorf(errs.EINVALID, "id must be a positive integer")

// Payload is an upstream JSON object passed through without interpretation.
type Payload map[string]interface{}

type SearchQuery struct {
	Query    string
	Page     int
	Language string
	Adult    bool
}

// Normalize fills the defaults for missing parameters.
func (q *SearchQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if strings.TrimSpace(q.Language) == "" {
		q.Language = DefaultLanguage
	}
}

type DetailQuery struct {
	ID       int
	Type     string
	Language string
}

func (q *DetailQuery) Normalize() {
	if strings.TrimSpace(q.Type) == "" {
		q.Type = TypeMovie
	}
	if strings.TrimSpace(q.Language) == "" {
		q.Language = DefaultLanguage
	}
}

// ParsePage reads a page number, falling back to 1 when raw is empty,
// non-numeric or below 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParseAdult reads the adult flag; anything but a true boolean is false.
func ParseAdult(raw string) bool {
	adult, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && adult
}

type Video struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type VideoList struct {
	ID      int     `json:"id"`
	Results []Video `json:"results"`
}

// ExtractTrailerKeys keeps the keys of YouTube trailers in upstream order.
// Duplicates are preserved and the result is never nil.
func ExtractTrailerKeys(videos []Video) []string {
	keys := make([]string, 0, len(videos))
	for _, v := range videos {
		if v.Type == videoTypeTrailer && v.Site == videoSiteYouTube {
			keys = append(keys, v.Key)
		}
	}
	return keys
}

// DetailResult is the upstream detail payload plus the derived trailer keys.
type DetailResult struct {
	Detail   Payload
	Trailers []string
}

// Merged returns a copy of the detail payload with trailers attached.
func (r DetailResult) Merged() Payload {
	out := make(Payload, len(r.Detail)+1)
	for k, v := range r.Detail {
		out[k] = v
	}
	trailers := r.Trailers
	if trailers == nil {
		trailers = []string{}
	}
	out[FieldTrailers] = trailers
	return out
}

func (r DetailResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Merged())
}

// UpstreamError is a non-success response from the metadata provider. Its
// status and body are handed to the caller unchanged.
type UpstreamError struct {
	Operation string
	Status    int
	Body      interface{}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Operation, e.Status)
}
