package sentry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestSentry_Builder(t *testing.T) {
	e := echo.New()
	ctx := e.NewContext(nil, nil)
	err := errors.New("upstream timeout")
	extras := map[string]interface{}{"id": 550}
	tags := map[string]string{"component": "trailers"}

	s := new(Sentry)
	result := s.WithContext(ctx).
		WithError(err).
		WithMessage("trailer lookup failed").
		WithLevel(sentrygo.LevelWarning).
		WithExtras(extras).
		WithTags(tags)

	assert.Same(t, s, result, "builder should return the same instance")
	assert.Equal(t, ctx, s.context)
	assert.Equal(t, err, s.error)
	assert.Equal(t, "trailer lookup failed", s.message)
	assert.Equal(t, sentrygo.LevelWarning, s.level)
	assert.Equal(t, extras, s.extras)
	assert.Equal(t, tags, s.tags)
}

func TestSentry_ConvenienceConstructors(t *testing.T) {
	ctx := echo.New().NewContext(nil, nil)

	assert.Equal(t, ctx, WithContext(ctx).context)
	assert.Equal(t, map[string]interface{}{"k": "v"}, WithExtras(map[string]interface{}{"k": "v"}).extras)
	assert.Equal(t, map[string]string{"env": "test"}, WithTags(map[string]string{"env": "test"}).tags)
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		dsn    string
		want   bool
	}{
		{name: "local never sends", appEnv: "local", dsn: "https://public@sentry.example.com/1", want: false},
		{name: "missing dsn never sends", appEnv: "production", dsn: "", want: false},
		{name: "production with dsn sends", appEnv: "production", dsn: "https://public@sentry.example.com/1", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.appEnv)
			t.Setenv("SENTRY_DSN", tt.dsn)

			assert.Equal(t, tt.want, enabled())
		})
	}
}

func TestSentry_SendingDisabled(t *testing.T) {
	t.Setenv("APP_ENV", "local")

	// None of these may panic when sentry is not initialised.
	new(Sentry).Warning("warning")
	new(Sentry).Warningf("warning %d", 1)
	new(Sentry).Error(errors.New("error"))
	new(Sentry).Errorf("error %d", 1)
	WithContext(echo.New().NewContext(nil, nil)).Error(errors.New("no request"))
}

func TestSentry_SendingEnabled(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SENTRY_DSN", "https://public@sentry.example.com/1")
	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
	})
	assert.NoError(t, err)
	defer sentrygo.Flush(0)

	req := httptest.NewRequest(http.MethodGet, "/details/550", nil)
	ctx := echo.New().NewContext(req, httptest.NewRecorder())

	WithContext(ctx).
		WithTags(map[string]string{"env": "test"}).
		WithExtras(map[string]interface{}{"key": "value"}).
		Errorf("upstream %s failed", "videos")
	WithTags(map[string]string{"component": "trailers"}).Warning("no trailers")
}

func TestSentry_GetHub(t *testing.T) {
	t.Run("falls back to current hub", func(t *testing.T) {
		assert.NotNil(t, new(Sentry).getHub())
	})

	t.Run("prefers hub stored on echo context", func(t *testing.T) {
		ctx := echo.New().NewContext(nil, nil)
		hub := sentrygo.CurrentHub().Clone()
		ctx.Set("sentry", hub)

		assert.Same(t, hub, WithContext(ctx).getHub())
	})
}

func TestSentry_ConfigScope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search?query=alien", nil)
	s := WithContext(echo.New().NewContext(req, httptest.NewRecorder())).
		WithLevel(sentrygo.LevelError).
		WithExtras(map[string]interface{}{"key": "value"}).
		WithTags(map[string]string{"env": "test"})

	scope := sentrygo.NewScope()
	s.configScope(scope)

	assert.NotNil(t, scope)
}
