package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		app, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		require.NoError(t, err)
		assert.Equal(t, Defaults(), app)
		assert.Empty(t, app.Source)
		assert.NoError(t, app.Validate())
	})

	t.Run("YAML file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "page:\n  url: https://example.org/calendar\noutput:\n  path: out/merged.ics\nhttp:\n  timeout: 5s\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		app, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "https://example.org/calendar", app.Page.URL)
		assert.Equal(t, "out/merged.ics", app.Output.Path)
		assert.Equal(t, 5*time.Second, app.HTTP.Timeout)
		assert.Equal(t, Defaults().HTTP.UserAgent, app.HTTP.UserAgent)
		assert.Equal(t, path, app.Source)
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output:\n  path: from-file.ics\n"), 0o600))
		t.Setenv("EVENTS_CALENDAR_OUTPUT_PATH", "from-env.ics")
		t.Setenv("EVENTS_CALENDAR_LOG_LEVEL", "debug")

		app, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "from-env.ics", app.Output.Path)
		assert.Equal(t, "debug", app.Log.Level)
	})

	t.Run("Malformed YAML is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("page: [unterminated\n"), 0o600))

		_, err := Load(path)

		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Application)
	}{
		{name: "empty page url", mutate: func(a *Application) { a.Page.URL = "" }},
		{name: "relative page url", mutate: func(a *Application) { a.Page.URL = "/events" }},
		{name: "unparsable page url", mutate: func(a *Application) { a.Page.URL = "http://[::1" }},
		{name: "empty output path", mutate: func(a *Application) { a.Output.Path = "  " }},
		{name: "zero timeout", mutate: func(a *Application) { a.HTTP.Timeout = 0 }},
		{name: "unknown log level", mutate: func(a *Application) { a.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := Defaults()
			tt.mutate(&app)

			assert.ErrorIs(t, app.Validate(), ErrInvalid)
		})
	}
}
