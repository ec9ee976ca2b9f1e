package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const EnvPrefix = "EVENTS_CALENDAR_"

var ErrInvalid = errors.New("invalid configuration")

type Application struct {
	Page     Page     `koanf:"page"`
	Output   Output   `koanf:"output"`
	HTTP     HTTP     `koanf:"http"`
	Calendar Calendar `koanf:"calendar"`
	Log      Log      `koanf:"log"`

	// Source is the YAML file the configuration was read from, empty when
	// only defaults and environment variables applied.
	Source string `koanf:"-"`
}

// Page is the events listing that links to the per-event feeds.
type Page struct {
	URL string `koanf:"url"`
}

type Output struct {
	Path string `koanf:"path"`
}

type HTTP struct {
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"useragent"`
}

type Calendar struct {
	ProductID string `koanf:"productid"`
	Name      string `koanf:"name"`
}

type Log struct {
	Level string `koanf:"level"`
}

func Defaults() Application {
	return Application{
		Page:   Page{URL: "https://www.ruhabenjamin.com/events"},
		Output: Output{Path: "docs/ruha.ics"},
		HTTP: HTTP{
			Timeout:   30 * time.Second,
			UserAgent: "events-calendar/1.0",
		},
		Calendar: Calendar{
			ProductID: "-//events-calendar//merged feed//EN",
		},
		Log: Log{Level: "info"},
	}
}

// Load layers the defaults, the optional YAML file at path and the
// EVENTS_CALENDAR_* environment, in that order.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	source := ""
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				log.Errorf("error loading config from YAML: %v", err)
				return Application{}, err
			}
		} else {
			source = path
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	app.Source = source

	return app, nil
}

// Validate checks the preconditions the pipeline relies on. The page URL
// must be absolute because every discovered href is resolved against it.
func (a Application) Validate() error {
	if a.Page.URL == "" {
		return fmt.Errorf("%w: page url is empty", ErrInvalid)
	}
	u, err := url.Parse(a.Page.URL)
	if err != nil {
		return fmt.Errorf("%w: page url: %v", ErrInvalid, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: page url %q is not absolute", ErrInvalid, a.Page.URL)
	}
	if strings.TrimSpace(a.Output.Path) == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalid)
	}
	if a.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive, got %s", ErrInvalid, a.HTTP.Timeout)
	}
	if _, err := log.ParseLevel(a.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
