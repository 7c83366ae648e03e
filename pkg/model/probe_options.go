package model

import (
	"net/http"
	"time"
)

const DefaultProbeTimeout = 5 * time.Minute

type ProbeOption interface {
	apply(*ProbeConfig)
}

type probeOptionFunc func(*ProbeConfig)

func (f probeOptionFunc) apply(cfg *ProbeConfig) {
	f(cfg)
}

type ProbeConfig struct {
	URL        string
	Strictness Strictness
	Timeout    time.Duration
	Sections   []Section
	Origin     string
	Referer    string
	HTTPClient *http.Client
}

// ResolveProbeOpts applies opts over the defaults: strict mode, the twelve
// default sections, and a five minute request bound.
func ResolveProbeOpts(opts ...ProbeOption) ProbeConfig {
	cfg := ProbeConfig{
		Strictness: StrictnessStrict,
		Timeout:    DefaultProbeTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	if len(cfg.Sections) == 0 {
		cfg.Sections = DefaultSections()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeTimeout
	}
	if cfg.Strictness == "" {
		cfg.Strictness = StrictnessStrict
	}
	return cfg
}

func WithURL(value string) ProbeOption {
	return probeOptionFunc(func(cfg *ProbeConfig) {
		cfg.URL = value
	})
}

func WithStrictness(value Strictness) ProbeOption {
	return probeOptionFunc(func(cfg *ProbeConfig) {
		cfg.Strictness = value
	})
}

func WithTimeout(value time.Duration) ProbeOption {
	return probeOptionFunc(func(cfg *ProbeConfig) {
		cfg.Timeout = value
	})
}

func WithSections(value []Section) ProbeOption {
	return probeOptionFunc(func(cfg *ProbeConfig) {
		cfg.Sections = append([]Section(nil), value...)
	})
}

// WithHeaders sets the static Origin and Referer values the processing
// endpoint expects from its browser client.
func WithHeaders(origin, referer string) ProbeOption {
	return probeOptionFunc(func(cfg *ProbeConfig) {
		cfg.Origin = origin
		cfg.Referer = referer
	})
}

func WithHTTPClient(value *http.Client) ProbeOption {
	return probeOptionFunc(func(cfg *ProbeConfig) {
		cfg.HTTPClient = value
	})
}
