package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":         true, // Empty defaults to info
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Validate checks the configuration for errors.
// Returns a ValidationError containing all errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateBackend(c, errs)
	validateCache(c, errs)
	validateLogging(c, errs)

	return errs.ToError()
}

func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen != "" {
		validateListenAddress(c.Server.Listen, errs)
	}
	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}
	if port == "" {
		errs.Add("server.listen port is required")
	}
}

func validateBackend(c *Config, errs *ValidationError) {
	b := &c.Backend
	if b.BaseURL == "" {
		errs.Add("backend.base_url is required")
	} else if u, err := url.Parse(b.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs.Addf("backend.base_url must be an absolute http(s) URL (got %q)", b.BaseURL)
	}
	if b.TimeoutMS < 0 {
		errs.Add("backend.timeout_ms must be >= 0")
	}
	if b.RateLimitRPM < 0 {
		errs.Add("backend.rate_limit_rpm must be >= 0")
	}
	if b.Breaker.FailureThreshold < 0 {
		errs.Add("backend.breaker.failure_threshold must be >= 0")
	}
	if b.Breaker.OpenDurationMS < 0 {
		errs.Add("backend.breaker.open_duration_ms must be >= 0")
	}
	if b.Breaker.HalfOpenProbes < 0 {
		errs.Add("backend.breaker.half_open_probes must be >= 0")
	}
}

func validateCache(c *Config, errs *ValidationError) {
	if c.Cache.DefaultTTLMS < 0 {
		errs.Add("cache.default_ttl_ms must be >= 0")
	}

	seen := make(map[string]bool, len(c.Cache.Routes))
	for i := range c.Cache.Routes {
		r := &c.Cache.Routes[i]
		field := fmt.Sprintf("cache.routes[%d]", i)
		switch {
		case r.Prefix == "":
			errs.Addf("%s.prefix is required", field)
		case !strings.HasPrefix(r.Prefix, "/"):
			errs.Addf("%s.prefix must start with / (got %q)", field, r.Prefix)
		case seen[r.Prefix]:
			errs.Addf("duplicate cache route prefix: %s", r.Prefix)
		}
		seen[r.Prefix] = true
		if r.TTLMS < 0 {
			errs.Addf("%s.ttl_ms must be >= 0", field)
		}
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)", c.Logging.Format)
	}
}
