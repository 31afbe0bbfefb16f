package urlcheck

import (
	"net/url"
	"strings"

	"github.com/heraldhq/herald/pkg/observability"
)

// defaultBlockedHosts are hostnames rejected without resolution.
var defaultBlockedHosts = map[string]struct{}{
	"localhost":                {},
	"localhost.localdomain":    {},
	"metadata.google.internal": {},
}

// Options configures a Validator
type Options struct {
	// AllowInsecure permits http:// destinations (development deployments)
	AllowInsecure bool

	// Cache overrides the default in-process bounded cache
	Cache ResultCache

	// BlockedHosts extends the default blocked hostname set
	BlockedHosts []string

	// Metrics is optional; nil disables instrumentation
	Metrics *observability.Metrics
}

// Validator performs SSRF validation of webhook destination URLs
type Validator struct {
	cache         ResultCache
	allowInsecure bool
	blockedHosts  map[string]struct{}
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// NewValidator creates a Validator. The cache is injectable so tests can reset
// it deterministically and multi-instance deployments can share one.
func NewValidator(logger *observability.Logger, opts Options) *Validator {
	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache(100)
	}

	blocked := make(map[string]struct{}, len(defaultBlockedHosts)+len(opts.BlockedHosts))
	for host := range defaultBlockedHosts {
		blocked[host] = struct{}{}
	}
	for _, host := range opts.BlockedHosts {
		blocked[strings.ToLower(host)] = struct{}{}
	}

	return &Validator{
		cache:         cache,
		allowInsecure: opts.AllowInsecure,
		blockedHosts:  blocked,
		logger:        logger,
		metrics:       opts.Metrics,
	}
}

// ValidateURL performs the synchronous, string-only SSRF check used at
// registration time. It never resolves DNS; ValidateResolved covers the
// send-time rebinding window.
func (v *Validator) ValidateURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	if valid, ok := v.cache.Get(rawURL); ok {
		if v.metrics != nil {
			v.metrics.ValidationCacheHits.Inc()
		}
		return valid
	}
	if v.metrics != nil {
		v.metrics.ValidationCacheMisses.Inc()
	}

	valid := v.check(rawURL)
	v.cache.Put(rawURL, valid)
	return valid
}

func (v *Validator) check(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		v.reject(rawURL, "parse_error")
		return false
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !v.allowInsecure {
			v.reject(rawURL, "insecure_scheme")
			return false
		}
	default:
		v.reject(rawURL, "scheme")
		return false
	}

	// Hostname() strips brackets from IPv6 literals; lowercase for the
	// hostname set and for classification.
	host := strings.ToLower(u.Hostname())
	if host == "" {
		v.reject(rawURL, "empty_host")
		return false
	}

	if _, blocked := v.blockedHosts[host]; blocked {
		v.reject(rawURL, "blocked_host")
		return false
	}

	if IsAddrLiteral(host) && IsBlockedAddr(host) {
		v.reject(rawURL, "blocked_address")
		return false
	}

	return true
}

func (v *Validator) reject(rawURL, reason string) {
	if v.metrics != nil {
		v.metrics.ValidationRejectsTotal.WithLabelValues(reason).Inc()
	}
	v.logger.WithFields(map[string]interface{}{
		"url":    SanitizeURL(rawURL),
		"reason": reason,
	}).Warn("webhook URL rejected")
}

// SanitizeURL strips userinfo and query string from a URL before it is
// logged, so credentials and capability tokens never reach the log stream.
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ResetCache clears the validation cache (tests and admin tooling)
func (v *Validator) ResetCache() {
	v.cache.Reset()
}
