package policy

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/idna"
)

// Default allow-list contents.
var (
	DefaultCommands = []string{
		"workbench.action.terminal.openUrlLink",
		"simpleBrowser.api.open",
	}
	// DefaultURLCommands always have their first argument URL-checked,
	// whatever a spec lists in URLCommands.
	DefaultURLCommands = []string{
		"workbench.action.terminal.openUrlLink",
		"simpleBrowser.api.open",
	}
	DefaultOrigins = []string{
		"https://configurator.chipflow.io",
		"https://configurator.chipflow-infra.com",
	}
	DefaultURLDomains = []string{
		"docs.chipflow.io",
		"configurator.chipflow.io",
		"github.com",
		"chipflow.io",
	}
)

// Spec is the declarative form of the allow-lists, as read from
// configuration or a policy file.
type Spec struct {
	Commands          []string `json:"allowed_commands" yaml:"allowed_commands" toml:"allowed_commands" validate:"dive,required"`
	URLCommands       []string `json:"url_commands" yaml:"url_commands" toml:"url_commands" validate:"dive,required"`
	Origins           []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins" validate:"dive,required"`
	URLDomains        []string `json:"allowed_url_domains" yaml:"allowed_url_domains" toml:"allowed_url_domains" validate:"dive,required,hostname_rfc1123"`
	StrictOriginMatch bool     `json:"strict_origin_match" yaml:"strict_origin_match" toml:"strict_origin_match"`
}

// AllowLists is the immutable, lookup-ready form of a Spec.
type AllowLists struct {
	commands    map[string]struct{}
	urlCommands map[string]struct{}
	origins     []string
	domains     []string
	strict      bool

	// parsed origins, only populated in strict mode
	strictOrigins []*url.URL
}

var specValidator = validator.New()

// New builds allow-lists from a spec. Domains are normalized to lowercase ASCII.
func New(spec Spec) (*AllowLists, error) {
	if err := specValidator.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid allow-list spec: %w", err)
	}

	a := &AllowLists{
		commands:    toSet(spec.Commands),
		urlCommands: toSet(append(append([]string(nil), DefaultURLCommands...), spec.URLCommands...)),
		origins:     append([]string(nil), spec.Origins...),
		strict:      spec.StrictOriginMatch,
	}

	for _, d := range spec.URLDomains {
		host, err := normalizeHost(d)
		if err != nil {
			return nil, fmt.Errorf("invalid url domain %q: %w", d, err)
		}
		a.domains = append(a.domains, host)
	}

	if a.strict {
		for _, o := range spec.Origins {
			u, ok := parseOrigin(o)
			if !ok {
				return nil, fmt.Errorf("invalid origin %q: expected scheme://host[:port]", o)
			}
			a.strictOrigins = append(a.strictOrigins, u)
		}
	}

	return a, nil
}

// DefaultSpec returns the built-in allow-lists.
func DefaultSpec() Spec {
	return Spec{
		Commands:    append([]string(nil), DefaultCommands...),
		URLCommands: append([]string(nil), DefaultURLCommands...),
		Origins:     append([]string(nil), DefaultOrigins...),
		URLDomains:  append([]string(nil), DefaultURLDomains...),
	}
}

// DefaultAllowLists returns allow-lists built from DefaultSpec.
func DefaultAllowLists() *AllowLists {
	a, err := New(DefaultSpec())
	if err != nil {
		panic(err)
	}
	return a
}

// IsAllowedCommand reports whether name is an allow-listed command.
func (a *AllowLists) IsAllowedCommand(name string) bool {
	_, ok := a.commands[name]
	return ok
}

// IsURLCommand reports whether name opens a URL and therefore needs its
// first argument checked.
func (a *AllowLists) IsURLCommand(name string) bool {
	_, ok := a.urlCommands[name]
	return ok
}

// IsAllowedOrigin reports whether origin is trusted. An empty origin is never
// trusted.
//
// In the default mode an origin matches when it equals an allowed origin or
// starts with allowed + ".". That is a string prefix test, so
// "https://a.example.evil.com" matches "https://a.example". Strict mode
// compares scheme, port and hostname labels instead.
func (a *AllowLists) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if a.strict {
		return a.isAllowedOriginStrict(origin)
	}
	for _, allowed := range a.origins {
		if origin == allowed || strings.HasPrefix(origin, allowed+".") {
			return true
		}
	}
	return false
}

func (a *AllowLists) isAllowedOriginStrict(origin string) bool {
	u, ok := parseOrigin(origin)
	if !ok {
		return false
	}
	for _, allowed := range a.strictOrigins {
		if u.Scheme != allowed.Scheme || u.Port() != allowed.Port() {
			continue
		}
		if hostMatches(u.Hostname(), allowed.Hostname()) {
			return true
		}
	}
	return false
}

// IsAllowedURL reports whether raw is an https URL whose host is an allowed
// domain or a subdomain of one.
func (a *AllowLists) IsAllowedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	host, err := normalizeHost(u.Hostname())
	if err != nil || host == "" {
		return false
	}
	for _, domain := range a.domains {
		if hostMatches(host, domain) {
			return true
		}
	}
	return false
}

// Spec returns a copy of the lists in declarative form.
func (a *AllowLists) Spec() Spec {
	return Spec{
		Commands:          setKeys(a.commands),
		URLCommands:       setKeys(a.urlCommands),
		Origins:           append([]string(nil), a.origins...),
		URLDomains:        append([]string(nil), a.domains...),
		StrictOriginMatch: a.strict,
	}
}

// Strict reports whether label-based origin matching is enabled.
func (a *AllowLists) Strict() bool {
	return a.strict
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// normalizeHost lowercases and punycode-encodes a hostname the way a browser
// URL parser would before comparison.
func normalizeHost(host string) (string, error) {
	return idna.ToASCII(strings.ToLower(host))
}

// parseOrigin accepts only scheme://host[:port] with nothing after it.
func parseOrigin(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
		return nil, false
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return nil, false
	}
	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return nil, false
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	return u, true
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
