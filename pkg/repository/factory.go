package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultGiteeHost is the authority routed to the Gitee backend.
const DefaultGiteeHost = "gitee.com"

// Options is the serialized form of an Operator's construction parameters.
// Host is the provider origin (scheme://authority).
type Options struct {
	Host  string `json:"host"`
	Token string `json:"token"`
}

// ParseOptions decodes options serialized with Options.Encode.
func ParseOptions(s string) (Options, error) {
	var opts Options
	if err := json.Unmarshal([]byte(s), &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse operator options: %w", err)
	}
	if opts.Host == "" {
		return Options{}, errors.New("operator options: host is required")
	}
	return opts, nil
}

// Encode serializes the options as JSON.
func (o Options) Encode() (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to encode operator options: %w", err)
	}
	return string(data), nil
}

// Factory creates Operators and owns the routing decision between backends.
type Factory struct {
	giteeHost   string
	giteeAPIURL string
	httpClient  *http.Client
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithGiteeHost changes the authority routed to the Gitee backend.
func WithGiteeHost(host string) FactoryOption {
	return func(f *Factory) {
		if host != "" {
			f.giteeHost = host
		}
	}
}

// WithGiteeAPIURL changes the Gitee API root.
func WithGiteeAPIURL(apiURL string) FactoryOption {
	return func(f *Factory) {
		if apiURL != "" {
			f.giteeAPIURL = apiURL
		}
	}
}

// WithHTTPClient sets the HTTP client shared by the created operators.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		f.httpClient = c
	}
}

// NewFactory creates a new factory instance routing DefaultGiteeHost to Gitee.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		giteeHost:   DefaultGiteeHost,
		giteeAPIURL: DefaultGiteeAPIURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// KindFor selects the backend for host, a URL or origin. The decision
// depends on the authority only: the Gitee host selects KindGitee and every
// other authority selects KindGitLab.
func (f *Factory) KindFor(host string) (Kind, error) {
	u, err := parseHostURL(host)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(u.Host, f.giteeHost) {
		return KindGitee, nil
	}
	return KindGitLab, nil
}

// NewOperator builds the Operator selected by KindFor(opts.Host).
func (f *Factory) NewOperator(opts Options) (Operator, error) {
	u, err := parseHostURL(opts.Host)
	if err != nil {
		return nil, err
	}
	kind, err := f.KindFor(opts.Host)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindGitee:
		return NewGiteeClient(Config{Token: opts.Token, BaseURL: f.giteeAPIURL}, f.httpClient), nil
	default:
		origin := u.Scheme + "://" + u.Host
		return NewGitLabClient(Config{Token: opts.Token, BaseURL: origin}, f.httpClient)
	}
}

// SupportedKinds returns a list of all backend kinds.
func SupportedKinds() []string {
	return []string{
		string(KindGitLab),
		string(KindGitee),
	}
}

// parseHostURL parses an absolute URL and requires a scheme and authority.
func parseHostURL(host string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(host))
	if err != nil {
		return nil, fmt.Errorf("invalid repository host %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid repository host %q: scheme and host are required", host)
	}
	return u, nil
}
