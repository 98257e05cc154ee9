// Package affiliate provides a Shopee Affiliate Open API client abstracted
// behind interfaces for testability. It covers credential resolution,
// HMAC request signing, access-token caching and product offer search.
package affiliate

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/donaldgifford/kompara/pkg/types"
)

// DefaultPageSize is the number of offers requested per search.
const DefaultPageSize = 20

// Scheme selects how requests to the provider are authenticated.
type Scheme string

// Supported authentication schemes.
const (
	// SchemeGraphQL signs a single GraphQL POST with
	// appId + timestamp + body + secret.
	SchemeGraphQL Scheme = "graphql"
	// SchemeREST exchanges the secret for a cached access token and signs
	// each REST call with it.
	SchemeREST Scheme = "rest"
)

// ParseScheme converts a configuration value into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeGraphQL:
		return SchemeGraphQL, nil
	case SchemeREST:
		return SchemeREST, nil
	default:
		return "", fmt.Errorf("%w: unknown scheme %q (want graphql or rest)", ErrConfiguration, s)
	}
}

// SearchRequest defines the parameters for an offer search.
type SearchRequest struct {
	Keyword string
	Limit   int
}

// SearchResponse holds the offers returned by the provider, in the order
// the provider returned them.
type SearchResponse struct {
	Offers []domain.Offer
}

// Searcher defines the interface for searching product offers.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// TokenProvider defines the interface for obtaining access tokens.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// New builds the Searcher for the given scheme. For SchemeREST it also
// returns the TokenManager backing it so callers can warm or inspect it;
// for SchemeGraphQL the returned manager is nil. opts apply to every
// provider call, token exchange included.
func New(
	scheme Scheme,
	creds Credentials,
	baseURL string,
	tokenOpts []TokenOption,
	opts ...ClientOption,
) (Searcher, *TokenManager, error) {
	switch scheme {
	case SchemeGraphQL:
		return NewGraphQLClient(creds, append([]ClientOption{WithBaseURL(baseURL)}, opts...)...), nil, nil
	case SchemeREST:
		tokens := NewTokenManager(
			creds,
			append([]TokenOption{
				WithTokenBaseURL(baseURL),
				WithTokenClientOptions(opts...),
			}, tokenOpts...)...,
		)
		client := NewRESTClient(
			creds,
			tokens,
			append([]ClientOption{WithBaseURL(baseURL)}, opts...)...,
		)
		return client, tokens, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown scheme %q", ErrConfiguration, scheme)
	}
}

// unconfigured is a Searcher that fails every call with the configuration
// error captured at startup, without touching the network.
type unconfigured struct {
	err error
}

// Unconfigured returns a Searcher that always fails with err. It lets the
// server start and report a configuration failure per request when
// credentials could not be resolved.
func Unconfigured(err error) Searcher {
	return &unconfigured{err: err}
}

func (u *unconfigured) Search(context.Context, SearchRequest) (*SearchResponse, error) {
	return nil, u.err
}

func normalizeRequest(req SearchRequest) (SearchRequest, error) {
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		return req, fmt.Errorf("%w: keyword is required", ErrInput)
	}
	if req.Limit <= 0 {
		req.Limit = DefaultPageSize
	}
	return req, nil
}
