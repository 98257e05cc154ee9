package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/kompara/pkg/types"
)

// Search calls GET /search and returns the offers in provider order.
func (c *Client) Search(ctx context.Context, term string) ([]domain.Offer, error) {
	var offers []domain.Offer
	q := url.Values{"searchTerm": {term}}
	if err := c.get(ctx, "/search", q, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

// SearchResult is the body of GET /api/v1/search.
type SearchResult struct {
	Offers []domain.Offer `json:"offers"`
	Count  int            `json:"count"`
}

// SearchOffers calls GET /api/v1/search with an optional result limit.
func (c *Client) SearchOffers(ctx context.Context, term string, limit int) (*SearchResult, error) {
	q := url.Values{"q": {term}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var res SearchResult
	if err := c.get(ctx, "/api/v1/search", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
