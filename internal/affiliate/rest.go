package affiliate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/donaldgifford/kompara/pkg/types"
)

// ProductSearchPath is the REST offer search endpoint.
const ProductSearchPath = "/api/v3/product/search"

// RESTClient implements Searcher against the provider's REST product search,
// signing each call with appId + path + timestamp + accessToken.
type RESTClient struct {
	creds  Credentials
	tokens TokenProvider
	clientConfig
}

// NewRESTClient creates a REST-scheme Searcher using tokens for access
// tokens. When tokens is a *TokenManager, tokens the provider rejects are
// invalidated so the next search refetches.
func NewRESTClient(creds Credentials, tokens TokenProvider, opts ...ClientOption) *RESTClient {
	return &RESTClient{
		creds:        creds,
		tokens:       tokens,
		clientConfig: newClientConfig(opts),
	}
}

type restSearchResponse struct {
	Error   json.RawMessage `json:"error"`
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
	Data    *struct {
		ProductOfferList []restOffer `json:"product_offer_list"`
	} `json:"data"`
}

type restOffer struct {
	ItemID         domain.FlexString `json:"item_id"`
	ProductName    string            `json:"product_name"`
	Description    string            `json:"description"`
	ShopName       string            `json:"shop_name"`
	OriginPrice    domain.FlexString `json:"origin_price"`
	SalePrice      domain.FlexString `json:"sale_price"`
	PriceMin       domain.FlexString `json:"price_min"`
	PriceMax       domain.FlexString `json:"price_max"`
	Sales          domain.FlexString `json:"sales"`
	RatingStar     domain.FlexString `json:"rating_star"`
	ImageURL       string            `json:"image_url"`
	CommissionRate domain.FlexString `json:"commission_rate"`
	Commission     domain.FlexString `json:"commission"`
	OfferLink      string            `json:"offer_link"`
	ProductLink    string            `json:"product_link"`
}

func (o *restOffer) toOffer() domain.Offer {
	link := o.OfferLink
	if link == "" {
		link = o.ProductLink
	}
	return domain.Offer{
		ItemID:         o.ItemID,
		ProductName:    o.ProductName,
		Description:    o.Description,
		ShopName:       o.ShopName,
		OriginPrice:    o.OriginPrice,
		SalePrice:      o.SalePrice,
		PriceMin:       o.PriceMin,
		PriceMax:       o.PriceMax,
		Sales:          o.Sales,
		RatingStar:     o.RatingStar,
		ImageURL:       o.ImageURL,
		CommissionRate: o.CommissionRate,
		Commission:     o.Commission,
		MarketingLink:  link,
	}
}

// Search implements Searcher.Search.
func (c *RESTClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "affiliate.search",
		trace.WithAttributes(
			attribute.String("affiliate.scheme", string(SchemeREST)),
			attribute.Int("affiliate.limit", req.Limit),
		))
	defer span.End()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		if !errors.Is(err, ErrAuthentication) {
			err = fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return nil, spanError(span, fmt.Errorf("getting access token: %w", err))
	}

	resp, err := c.do(ctx, "search", func(ctx context.Context) (*http.Request, error) {
		ts := Timestamp(c.nowFunc())
		q := url.Values{}
		q.Set("app_id", c.creds.AppID)
		q.Set("access_token", token)
		q.Set("timestamp", ts)
		q.Set("sign", SearchSignature(c.creds, ProductSearchPath, ts, token))
		q.Set("keywords", req.Keyword)
		q.Set("page_size", strconv.Itoa(req.Limit))
		return http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.baseURL+ProductSearchPath+"?"+q.Encode(),
			http.NoBody,
		)
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	offers, err := parseRESTResponse(resp)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && rejectsToken(pe) {
			if tm, ok := c.tokens.(*TokenManager); ok {
				tm.Invalidate(token)
			}
		}
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.Int("affiliate.offers", len(offers)))
	return &SearchResponse{Offers: offers}, nil
}

func parseRESTResponse(resp *providerResponse) ([]domain.Offer, error) {
	var rr restSearchResponse
	decodeErr := json.Unmarshal(resp.body, &rr)

	if decodeErr == nil {
		for _, field := range []json.RawMessage{rr.Error, rr.Errors} {
			if code, msg, ok := providerErrorField(field); ok {
				if msg == "" {
					msg = rr.Message
				}
				return nil, &ProviderError{Status: resp.status, Code: code, Message: msg}
			}
		}
	}

	if resp.status < 200 || resp.status > 299 {
		return nil, &ProviderError{
			Status:  resp.status,
			Message: fmt.Sprintf("provider returned status %d", resp.status),
		}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: parsing search response: %w", ErrUpstream, decodeErr)
	}

	if rr.Data == nil {
		return []domain.Offer{}, nil
	}

	offers := make([]domain.Offer, 0, len(rr.Data.ProductOfferList))
	for i := range rr.Data.ProductOfferList {
		offers = append(offers, rr.Data.ProductOfferList[i].toOffer())
	}
	return offers, nil
}

// tokenErrorCodes are provider error codes that refuse the access token.
var tokenErrorCodes = map[string]struct{}{
	"error_auth": {},
	"10031":      {},
}

// rejectsToken reports whether the provider error indicates the access token
// itself was refused.
func rejectsToken(pe *ProviderError) bool {
	if pe.Status == http.StatusUnauthorized {
		return true
	}
	if _, ok := tokenErrorCodes[pe.Code]; ok {
		return true
	}
	msg := strings.ToLower(pe.Message)
	return strings.Contains(msg, "access_token") || strings.Contains(msg, "access token")
}
