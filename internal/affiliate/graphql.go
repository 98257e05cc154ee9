package affiliate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/donaldgifford/kompara/pkg/types"
)

// GraphQLPath is the GraphQL endpoint.
const GraphQLPath = "/graphql"

const productOfferQuery = `query getProductOffers($keyword: String!, $limit: Int) {
  productOfferV2(params: {keyword: $keyword, limit: $limit}) {
    nodes {
      itemId
      productName
      description
      shopName
      originPrice
      salePrice
      priceMin
      priceMax
      sales
      ratingStar
      imageUrl
      commissionRate
      commission
      marketingLink
    }
  }
}`

// GraphQLClient implements Searcher against the provider's GraphQL endpoint,
// signing each call with appId + timestamp + body + secret.
type GraphQLClient struct {
	creds Credentials
	clientConfig
}

// NewGraphQLClient creates a GraphQL-scheme Searcher.
func NewGraphQLClient(creds Credentials, opts ...ClientOption) *GraphQLClient {
	return &GraphQLClient{
		creds:        creds,
		clientConfig: newClientConfig(opts),
	}
}

type graphQLRequest struct {
	Query     string           `json:"query"`
	Variables graphQLVariables `json:"variables"`
}

type graphQLVariables struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit,omitempty"`
}

type graphQLResponse struct {
	Data *struct {
		ProductOfferV2 *struct {
			Nodes []domain.Offer `json:"nodes"`
		} `json:"productOfferV2"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
	Error  json.RawMessage `json:"error"`
}

// Search implements Searcher.Search.
func (c *GraphQLClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "affiliate.search",
		trace.WithAttributes(
			attribute.String("affiliate.scheme", string(SchemeGraphQL)),
			attribute.Int("affiliate.limit", req.Limit),
		))
	defer span.End()

	// The body is marshalled once; the same bytes are signed and sent.
	body, err := json.Marshal(graphQLRequest{
		Query:     productOfferQuery,
		Variables: graphQLVariables{Keyword: req.Keyword, Limit: req.Limit},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding GraphQL request: %w", err)
	}

	resp, err := c.do(ctx, "graphql", func(ctx context.Context) (*http.Request, error) {
		ts := Timestamp(c.nowFunc())
		httpReq, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.baseURL+GraphQLPath,
			bytes.NewReader(body),
		)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set(
			"Authorization",
			AuthorizationHeader(c.creds.AppID, ts, GraphQLSignature(c.creds, ts, body)),
		)
		return httpReq, nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	offers, err := parseGraphQLResponse(resp)
	if err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.Int("affiliate.offers", len(offers)))
	return &SearchResponse{Offers: offers}, nil
}

func parseGraphQLResponse(resp *providerResponse) ([]domain.Offer, error) {
	var gr graphQLResponse
	decodeErr := json.Unmarshal(resp.body, &gr)

	// A GraphQL error payload is reported even on a non-2xx status.
	if decodeErr == nil {
		for _, field := range []json.RawMessage{gr.Errors, gr.Error} {
			if code, msg, ok := providerErrorField(field); ok {
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
		return nil, fmt.Errorf("%w: parsing GraphQL response: %w", ErrUpstream, decodeErr)
	}

	if gr.Data == nil || gr.Data.ProductOfferV2 == nil || gr.Data.ProductOfferV2.Nodes == nil {
		return []domain.Offer{}, nil
	}
	return gr.Data.ProductOfferV2.Nodes, nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
