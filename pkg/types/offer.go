// Package domain defines the core types shared by the kompara server and CLI.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString holds a scalar the provider may encode either as a JSON string
// or as a JSON number (prices, rates, IDs). It always marshals as a string.
type FlexString string

// UnmarshalJSON accepts a JSON string, number, or null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding string value: %w", err)
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding numeric value: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the raw value.
func (f FlexString) String() string {
	return string(f)
}

// Offer is a single product offer returned by the affiliate marketplace.
// Field names follow the provider's GraphQL node fields so GraphQL results
// pass through without renaming; REST results are mapped onto the same shape.
type Offer struct {
	ItemID         FlexString `json:"itemId,omitempty"         doc:"Provider item identifier"`
	ProductName    string     `json:"productName"              doc:"Product title"                      example:"Fralda Pampers Confort Sec G 60 unidades"`
	Description    string     `json:"description,omitempty"    doc:"Product description"`
	ShopName       string     `json:"shopName,omitempty"       doc:"Seller shop name"`
	OriginPrice    FlexString `json:"originPrice,omitempty"    doc:"List price before discount"         example:"119.90"`
	SalePrice      FlexString `json:"salePrice,omitempty"      doc:"Current sale price"                 example:"89.90"`
	PriceMin       FlexString `json:"priceMin,omitempty"       doc:"Lowest variant price"               example:"79.90"`
	PriceMax       FlexString `json:"priceMax,omitempty"       doc:"Highest variant price"              example:"99.90"`
	Sales          FlexString `json:"sales,omitempty"          doc:"Units sold"                         example:"1520"`
	RatingStar     FlexString `json:"ratingStar,omitempty"     doc:"Average rating, 0 to 5"             example:"4.9"`
	ImageURL       string     `json:"imageUrl,omitempty"       doc:"Product image URL"`
	CommissionRate FlexString `json:"commissionRate,omitempty" doc:"Affiliate commission rate"          example:"0.07"`
	Commission     FlexString `json:"commission,omitempty"     doc:"Affiliate commission amount"        example:"6.29"`
	MarketingLink  string     `json:"marketingLink"            doc:"Outbound affiliate link"`
}

// Price returns the price shown to buyers: the sale price when present,
// otherwise the origin price.
func (o *Offer) Price() string {
	if o.SalePrice != "" {
		return o.SalePrice.String()
	}
	return o.OriginPrice.String()
}
