package domain

import (
	"strings"
	"time"
)

type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusSold      ListingStatus = "sold"
	StatusReserved  ListingStatus = "reserved"
)

type ListingType string

const (
	TypeResidentialPlot  ListingType = "residential-plot"
	TypeCommercialLand   ListingType = "commercial-land"
	TypeRanch            ListingType = "ranch"
	TypePlot             ListingType = "plot"
	TypeSubdivisionReady ListingType = "subdivision-ready"
	TypeTitleDeedReady   ListingType = "title-deed-ready"
)

// MaxImagesPerListing is the hard cap on images per listing. The Mongo
// collection schema enforces the same limit.
const MaxImagesPerListing = 10

// ParseListingType matches case-insensitively and returns the lowercase
// canonical form.
func ParseListingType(s string) (ListingType, bool) {
	switch t := ListingType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeResidentialPlot, TypeCommercialLand, TypeRanch, TypePlot,
		TypeSubdivisionReady, TypeTitleDeedReady:
		return t, true
	}
	return "", false
}

func ParseListingStatus(s string) (ListingStatus, bool) {
	switch st := ListingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusSold, StatusReserved:
		return st, true
	}
	return "", false
}

// Listing is the sole domain entity: a land parcel offered for sale.
//
// Images and MediaIDs are parallel lists: MediaIDs[i] is the media-host
// identifier for Images[i] and is what remote deletion needs. The two are
// only ever modified together.
type Listing struct {
	ID                    string        `json:"id"`
	Title                 string        `json:"title"`
	Location              string        `json:"location"`
	Type                  ListingType   `json:"type"`
	Status                ListingStatus `json:"status"`
	Price                 string        `json:"price"`
	PriceNum              float64       `json:"priceNum"`
	PlotSize              string        `json:"plotSize"`
	TitleType             string        `json:"titleType,omitempty"`
	Amenities             []string      `json:"amenities"`
	VerificationChecklist []string      `json:"verificationChecklist"`
	DocumentsAvailable    []string      `json:"documentsAvailable"`
	MapLink               string        `json:"mapLink,omitempty"`
	Description           string        `json:"description,omitempty"`
	Whatsapp              string        `json:"whatsapp"`
	Images                []string      `json:"images"`
	MediaIDs              []string      `json:"mediaIds"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

// Filter narrows List results. Location is matched case-insensitively as a
// substring; empty fields are ignored.
type Filter struct {
	Status   ListingStatus
	Type     ListingType
	Location string
}
