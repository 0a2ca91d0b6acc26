// Package validate normalizes raw listing field maps into typed values.
//
// Raw maps come from either a JSON body or a flattened multipart form, so
// every accessor tolerates both native types and their string encodings.
// Violations are collected across the whole pass rather than failing on the
// first one.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/domain"
)

const maxTitleLen = 200

var whatsappPattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// Defaults supplies values applied when optional-with-default fields are
// absent from the input.
type Defaults struct {
	Whatsapp string
}

type violations struct {
	list []domain.FieldViolation
}

func (v *violations) add(field, format string, args ...any) {
	v.list = append(v.list, domain.FieldViolation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *violations) err() error {
	if len(v.list) == 0 {
		return nil
	}
	return &domain.ValidationError{Violations: v.list}
}

// CreateListing validates every field required at creation and returns a
// listing skeleton without ID, images or timestamps. All violations are
// reported together.
func CreateListing(raw map[string]any, d Defaults) (*domain.Listing, error) {
	v := &violations{}

	title, _ := stringField(raw, "title")
	title = strings.TrimSpace(title)
	if title == "" {
		v.add("title", "is required")
	} else if utf8.RuneCountInString(title) > maxTitleLen {
		v.add("title", "must be at most %d characters", maxTitleLen)
	}

	location, _ := stringField(raw, "location")
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		v.add("location", "is required")
	}

	var listingType domain.ListingType
	if rawType, ok := stringField(raw, "type"); !ok || strings.TrimSpace(rawType) == "" {
		v.add("type", "is required")
	} else if t, ok := domain.ParseListingType(rawType); ok {
		listingType = t
	} else {
		v.add("type", "%q is not a recognized listing type", rawType)
	}

	status := domain.StatusAvailable
	if rawStatus, ok := stringField(raw, "status"); ok && strings.TrimSpace(rawStatus) != "" {
		if st, ok := domain.ParseListingStatus(rawStatus); ok {
			status = st
		} else {
			v.add("status", "%q is not a recognized status", rawStatus)
		}
	}

	var priceNum float64
	if n, present, ok := numberField(raw, "priceNum"); !present {
		v.add("priceNum", "is required")
	} else if !ok {
		v.add("priceNum", "must be a number")
	} else if n < 0 {
		v.add("priceNum", "must not be negative")
	} else {
		priceNum = n
	}

	price, _ := stringField(raw, "price")
	price = strings.TrimSpace(price)
	if !hasDigits(price) {
		price = FormatPrice(priceNum)
	}

	plotSize, _ := stringField(raw, "plotSize")
	plotSize = strings.TrimSpace(plotSize)
	if plotSize == "" {
		v.add("plotSize", "is required")
	}

	titleType, _ := stringField(raw, "titleType")

	whatsapp, _ := stringField(raw, "whatsapp")
	whatsapp = strings.TrimSpace(whatsapp)
	if whatsapp == "" {
		whatsapp = d.Whatsapp
	} else if !whatsappPattern.MatchString(whatsapp) {
		v.add("whatsapp", "must be 10 to 15 digits")
	}

	mapLink, _ := stringField(raw, "mapLink")
	mapLink = strings.TrimSpace(mapLink)
	if mapLink != "" && !isAbsoluteURL(mapLink) {
		v.add("mapLink", "must start with http:// or https://")
	}

	description, _ := stringField(raw, "description")

	amenities, _ := listField(raw, "amenities")
	checklist, _ := listField(raw, "verificationChecklist")
	documents, _ := listField(raw, "documentsAvailable")

	if err := v.err(); err != nil {
		return nil, err
	}

	return &domain.Listing{
		Title:                 title,
		Location:              location,
		Type:                  listingType,
		Status:                status,
		Price:                 price,
		PriceNum:              priceNum,
		PlotSize:              plotSize,
		TitleType:             strings.TrimSpace(titleType),
		Amenities:             amenities,
		VerificationChecklist: checklist,
		DocumentsAvailable:    documents,
		MapLink:               mapLink,
		Description:           description,
		Whatsapp:              whatsapp,
		Images:                []string{},
		MediaIDs:              []string{},
	}, nil
}

// Patch holds the subset of fields present in a partial update. Nil pointers
// mean "leave untouched". Images, when set, is the client's keep-list of
// existing image URLs.
type Patch struct {
	Title                 *string
	Location              *string
	Type                  *domain.ListingType
	Status                *domain.ListingStatus
	Price                 *string
	PriceNum              *float64
	PlotSize              *string
	TitleType             *string
	Amenities             *[]string
	VerificationChecklist *[]string
	DocumentsAvailable    *[]string
	MapLink               *string
	Description           *string
	Whatsapp              *string
	Images                *[]string
}

// PatchListing validates only the fields present in raw.
func PatchListing(raw map[string]any) (*Patch, error) {
	v := &violations{}
	p := &Patch{}

	if title, ok := stringField(raw, "title"); ok {
		title = strings.TrimSpace(title)
		if title == "" {
			v.add("title", "must not be empty")
		} else if utf8.RuneCountInString(title) > maxTitleLen {
			v.add("title", "must be at most %d characters", maxTitleLen)
		} else {
			p.Title = &title
		}
	}

	if location, ok := stringField(raw, "location"); ok {
		location = strings.ToLower(strings.TrimSpace(location))
		if location == "" {
			v.add("location", "must not be empty")
		} else {
			p.Location = &location
		}
	}

	if rawType, ok := stringField(raw, "type"); ok {
		if t, ok := domain.ParseListingType(rawType); ok {
			p.Type = &t
		} else {
			v.add("type", "%q is not a recognized listing type", rawType)
		}
	}

	if rawStatus, ok := stringField(raw, "status"); ok {
		if st, ok := domain.ParseListingStatus(rawStatus); ok {
			p.Status = &st
		} else {
			v.add("status", "%q is not a recognized status", rawStatus)
		}
	}

	if _, present := raw["priceNum"]; present {
		if n, _, ok := numberField(raw, "priceNum"); !ok {
			v.add("priceNum", "must be a number")
		} else if n < 0 {
			v.add("priceNum", "must not be negative")
		} else {
			p.PriceNum = &n
		}
	}

	if price, ok := stringField(raw, "price"); ok {
		price = strings.TrimSpace(price)
		p.Price = &price
	}

	if plotSize, ok := stringField(raw, "plotSize"); ok {
		plotSize = strings.TrimSpace(plotSize)
		if plotSize != "" {
			p.PlotSize = &plotSize
		}
	}

	if titleType, ok := stringField(raw, "titleType"); ok {
		titleType = strings.TrimSpace(titleType)
		p.TitleType = &titleType
	}

	if whatsapp, ok := stringField(raw, "whatsapp"); ok {
		whatsapp = strings.TrimSpace(whatsapp)
		if whatsapp == "" || whatsappPattern.MatchString(whatsapp) {
			p.Whatsapp = &whatsapp
		} else {
			v.add("whatsapp", "must be 10 to 15 digits")
		}
	}

	if mapLink, ok := stringField(raw, "mapLink"); ok {
		mapLink = strings.TrimSpace(mapLink)
		if mapLink == "" || isAbsoluteURL(mapLink) {
			p.MapLink = &mapLink
		} else {
			v.add("mapLink", "must start with http:// or https://")
		}
	}

	if description, ok := stringField(raw, "description"); ok {
		p.Description = &description
	}

	if amenities, ok := listField(raw, "amenities"); ok {
		p.Amenities = &amenities
	}
	if checklist, ok := listField(raw, "verificationChecklist"); ok {
		p.VerificationChecklist = &checklist
	}
	if documents, ok := listField(raw, "documentsAvailable"); ok {
		p.DocumentsAvailable = &documents
	}
	if images, ok := listField(raw, "images"); ok {
		p.Images = &images
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply merges the patch into listing. The images keep-list is deliberately
// not applied here; the orchestration layer reconciles it against the
// parallel media id list.
func (p *Patch) Apply(l *domain.Listing) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.PriceNum != nil {
		l.PriceNum = *p.PriceNum
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if !hasDigits(l.Price) {
		l.Price = FormatPrice(l.PriceNum)
	}
	if p.PlotSize != nil {
		l.PlotSize = *p.PlotSize
	}
	if p.TitleType != nil {
		l.TitleType = *p.TitleType
	}
	if p.Amenities != nil {
		l.Amenities = *p.Amenities
	}
	if p.VerificationChecklist != nil {
		l.VerificationChecklist = *p.VerificationChecklist
	}
	if p.DocumentsAvailable != nil {
		l.DocumentsAvailable = *p.DocumentsAvailable
	}
	if p.MapLink != nil {
		l.MapLink = *p.MapLink
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Whatsapp != nil && *p.Whatsapp != "" {
		l.Whatsapp = *p.Whatsapp
	}
}

// FormatPrice renders the canonical display form of a numeric price.
func FormatPrice(n float64) string {
	return "KES " + humanize.Commaf(n)
}

func hasDigits(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func stringField(raw map[string]any, key string) (string, bool) {
	val, ok := raw[key]
	if !ok || val == nil {
		return "", false
	}
	switch s := val.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// numberField accepts native JSON numbers as well as the string encodings a
// multipart form produces.
func numberField(raw map[string]any, key string) (n float64, present bool, ok bool) {
	val, exists := raw[key]
	if !exists || val == nil {
		return 0, false, false
	}
	switch num := val.(type) {
	case float64:
		return num, true, true
	case float32:
		return float64(num), true, true
	case int:
		return float64(num), true, true
	case int64:
		return float64(num), true, true
	case json.Number:
		f, err := num.Float64()
		return f, true, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		return f, true, err == nil
	default:
		return 0, true, false
	}
}

// listField accepts a native list or a JSON-encoded string of one. Invalid
// JSON yields an empty list, never a violation.
func listField(raw map[string]any, key string) ([]string, bool) {
	val, ok := raw[key]
	if !ok || val == nil {
		return []string{}, false
	}
	switch list := val.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out, true
	case string:
		var out []string
		if err := json.Unmarshal([]byte(list), &out); err != nil || out == nil {
			return []string{}, true
		}
		return out, true
	default:
		return []string{}, true
	}
}
