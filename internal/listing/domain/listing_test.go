package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListingType(t *testing.T) {
	cases := []struct {
		in   string
		want ListingType
		ok   bool
	}{
		{"plot", TypePlot, true},
		{"Ranch", TypeRanch, true},
		{"  COMMERCIAL-LAND ", TypeCommercialLand, true},
		{"residential-plot", TypeResidentialPlot, true},
		{"subdivision-ready", TypeSubdivisionReady, true},
		{"title-deed-ready", TypeTitleDeedReady, true},
		{"apartment", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseListingType(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseListingStatus(t *testing.T) {
	cases := []struct {
		in   string
		want ListingStatus
		ok   bool
	}{
		{"available", StatusAvailable, true},
		{"SOLD", StatusSold, true},
		{" Reserved ", StatusReserved, true},
		{"pending", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseListingStatus(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
