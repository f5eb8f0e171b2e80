package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hr-workflow-api/internal/models"
)

func TestSplitPhone(t *testing.T) {
	cases := []struct {
		raw  string
		want PhoneNumber
	}{
		{"+91 98765 43210", PhoneNumber{CountryCode: "+91", Number: "9876543210"}},
		{"+919876543210", PhoneNumber{CountryCode: "+91", Number: "9876543210"}},
		{"+19876543210", PhoneNumber{CountryCode: "+1", Number: "9876543210"}},
		{"98765-43210", PhoneNumber{CountryCode: "+91", Number: "9876543210"}},
		{"+9876543210", PhoneNumber{CountryCode: "+91", Number: "9876543210"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SplitPhone(tc.raw, "+91"), tc.raw)
	}
}

func TestDecomposePhonesSkipsNonStrings(t *testing.T) {
	existing := map[string]any{"countryCode": "+44", "number": "2071234567"}
	data := models.Fields{"mobileNumber": existing, "alternateMobileNumber": "  "}
	out := decomposePhones(data, []string{"mobileNumber", "alternateMobileNumber", "missing"}, "+91")

	assert.Equal(t, existing, out["mobileNumber"])
	assert.Equal(t, "  ", out["alternateMobileNumber"])
	_, ok := out["missing"]
	assert.False(t, ok)
}

func TestDecomposePhonesAcceptsNumericValues(t *testing.T) {
	data := models.Fields{"mobileNumber": json.Number("9876543210")}
	out := decomposePhones(data, []string{"mobileNumber"}, "+91")
	assert.Equal(t, map[string]any{"countryCode": "+91", "number": "9876543210"}, out["mobileNumber"])
}
