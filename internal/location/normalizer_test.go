package location

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsrisk/internal/core"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	testCases := []struct {
		raw       string
		wantClean string
		wantType  core.LocationType
	}{
		{"", "UNKNOWN", core.LocationTypeUnknown},
		{"Unknown", "UNKNOWN", core.LocationTypeUnknown},
		{"Karachi", "Karachi", core.LocationTypeCityOrCountry},
		{"  karachi,  pakistan!! ", "Karachi Pakistan", core.LocationTypeCityOrCountry},
		{"Khan", "UNKNOWN", core.LocationTypeUnknown},
		{"Sharapova", "UNKNOWN", core.LocationTypeUnknown},
		{"Manchester City", "UNKNOWN", core.LocationTypeUnknown},
		{"Punjab University", "UNKNOWN", core.LocationTypeUnknown},
		{"Asia Cup", "UNKNOWN", core.LocationTypeUnknown},
		{"Asia", "Asia", core.LocationTypeRegion},
		{"middle east", "Middle East", core.LocationTypeRegion},
		{"South Asia", "South Asia", core.LocationTypeRegion},
		{"Monday Lahore", "Lahore", core.LocationTypeCityOrCountry},
		{"strong percent Dubai", "Dubai", core.LocationTypeCityOrCountry},
		{"Tuesday", "UNKNOWN", core.LocationTypeUnknown},
		{"Uk", "UNKNOWN", core.LocationTypeUnknown},
		{"2015 Peru", "Peru", core.LocationTypeCityOrCountry},
		{"Cupertino", "Cupertino", core.LocationTypeCityOrCountry},
		{"São Paulo", "São Paulo", core.LocationTypeCityOrCountry},
		{"Zürich", "Zürich", core.LocationTypeCityOrCountry},
		{"Göl", "UNKNOWN", core.LocationTypeUnknown},
	}

	for _, tc := range testCases {
		clean, kind := n.Normalize(tc.raw)
		assert.Equal(t, tc.wantClean, clean, "input %q", tc.raw)
		assert.Equal(t, tc.wantType, kind, "input %q", tc.raw)
	}
}
