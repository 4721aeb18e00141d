package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBedLabel(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  BedLabel
		expectErr bool
	}{
		{
			name:     "Canonical",
			raw:      "A-3-12-B",
			expected: BedLabel{Building: "A", Floor: 3, Room: "12", Bed: "B"},
		},
		{
			name:     "Lower case with spaces",
			raw:      "  a 3 12 b ",
			expected: BedLabel{Building: "A", Floor: 3, Room: "12", Bed: "B"},
		},
		{
			name:     "Floor suffix",
			raw:      "MELATI-2F-07-1",
			expected: BedLabel{Building: "MELATI", Floor: 2, Room: "7", Bed: "1"},
		},
		{
			name:     "Floor prefix and mixed separators",
			raw:      "C#LT4/101_A",
			expected: BedLabel{Building: "C", Floor: 4, Room: "101", Bed: "A"},
		},
		{
			name:     "Repeated separators",
			raw:      "B--1--2--C",
			expected: BedLabel{Building: "B", Floor: 1, Room: "2", Bed: "C"},
		},
		{
			name:      "Missing bed",
			raw:       "A-3-12",
			expectErr: true,
		},
		{
			name:      "Non-numeric floor",
			raw:       "A-X-12-B",
			expectErr: true,
		},
		{
			name:      "Floor zero",
			raw:       "A-0-12-B",
			expectErr: true,
		},
		{
			name:      "Empty",
			raw:       "",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseBedLabel(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, parsed)
			}
		})
	}
}

func TestBedLabelString(t *testing.T) {
	parsed, err := ParseBedLabel("a 3f 012 b")
	assert.NoError(t, err)
	assert.Equal(t, "A-3-12-B", parsed.String())
}

func TestParseOccupancyQR(t *testing.T) {
	const code = "6f1c2a9e-4b7d-4d3e-9a51-0c2f8e7b1d44"

	testCases := []struct {
		name      string
		raw       string
		expectErr bool
	}{
		{name: "Ticket payload", raw: "DORMOCC:" + code},
		{name: "Lower case prefix", raw: "dormocc:" + code},
		{name: "Bare code", raw: " " + code + " "},
		{name: "Upper case code", raw: "DORMOCC:6F1C2A9E-4B7D-4D3E-9A51-0C2F8E7B1D44"},
		{name: "URL", raw: "https://dorm.example.com/scan?code=" + code},
		{name: "URL without code", raw: "https://dorm.example.com/scan", expectErr: true},
		{name: "Wrong prefix", raw: "LAUNDRY:" + code, expectErr: true},
		{name: "Garbage", raw: "DORMOCC:not-a-code", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseOccupancyQR(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, code, got)
		})
	}
}
