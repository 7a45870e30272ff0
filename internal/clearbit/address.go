package clearbit

import "strings"

const addressSeparator = ", "

// FormatAddress joins the present components of a location in street-to-country order.
// Absent and empty components are skipped; there is no trailing separator.
func FormatAddress(g Geo) string {
	components := []Field[string]{
		g.StreetNumber,
		g.StreetName,
		g.City,
		g.PostalCode,
		g.State,
		g.Country,
	}

	parts := make([]string, 0, len(components))
	for _, c := range components {
		v, err := c.Get()
		if err != nil {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, addressSeparator)
}
