package domain

import "fmt"

// MCCLabel carries display names for one mobile country code.
type MCCLabel struct {
	Country          string
	AllNetworksLabel string
}

// MCCDirectory maps MCCs to display labels. It is injected wherever labels
// are derived so new MCCs are configuration, not code changes. It is used
// for labeling only, never for routing decisions.
type MCCDirectory map[int]MCCLabel

// DefaultMCCDirectory covers the MCCs the platform currently routes to.
func DefaultMCCDirectory() MCCDirectory {
	return MCCDirectory{
		404: {Country: "India", AllNetworksLabel: "India (All Networks)"},
		405: {Country: "India", AllNetworksLabel: "India (All Networks)"},
		454: {Country: "Hong Kong", AllNetworksLabel: "Hong Kong (All Networks)"},
	}
}

// CountryFor returns the country name for an MCC, or "Unknown".
func (d MCCDirectory) CountryFor(mcc int) string {
	if label, ok := d[mcc]; ok {
		return label.Country
	}
	return "Unknown"
}

// AllNetworksFor returns the wildcard-tier display label for an MCC.
func (d MCCDirectory) AllNetworksFor(mcc int) string {
	if label, ok := d[mcc]; ok {
		return label.AllNetworksLabel
	}
	return fmt.Sprintf("MCC-%d (All Networks)", mcc)
}
