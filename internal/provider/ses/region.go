package ses

import (
	"sort"
	"strings"
)

// FallbackRegion is used when the configured region is not recognised.
const FallbackRegion = "us-west-1"

var knownRegions = map[string]struct{}{
	"af-south-1":     {},
	"ap-northeast-1": {},
	"ap-northeast-2": {},
	"ap-northeast-3": {},
	"ap-south-1":     {},
	"ap-south-2":     {},
	"ap-southeast-1": {},
	"ap-southeast-2": {},
	"ap-southeast-3": {},
	"ap-southeast-5": {},
	"ca-central-1":   {},
	"ca-west-1":      {},
	"cn-north-1":     {},
	"cn-northwest-1": {},
	"eu-central-1":   {},
	"eu-central-2":   {},
	"eu-north-1":     {},
	"eu-south-1":     {},
	"eu-south-2":     {},
	"eu-west-1":      {},
	"eu-west-2":      {},
	"eu-west-3":      {},
	"il-central-1":   {},
	"me-central-1":   {},
	"me-south-1":     {},
	"sa-east-1":      {},
	"us-east-1":      {},
	"us-east-2":      {},
	"us-gov-east-1":  {},
	"us-gov-west-1":  {},
	"us-west-1":      {},
	"us-west-2":      {},
}

// ResolveRegion maps a region name to a known SES region. It reports false
// and returns FallbackRegion when the name is not in the table.
func ResolveRegion(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := knownRegions[name]; ok {
		return name, true
	}
	return FallbackRegion, false
}

// Regions lists the known region names in sorted order.
func Regions() []string {
	regions := make([]string, 0, len(knownRegions))
	for r := range knownRegions {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}
