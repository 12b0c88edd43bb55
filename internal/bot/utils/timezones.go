package utils

import (
	"sort"
	"strings"
)

// zoneNames is a curated subset of the IANA database, grouped by the
// categories the timezone picker offers.
var zoneNames = []string{
	"Africa/Cairo", "Africa/Casablanca", "Africa/Johannesburg",
	"Africa/Lagos", "Africa/Nairobi",

	"America/Anchorage", "America/Argentina/Buenos_Aires", "America/Bogota",
	"America/Chicago", "America/Denver", "America/Halifax", "America/Lima",
	"America/Los_Angeles", "America/Mexico_City", "America/New_York",
	"America/Phoenix", "America/Santiago", "America/Sao_Paulo",
	"America/Toronto", "America/Vancouver",

	"Asia/Bangkok", "Asia/Dubai", "Asia/Hong_Kong", "Asia/Jakarta",
	"Asia/Jerusalem", "Asia/Karachi", "Asia/Kolkata", "Asia/Kuala_Lumpur",
	"Asia/Manila", "Asia/Seoul", "Asia/Shanghai", "Asia/Singapore",
	"Asia/Taipei", "Asia/Tokyo",

	"Atlantic/Azores", "Atlantic/Bermuda", "Atlantic/Canary",
	"Atlantic/Cape_Verde", "Atlantic/Reykjavik",

	"Australia/Adelaide", "Australia/Brisbane", "Australia/Darwin",
	"Australia/Melbourne", "Australia/Perth", "Australia/Sydney",

	"Europe/Amsterdam", "Europe/Athens", "Europe/Berlin", "Europe/Brussels",
	"Europe/Dublin", "Europe/Helsinki", "Europe/Istanbul", "Europe/Kyiv",
	"Europe/Lisbon", "Europe/London", "Europe/Madrid", "Europe/Moscow",
	"Europe/Oslo", "Europe/Paris", "Europe/Prague", "Europe/Rome",
	"Europe/Stockholm", "Europe/Vienna", "Europe/Warsaw", "Europe/Zurich",

	"Pacific/Auckland", "Pacific/Fiji", "Pacific/Guam", "Pacific/Honolulu",
	"Pacific/Port_Moresby", "Pacific/Tahiti",

	"US/Alaska", "US/Arizona", "US/Central", "US/Eastern", "US/Hawaii",
	"US/Mountain", "US/Pacific",

	"Etc/GMT-12", "Etc/GMT-11", "Etc/GMT-10", "Etc/GMT-9", "Etc/GMT-8",
	"Etc/GMT-7", "Etc/GMT-6", "Etc/GMT-5", "Etc/GMT-4", "Etc/GMT-3",
	"Etc/GMT-2", "Etc/GMT-1", "Etc/GMT", "Etc/GMT+1", "Etc/GMT+2",
	"Etc/GMT+3", "Etc/GMT+4", "Etc/GMT+5", "Etc/GMT+6", "Etc/GMT+7",
	"Etc/GMT+8", "Etc/GMT+9", "Etc/GMT+10", "Etc/GMT+11", "Etc/GMT+12",
}

// ZonesInCategory returns the sorted zone names belonging to one of the
// picker categories from constants.TimezoneCategories.
func ZonesInCategory(category string) []string {
	var zones []string
	for _, name := range zoneNames {
		if strings.HasPrefix(name, category) {
			zones = append(zones, name)
		}
	}
	sort.Strings(zones)
	return zones
}
