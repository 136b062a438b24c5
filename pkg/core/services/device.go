package services

import "strings"

// Device classes reported by DeviceBreakdown.
const (
	DeviceBot     = "Bot"
	DeviceTablet  = "Tablet"
	DeviceMobile  = "Mobile"
	DeviceDesktop = "Desktop"
	DeviceUnknown = "Unknown"
)

// ClassifyDevice maps a raw user-agent string to a coarse device class.
// Bots are checked first because many crawlers also advertise "mobile".
func ClassifyDevice(userAgent *string) string {
	if userAgent == nil || *userAgent == "" {
		return DeviceUnknown
	}
	ua := strings.ToLower(*userAgent)

	if strings.Contains(ua, "bot") || strings.Contains(ua, "spider") || strings.Contains(ua, "crawl") {
		return DeviceBot
	}
	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return DeviceTablet
	}
	if strings.Contains(ua, "iphone") || strings.Contains(ua, "android") || strings.Contains(ua, "mobile") {
		return DeviceMobile
	}
	return DeviceDesktop
}
