package sessions

import "strings"

// bundleNames maps the macOS bundle identifiers that show up most often in
// usage logs to their display names. Anything not listed falls back to a
// best-effort transform of the identifier.
var bundleNames = map[string]string{
	"com.apple.Safari":              "Safari",
	"com.apple.Terminal":            "Terminal",
	"com.apple.dt.Xcode":            "Xcode",
	"com.apple.mail":                "Mail",
	"com.apple.iCal":                "Calendar",
	"com.apple.Notes":               "Notes",
	"com.apple.MobileSMS":           "Messages",
	"com.apple.finder":              "Finder",
	"com.apple.Preview":             "Preview",
	"com.apple.TextEdit":            "TextEdit",
	"com.apple.TV":                  "Apple TV",
	"com.apple.iWork.Keynote":       "Keynote",
	"com.google.Chrome":             "Chrome",
	"com.google.chrome.for.testing": "Chrome Test",
	"com.brave.Browser":             "Brave",
	"org.mozilla.firefox":           "Firefox",
	"com.microsoft.edgemac":         "Edge",
	"com.microsoft.VSCode":          "VS Code",
	"com.microsoft.teams":           "Teams",
	"com.todesktop.230313mzl4w4u92": "Cursor",
	"com.tinyspeck.slackmacgap":     "Slack",
	"com.spotify.client":            "Spotify",
	"us.zoom.xos":                   "Zoom",
	"net.whatsapp.WhatsApp":         "WhatsApp",
	"ru.keepcoder.Telegram":         "Telegram",
	"com.tdesktop.Telegram":         "Telegram",
	"com.telegram.desktop":          "Telegram",
	"com.hnc.Discord":               "Discord",
	"com.facebook.archon":           "Messenger",
	"com.twitter.twitter-mac":       "Twitter",
}

// UnknownApp is the category used for records without an identifier.
const UnknownApp = "Unknown"

// CanonicalName converts a bundle identifier into a human-readable
// application name. Unmapped identifiers keep their last dot-separated
// segment, title-cased with separators expanded.
func CanonicalName(bundleID string) string {
	if strings.TrimSpace(bundleID) == "" {
		return UnknownApp
	}
	if name, ok := bundleNames[bundleID]; ok {
		return name
	}

	parts := strings.Split(bundleID, ".")
	if len(parts) < 2 {
		return bundleID
	}

	last := parts[len(parts)-1]
	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")
	return titleCase(last)
}

// titleCase upper-cases the first letter of each space-separated word.
// strings.Title is deprecated and pulling in x/text for ASCII bundle-id
// segments is not worth it.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
