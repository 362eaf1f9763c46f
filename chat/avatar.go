package chat

import (
	"math"
	"strings"
	"unicode/utf16"
)

// Palette is the fixed set of avatar background colours.
var Palette = [8]string{
	"#4F46E5", "#0D9488", "#F97316", "#10B981",
	"#EF4444", "#3B82F6", "#8B5CF6", "#EC4899",
}

// AvatarColor maps a sender name to a palette entry. The hash is
// h = 31*h + unit over UTF-16 code units, kept in float64 so that names
// hash exactly as they do in a browser. A name long enough to push the
// hash to infinity gets the first palette entry.
func AvatarColor(sender string) string {
	var h float64
	for _, u := range utf16.Encode([]rune(sender)) {
		// The conversion keeps 31*h rounded on its own, never fused with the add.
		h = float64(31*h) + float64(u)
	}
	if math.IsInf(h, 0) {
		return Palette[0]
	}
	return Palette[int(math.Abs(math.Mod(h, float64(len(Palette)))))]
}

// AvatarInitial returns the upper-cased first character of sender.
func AvatarInitial(sender string) string {
	for _, r := range sender {
		return strings.ToUpper(string(r))
	}
	return ""
}
