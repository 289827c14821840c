// Package classes maps raw detector labels onto the canonical device-class
// vocabulary used by the library index and the 3D viewer.
package classes

import (
	"slices"
	"strings"
)

// aliases maps lower-cased detector labels to canonical class names.
// Furniture entries map to themselves so they never reach the whitelist.
var aliases = map[string]string{
	"notebook":     "laptop",
	"screen":       "monitor",
	"tv":           "monitor",
	"cell phone":   "phone",
	"mobile":       "phone",
	"cellphone":    "phone",
	"smartphone":   "phone",
	"desktop":      "pc_tower",
	"pc":           "pc_tower",
	"computer":     "pc_tower",
	"servers":      "server",
	"monitors":     "monitor",
	"laptops":      "laptop",
	"routers":      "router",
	"switches":     "switch",
	"dining table": "table",
	"table":        "table",
	"chair":        "chair",
}

// whitelist holds the device classes eligible for 3D visualization.
var whitelist = []string{
	"laptop", "router", "monitor", "keyboard", "mouse",
	"switch", "server", "pc_tower", "printer", "phone",
	"tablet", "projector", "camera", "firewall", "access_point",
}

// Normalize lower-cases and trims raw, then resolves it through the alias
// table. Unknown labels are returned trimmed and lower-cased.
func Normalize(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := aliases[n]; ok {
		return canonical
	}
	return n
}

// IsRelevant reports whether raw normalizes to a whitelisted device class.
func IsRelevant(raw string) bool {
	return slices.Contains(whitelist, Normalize(raw))
}

// Whitelist returns a copy of the relevant device classes.
func Whitelist() []string {
	return slices.Clone(whitelist)
}
