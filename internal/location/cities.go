package location

import (
	"sort"
	"strings"

	"github.com/totallytravels/backend/internal/models"
)

// cities is the offline fallback table used when no free-text query is
// supplied. Keys match the ?city= values the frontend sends.
var cities = map[string]models.NamedLocation{
	"lahore": {Coordinate: models.Coordinate{Latitude: 31.5204, Longitude: 74.3587}, Label: "Lahore, Pakistan"},
	"hunza":  {Coordinate: models.Coordinate{Latitude: 36.3167, Longitude: 74.65}, Label: "Hunza, Pakistan"},
	"skardu": {Coordinate: models.Coordinate{Latitude: 35.2976, Longitude: 75.6333}, Label: "Skardu, Pakistan"},
	"swat":   {Coordinate: models.Coordinate{Latitude: 35.222, Longitude: 72.4258}, Label: "Swat, Pakistan"},
	"neelum": {Coordinate: models.Coordinate{Latitude: 34.5869, Longitude: 73.907}, Label: "Neelum Valley, Pakistan"},
}

// KnownCity looks up a city key (lower-cased, trimmed) in the static table.
func KnownCity(key string) (models.NamedLocation, bool) {
	loc, ok := cities[strings.ToLower(strings.TrimSpace(key))]
	return loc, ok
}

// CityKeys returns the known city keys in sorted order. Used to seed the
// per-city metrics allow-list.
func CityKeys() []string {
	keys := make([]string, 0, len(cities))
	for k := range cities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
