package models

// Coordinate is a latitude/longitude pair. Values are forwarded to the
// forecast API as received; out-of-range coordinates are not rejected.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NamedLocation is a coordinate with a human-readable display name.
type NamedLocation struct {
	Coordinate
	Label string `json:"label"`
}

// CurrentConditions is the "current" block of an Open-Meteo forecast
// response. It is cached and returned verbatim, without unit conversion.
type CurrentConditions struct {
	Time               string  `json:"time"`
	Temperature2m      float64 `json:"temperature_2m"`
	RelativeHumidity2m float64 `json:"relative_humidity_2m"`
	WindSpeed10m       float64 `json:"wind_speed_10m"`
	WeatherCode        int     `json:"weather_code"`
}

// WeatherReport is the response body of GET /api/weather.
type WeatherReport struct {
	Success      bool    `json:"success"`
	Query        string  `json:"query"`
	Location     string  `json:"location"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TemperatureC float64 `json:"temperatureC"`
	Humidity     float64 `json:"humidity"`
	WindSpeedKmh float64 `json:"windSpeedKmh"`
	WeatherCode  int     `json:"weatherCode"`
	Condition    string  `json:"condition"`
	Time         string  `json:"time"`
}
