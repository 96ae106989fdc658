package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// SuggestionLookbackHours is the default time window, in hours,
	// scanned by the merge suggestion generators.
	SuggestionLookbackHours float64 `mapstructure:"suggestion_lookback_hours" default:"1.2"`
}
