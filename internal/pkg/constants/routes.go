package constants

// Route group prefixes
const (
	APIRoute     = "/api"
	ConnectRoute = "/connect"
	MetricsRoute = "/metrics"
)
