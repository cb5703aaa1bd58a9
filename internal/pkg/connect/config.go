package connect

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nmarkov/adpulse/internal/pkg/env"
)

// upstream timeout for every provider HTTP call.
const upstreamTimeout = 30 * time.Second

// HTTPClient is shared by all adapters. Overridable in tests.
var HTTPClient = &http.Client{Timeout: upstreamTimeout}

// Credentials holds the app-level OAuth settings of one provider, read
// from the environment at startup.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// CredentialsFor reads <PREFIX>_CLIENT_ID, <PREFIX>_CLIENT_SECRET and
// builds the callback URL from PUBLIC_DOMAIN and the provider name.
func CredentialsFor(prefix, provider string) Credentials {
	return Credentials{
		ClientID:     env.GetEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: env.GetEnv(prefix+"_CLIENT_SECRET", ""),
		RedirectURL:  CallbackURL(provider),
	}
}

// CallbackURL returns the absolute redirect URI registered with the
// provider for the given platform name.
func CallbackURL(provider string) string {
	domain := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000")
	return fmt.Sprintf("%s/connect/%s/callback", domain, provider)
}
