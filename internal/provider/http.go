package provider

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// newRetryingClient builds the HTTP client shared by the adapters that speak
// raw REST. Retries cover transient transport failures only; 4xx responses
// pass through so the error taxonomy stays accurate.
func newRetryingClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil
	return rc.StandardClient()
}

func containsStatus(err error, status string) bool {
	return err != nil && strings.Contains(err.Error(), status)
}

// trimHost normalizes a configured host URL for path concatenation.
func trimHost(host string) string {
	return strings.TrimSuffix(strings.TrimSpace(host), "/")
}

// maskEmail hides the local part of an address, keeping enough to be
// recognizable in the user-map UI.
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	return fmt.Sprintf("%c*****@%s", local[0], domain)
}
