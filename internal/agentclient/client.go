// Package agentclient fetches a host's catalog from a pullconf-server
// over HTTPS (the agent's half of the server/agent wire contract
// defined by internal/catalog).
package agentclient

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"pullconf/internal/catalog"
)

// Client fetches one host's catalog from a pullconf-server.
type Client struct {
	serverURL string
	apiKey    string
	http      *http.Client
}

// New builds a Client. If caCertPath is non-empty, the returned client
// trusts only that CA (grounded in the teacher's mTLS dial pattern for
// outbound service clients); otherwise it uses the system trust store.
func New(serverURL, apiKey, caCertPath string, timeout time.Duration) (*Client, error) {
	transport := &http.Transport{}
	if caCertPath != "" {
		pem, err := os.ReadFile(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no usable certificates in %s", caCertPath)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		http:      &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

// FetchCatalog retrieves and decodes hostname's current catalog.
func (c *Client) FetchCatalog(hostname string) (*catalog.Catalog, error) {
	url := fmt.Sprintf("%s/api/clients/%s", c.serverURL, hostname)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var cat catalog.Catalog
	if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return &cat, nil
}
