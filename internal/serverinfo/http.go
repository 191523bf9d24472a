package serverinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPProvider resolves room connection info via a JSON HTTP endpoint. No
// third-party JSON library appears anywhere in the example pack — every
// JSON-over-HTTP component there (e.g. a gateway health endpoint) uses
// encoding/json directly, so this does the same.
type HTTPProvider struct {
	// BaseURL is queried as BaseURL + "?room_id=<roomID>".
	BaseURL string
	Client  *http.Client
}

type httpResponse struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
}

// Resolve implements Provider.
func (p HTTPProvider) Resolve(ctx context.Context, roomID int64) (Info, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s?room_id=%d", p.BaseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if body.Host == "" {
		return Info{}, fmt.Errorf("%w: empty host in response", ErrUnavailable)
	}

	return Info{Host: body.Host, Port: body.Port, Token: body.Token}, nil
}
