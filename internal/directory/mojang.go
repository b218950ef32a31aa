package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMojangURL = "https://api.mojang.com"

// Mojang queries the public profile API.
type Mojang struct {
	BaseURL string
	HTTP    *http.Client
}

func NewMojang(baseURL string, timeout time.Duration) *Mojang {
	if baseURL == "" {
		baseURL = DefaultMojangURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Mojang{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (m *Mojang) Resolve(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNotFound
	}
	u := m.BaseURL + "/users/profiles/minecraft/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("mojang lookup %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("mojang lookup %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var p profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&p); err != nil {
		return "", fmt.Errorf("mojang lookup %s: decode: %w", name, err)
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return "", fmt.Errorf("mojang lookup %s: bad id %q: %w", name, p.ID, err)
	}
	return id.String(), nil
}
