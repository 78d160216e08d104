package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

type wireModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

// ListModels returns the names of the Gemini models the given key can call
// through generateContent, in discovery order, with the "models/" prefix
// stripped. Follows pagination until the backend runs out of pages.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	var names []string
	pageToken := ""

	for {
		u := fmt.Sprintf("%s/%s/models?key=%s&pageSize=200", c.baseURL, apiVersion, url.QueryEscape(apiKey))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gemini: list models: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("gemini: list models: read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, apiError("list-models", resp.StatusCode, body)
		}

		var page wireModelList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("gemini: list models: unmarshal: %w", err)
		}

		for _, m := range page.Models {
			if !supportsGenerate(m.SupportedGenerationMethods) {
				continue
			}
			name := strings.TrimPrefix(m.Name, "models/")
			if strings.Contains(name, "gemini") {
				names = append(names, name)
			}
		}

		if page.NextPageToken == "" {
			return names, nil
		}
		pageToken = page.NextPageToken
	}
}

func supportsGenerate(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}
