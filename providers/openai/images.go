package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var validImageSizes = map[string]bool{
	"1024x1024": true,
	"512x512":   true,
	"256x256":   true,
}

// GenerateImages asks the image endpoint for n renderings of prompt and
// returns their URLs.
func (c *Client) GenerateImages(ctx context.Context, prompt string, n int, size string, timeout time.Duration) ([]string, error) {
	if prompt == "" {
		return nil, fmt.Errorf("openai: empty image prompt")
	}
	if n <= 0 {
		n = 1
	}
	if n > 10 {
		return nil, fmt.Errorf("openai: too many images requested: %d", n)
	}
	if size == "" {
		size = "1024x1024"
	}
	if !validImageSizes[size] {
		return nil, fmt.Errorf("openai: invalid image size %q", size)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body := map[string]any{
		"prompt": prompt,
		"n":      n,
		"size":   size,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/images/generations", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai images http %d: %s", resp.StatusCode, snippet(raw))
	}

	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("openai images: decode: %w", err)
	}
	urls := make([]string, 0, len(out.Data))
	for _, d := range out.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	return urls, nil
}
