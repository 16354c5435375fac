package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultTimeout = 30 * time.Second
	maxCachedSize  = 1 << 20 // only cache documents up to 1MiB
)

// Client talks to an IPFS node over its HTTP API. Fetched documents are
// cached by hash; content addressing makes them immutable, so the cache
// never serves stale bytes.
type Client struct {
	client  *http.Client
	cache   *cache.Cache
	apiAddr string
}

func New(apiAddr string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	return &Client{
		client:  &httpClient,
		cache:   cache.New(10*time.Minute, 15*time.Minute),
		apiAddr: apiAddr,
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add pins the document and returns its content hash.
func (c *Client) Add(ctx context.Context, data []byte) (string, error) {

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "document")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiAddr+"/api/v0/add?pin=true", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result addResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}

	return result.Hash, nil
}

// Cat fetches the document bytes for a content hash.
func (c *Client) Cat(ctx context.Context, hash string) ([]byte, error) {

	cacheKey := "content:" + hash
	if x, found := c.cache.Get(cacheKey); found {
		if data, ok := x.([]byte); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiAddr+"/api/v0/cat?arg="+url.QueryEscape(hash), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(data) <= maxCachedSize {
		c.cache.Set(cacheKey, data, cache.DefaultExpiration)
	}

	return data, nil
}
