// Package storage handles request attachments. The core only persists file
// references; the bytes live behind the hosted bucket API.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"homeservices/internal/workflow"
	"homeservices/pkg/config"
)

// ObjectStore is the collaborator contract: bucket listing, upload, delete.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

type ObjectInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BucketClient talks to the hosted storage REST API with the service key.
type BucketClient struct {
	HTTPClient *http.Client
	BaseURL    string
	ServiceKey string
	Bucket     string
}

func NewBucketClient(cfg config.StorageConfig) *BucketClient {
	return &BucketClient{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		BaseURL:    cfg.BaseURL,
		ServiceKey: cfg.ServiceKey,
		Bucket:     cfg.Bucket,
	}
}

func (c *BucketClient) ready() error {
	if c.BaseURL == "" || c.ServiceKey == "" {
		return workflow.E(workflow.KindConfiguration, "object storage is not configured")
	}
	return nil
}

func (c *BucketClient) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/object/list/%s", c.BaseURL, url.PathEscape(c.Bucket))
	payload, _ := json.Marshal(map[string]string{"prefix": prefix})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, workflow.Wrap(workflow.KindUpstreamUnavailable, "object storage unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, workflow.E(workflow.KindUpstreamUnavailable,
			fmt.Sprintf("object storage list failed: status=%d", resp.StatusCode))
	}
	var out []ObjectInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, workflow.Wrap(workflow.KindUpstreamUnavailable, "object storage returned an unexpected shape", err)
	}
	return out, nil
}

// Upload stores the object and returns its public URL reference.
func (c *BucketClient) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	u := fmt.Sprintf("%s/object/%s/%s", c.BaseURL, url.PathEscape(c.Bucket), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", workflow.Wrap(workflow.KindUpstreamUnavailable, "object storage unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", workflow.E(workflow.KindUpstreamUnavailable,
			fmt.Sprintf("object storage upload failed: status=%d", resp.StatusCode))
	}
	return fmt.Sprintf("%s/object/public/%s/%s", c.BaseURL, url.PathEscape(c.Bucket), path), nil
}

func (c *BucketClient) Delete(ctx context.Context, path string) error {
	if err := c.ready(); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/object/%s/%s", c.BaseURL, url.PathEscape(c.Bucket), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return workflow.Wrap(workflow.KindUpstreamUnavailable, "object storage unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return workflow.E(workflow.KindUpstreamUnavailable,
			fmt.Sprintf("object storage delete failed: status=%d", resp.StatusCode))
	}
	return nil
}
