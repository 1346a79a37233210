package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/infrastructure/resilience"
)

// Client uploads file bytes to an IPFS node's add endpoint and returns
// the resulting CID. Single attempt, no chunking or resumability.
type Client struct {
	addURL     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(addURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		addURL:     addURL,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) Put(ctx context.Context, filename string, data []byte) (string, error) {
	var cid string
	call := func(ctx context.Context) error {
		var err error
		cid, err = c.add(ctx, filename, data)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ipfs.add", call, nil)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if resilience.IsCircuitOpen(err) {
			return "", domain.WrapError(domain.ErrTemporary, "ipfs add", err)
		}
		return "", domain.WrapError(domain.ErrStorage, "ipfs add", err)
	}
	return cid, nil
}

func (c *Client) add(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addURL, &body)
	if err != nil {
		return "", fmt.Errorf("create add request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ipfs add status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode add response: %w", err)
	}
	if parsed.Hash == "" {
		return "", fmt.Errorf("ipfs add response carried no hash")
	}
	return parsed.Hash, nil
}
