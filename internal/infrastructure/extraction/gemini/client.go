package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const extractionPrompt = "Extract the drug names and dosages from this prescription. " +
	"If no dosages are present, mention that. Return the results in a json like format. " +
	"Example: [{'drug':'drugname', 'dosage':'dosage'},...]"

// Client wraps the vision model's generateContent endpoint. The response
// is unstructured text; no schema is enforced here — whatever the model
// returns is handed back verbatim.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, model, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte) (string, error) {
	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: detectImageMime(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: extractionPrompt},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("gemini generate status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	var out strings.Builder
	for _, candidate := range parsed.Candidates {
		for _, p := range candidate.Content.Parts {
			out.WriteString(p.Text)
		}
		break
	}
	return strings.TrimSpace(out.String()), nil
}

func detectImageMime(image []byte) string {
	if len(image) >= 8 && bytes.HasPrefix(image, []byte("\x89PNG\r\n\x1a\n")) {
		return "image/png"
	}
	return "image/jpeg"
}
