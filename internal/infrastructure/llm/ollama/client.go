package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthchain/rxintake/internal/core/domain"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyzer cross-checks a drug list against the reference interaction
// dataset. The dataset is context for the model, not a filter: the
// prompt instructs it to consider only the supplied drug list.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) AnalyzeInteractions(ctx context.Context, drugs string, dataset json.RawMessage) (string, error) {
	return a.client.chat(ctx, buildDDIPrompt(drugs, dataset))
}

// Narrator turns a combined drug list plus its interaction analysis into
// a narrative risk summary. Output is unstructured prose.
type Narrator struct {
	client *Client
}

func NewNarrator(client *Client) *Narrator {
	return &Narrator{client: client}
}

func (n *Narrator) GenerateRiskProfile(ctx context.Context, drugs []string, analysis string) (string, error) {
	return n.client.chat(ctx, buildRiskProfilePrompt(drugs, analysis))
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// statusError is a non-2xx chat response. Overload-class statuses wrap
// as ErrTemporary so an overwhelmed model node answers 503 upstream
// instead of 500.
type statusError struct {
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("ollama chat status: %s", e.status)
	}
	return fmt.Sprintf("ollama chat status: %s: %s", e.status, e.body)
}

func (e *statusError) overloaded() bool {
	switch e.code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := &statusError{
			code:   resp.StatusCode,
			status: resp.Status,
			body:   strings.TrimSpace(string(body)),
		}
		if statusErr.overloaded() {
			return "", domain.WrapError(domain.ErrTemporary, "ollama chat", statusErr)
		}
		return "", statusErr
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return strings.TrimSpace(parsed.Message.Content), nil
}
