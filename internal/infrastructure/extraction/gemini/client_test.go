package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractFromImageSendsInlineDataAndPrompt(t *testing.T) {
	var captured generateRequest
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[{\"drug\":\"Aspirin\",\"dosage\":\"100mg\"}]"}]}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "vision-1", "test-key", time.Second)
	text, err := client.ExtractFromImage(context.Background(), []byte("\x89PNG\r\n\x1a\nrest"))
	if err != nil {
		t.Fatalf("ExtractFromImage() error = %v", err)
	}

	if gotPath != "/v1beta/models/vision-1:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key in query, got %q", gotKey)
	}
	if !strings.Contains(text, "Aspirin") {
		t.Fatalf("unexpected extraction text: %s", text)
	}

	parts := captured.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected image + prompt parts, got %d", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/png" {
		t.Fatalf("expected png inline data, got %+v", parts[0])
	}
	raw, err := base64.StdEncoding.DecodeString(parts[0].InlineData.Data)
	if err != nil || !strings.HasSuffix(string(raw), "rest") {
		t.Fatalf("expected base64 image bytes, got %q (err %v)", parts[0].InlineData.Data, err)
	}
	if !strings.Contains(parts[1].Text, "drug names and dosages") {
		t.Fatalf("unexpected prompt: %s", parts[1].Text)
	}
}

func TestExtractFromImageIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "vision-1", "k", time.Second)
	_, err := client.ExtractFromImage(context.Background(), []byte("jpegbytes"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestExtractFromImageEmptyCandidatesYieldsEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "vision-1", "k", time.Second)
	text, err := client.ExtractFromImage(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("ExtractFromImage() error = %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}
