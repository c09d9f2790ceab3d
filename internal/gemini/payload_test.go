package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDescribePayloadElidesImage(t *testing.T) {
	req := testRequest()
	req.Generation.Temperature = floatPtr(0.2)

	got, err := describePayload(req)
	if err != nil {
		t.Fatal(err)
	}

	var body struct {
		Contents []struct {
			Parts []struct {
				InlineData *struct {
					MIMEType string `json:"mime_type"`
					Data     string `json:"data"`
				} `json:"inline_data"`
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig map[string]any `json:"generationConfig"`
	}
	if err := json.Unmarshal([]byte(got), &body); err != nil {
		t.Fatalf("payload is not JSON: %v\n%s", err, got)
	}
	parts := body.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || parts[1].Text == nil {
		t.Fatalf("parts = %s", got)
	}
	if parts[0].InlineData.Data != "[3 bytes elided]" {
		t.Errorf("image data = %q", parts[0].InlineData.Data)
	}
	if *parts[1].Text != req.Prompt {
		t.Errorf("prompt = %q", *parts[1].Text)
	}
	if body.GenerationConfig["temperature"] != 0.2 {
		t.Errorf("generationConfig = %v", body.GenerationConfig)
	}
}

func TestDescribeLogsRequestAtDebug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewClient(logger, WithBaseURL(srv.URL))

	if _, err := c.Describe(context.Background(), testRequest()); err != nil {
		t.Fatal(err)
	}

	out := logs.String()
	for _, want := range []string{"sending request", "What is in the frame?", "inline_data", "3 bytes elided"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug log missing %q:\n%s", want, out)
		}
	}
	// base64 of the test image, and the credential
	for _, leaked := range []string{"/9j/", "secret-key"} {
		if strings.Contains(out, leaked) {
			t.Errorf("debug log contains %q:\n%s", leaked, out)
		}
	}
}
