package gemini

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/bdougie/visionstream/internal/models"
)

// Request is everything needed for one generateContent call.
type Request struct {
	APIKey     string
	Model      string
	Prompt     string
	Image      []byte
	MIMEType   string
	Generation models.GenerationConfig
}

// RequestFromJob snapshots the request fields of a job.
func RequestFromJob(j *models.Job) Request {
	return Request{
		APIKey:     j.APIKey,
		Model:      j.Model,
		Prompt:     j.Prompt,
		Image:      j.Image,
		MIMEType:   j.MIMEType,
		Generation: j.Generation,
	}
}

type generateContentRequest struct {
	Contents         []content                `json:"contents"`
	GenerationConfig *models.GenerationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

// part is either an inline image or a text prompt.
type part struct {
	InlineData *inlineData `json:"inline_data,omitempty"`
	Text       *string     `json:"text,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// newPayload assembles the request body around already encoded image data.
// The image part must precede the text part.
func newPayload(req Request, data string) generateContentRequest {
	prompt := req.Prompt
	body := generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MIMEType: req.MIMEType,
					Data:     data,
				}},
				{Text: &prompt},
			},
		}},
	}
	if !req.Generation.IsZero() {
		gen := req.Generation
		body.GenerationConfig = &gen
	}
	return body
}

// buildPayload encodes the request body.
func buildPayload(req Request) ([]byte, error) {
	return json.Marshal(newPayload(req, base64.StdEncoding.EncodeToString(req.Image)))
}

// describePayload is the loggable form of the request body, with the image
// data replaced by its size.
func describePayload(req Request) (string, error) {
	b, err := json.Marshal(newPayload(req, fmt.Sprintf("[%d bytes elided]", len(req.Image))))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
