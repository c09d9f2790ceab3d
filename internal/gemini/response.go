package gemini

import "encoding/json"

// NoDescription is returned when a response carries neither text nor an
// error message.
const NoDescription = "No description found."

// ResponseKind tells which part of a response produced the description.
type ResponseKind int

const (
	KindFallback ResponseKind = iota
	KindCandidate
	KindAPIError
)

// Parsed is the outcome of ParseResponse.
type Parsed struct {
	Text string
	Kind ResponseKind
}

// ParseResponse extracts a description from a generateContent response.
// It never fails: responses of unexpected shape, including truncated or
// invalid JSON, yield NoDescription.
func ParseResponse(body []byte) Parsed {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return Parsed{Text: NoDescription, Kind: KindFallback}
	}

	if text, ok := candidateText(root); ok {
		return Parsed{Text: text, Kind: KindCandidate}
	}
	if msg, ok := errorMessage(root); ok {
		return Parsed{Text: msg, Kind: KindAPIError}
	}
	return Parsed{Text: NoDescription, Kind: KindFallback}
}

// candidateText follows candidates[0].content.parts[0].text.
func candidateText(root map[string]any) (string, bool) {
	candidates, _ := root["candidates"].([]any)
	if len(candidates) == 0 {
		return "", false
	}
	candidate, _ := candidates[0].(map[string]any)
	body, _ := candidate["content"].(map[string]any)
	parts, _ := body["parts"].([]any)
	if len(parts) == 0 {
		return "", false
	}
	first, _ := parts[0].(map[string]any)
	text, ok := first["text"].(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// errorMessage follows error.message.
func errorMessage(root map[string]any) (string, bool) {
	apiErr, _ := root["error"].(map[string]any)
	msg, ok := apiErr["message"].(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}
