package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// Request defaults for ALT text generation.
const (
	DefaultModel       = "gpt-4o"
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7
)

// ContentPart is one piece of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL holds an http(s) or data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Message is a chat message. Content is a string or []ContentPart.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ChatRequest is a chat completions request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// BatchRequest is one line of a batch input file.
type BatchRequest struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     ChatRequest `json:"body"`
}

// NewAltTextRequest builds a vision request asking for ALT text of one image.
func NewAltTextRequest(customID, model, instructions, userText, imageURL string) BatchRequest {
	if model == "" {
		model = DefaultModel
	}
	return BatchRequest{
		CustomID: customID,
		Method:   http.MethodPost,
		URL:      ChatCompletionsEndpoint,
		Body: ChatRequest{
			Model: model,
			Messages: []Message{
				{Role: "system", Content: instructions},
				{Role: "user", Content: []ContentPart{
					{Type: "text", Text: userText},
					{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
				}},
			},
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
	}
}

// EncodeJSONL writes one request per line, newline terminated.
func EncodeJSONL(requests []BatchRequest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range requests {
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("failed to encode request %s: %w", r.CustomID, err)
		}
	}
	return buf.Bytes(), nil
}

// Usage is token accounting of one response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the subset of a chat completion the pipeline reads.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// BatchResult is one line of a batch output file.
type BatchResult struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int          `json:"status_code"`
		Body       ChatResponse `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseJSONL decodes a batch output file, ignoring blank lines.
func ParseJSONL(data []byte) ([]BatchResult, error) {
	var results []BatchResult
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r BatchResult
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("failed to decode result line %d: %w", i+1, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// SumUsage adds up token usage across results.
func SumUsage(results []BatchResult) pipeline.TokenUsage {
	var total pipeline.TokenUsage
	for _, r := range results {
		if r.Response == nil || r.Response.Body.Usage == nil {
			continue
		}
		u := r.Response.Body.Usage
		total.PromptTokens += u.PromptTokens
		total.CompletionTokens += u.CompletionTokens
		total.TotalTokens += u.TotalTokens
	}
	return total
}

// Error strings recorded on ALT tags that could not be generated.
const (
	ErrTextNotPrepared    = "Failed to prepare request"
	ErrTextInvalidFormat  = "Invalid response format"
	ErrTextResultNotFound = "Result not found in batch output"
	ErrTextUnknown        = "Unknown error"
)

type outcome struct {
	altText string
	err     string
}

// MapResults pairs each prepared image with its batch result by custom id.
// Images that were never submitted or have no result line get an error.
func MapResults(results []BatchResult, metadata []pipeline.ImageRequest) []pipeline.AltTag {
	byID := make(map[string]outcome, len(results))
	for _, r := range results {
		if r.CustomID == "" {
			continue
		}
		switch {
		case r.Response != nil && len(r.Response.Body.Choices) > 0:
			o := outcome{altText: strings.TrimSpace(r.Response.Body.Choices[0].Message.Content)}
			if r.Response.StatusCode != http.StatusOK {
				o.err = fmt.Sprintf("HTTP %d", r.Response.StatusCode)
			}
			byID[r.CustomID] = o
		case r.Response != nil:
			byID[r.CustomID] = outcome{err: ErrTextInvalidFormat}
		case r.Error != nil:
			msg := r.Error.Message
			if msg == "" {
				msg = ErrTextUnknown
			}
			byID[r.CustomID] = outcome{err: msg}
		}
	}

	tags := make([]pipeline.AltTag, 0, len(metadata))
	for _, m := range metadata {
		tag := pipeline.AltTag{
			CustomID: m.CustomID,
			UID:      m.UID,
			Filename: m.Filename,
			URL:      m.URL,
			Locale:   m.Locale,
		}
		switch o, ok := byID[m.CustomID]; {
		case m.CustomID == "":
			tag.Error = m.Error
			if tag.Error == "" {
				tag.Error = ErrTextNotPrepared
			}
		case !ok:
			tag.Error = ErrTextResultNotFound
		default:
			tag.AltText = o.altText
			tag.Error = o.err
		}
		tags = append(tags, tag)
	}
	return tags
}
