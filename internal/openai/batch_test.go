package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

func TestNewAltTextRequest(t *testing.T) {
	req := NewAltTextRequest("image-img_1-0", "", "be brief", "Generate an ALT tag for this image.", "data:image/jpeg;base64,AAAA")

	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"custom_id": "image-img_1-0",
		"method": "POST",
		"url": "/v1/chat/completions",
		"body": {
			"model": "gpt-4o",
			"messages": [
				{"role": "system", "content": "be brief"},
				{"role": "user", "content": [
					{"type": "text", "text": "Generate an ALT tag for this image."},
					{"type": "image_url", "image_url": {"url": "data:image/jpeg;base64,AAAA"}}
				]}
			],
			"max_tokens": 150,
			"temperature": 0.7
		}
	}`, string(data))
}

func TestEncodeJSONL(t *testing.T) {
	reqs := []BatchRequest{
		NewAltTextRequest("a", "gpt-4o-mini", "x", "y", "https://img/a.png?x=1&y=2"),
		NewAltTextRequest("b", "gpt-4o-mini", "x", "y", "https://img/b.png"),
	}

	data, err := EncodeJSONL(reqs)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"custom_id":"a"`)
	assert.Contains(t, lines[0], `x=1&y=2`)
	assert.Contains(t, lines[1], `"custom_id":"b"`)
}

const sampleOutput = `{"id":"r1","custom_id":"image-img_1-0","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","content":"  A red bicycle leaning on a wall. "}}],"usage":{"prompt_tokens":100,"completion_tokens":10,"total_tokens":110}}},"error":null}

{"id":"r2","custom_id":"image-img_2-1","response":{"status_code":500,"body":{"error":{"message":"server"}}},"error":null}
{"id":"r3","custom_id":"image-img_3-2","response":null,"error":{"code":"batch_expired","message":"This request could not be executed before the completion window expired."}}
{"id":"r4","custom_id":"image-img_5-4","response":{"status_code":200,"body":{"choices":[{"message":{"content":"Team photo"}}],"usage":{"prompt_tokens":90,"completion_tokens":5,"total_tokens":95}}}}
`

func TestParseJSONL_AndSumUsage(t *testing.T) {
	results, err := ParseJSONL([]byte(sampleOutput))
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "image-img_1-0", results[0].CustomID)

	assert.Equal(t, pipeline.TokenUsage{PromptTokens: 190, CompletionTokens: 15, TotalTokens: 205}, SumUsage(results))
}

func TestParseJSONL_BadLine(t *testing.T) {
	_, err := ParseJSONL([]byte("{\"custom_id\":\"a\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestMapResults(t *testing.T) {
	results, err := ParseJSONL([]byte(sampleOutput))
	require.NoError(t, err)

	metadata := []pipeline.ImageRequest{
		{CustomID: "image-img_1-0", UID: "img_1", Locale: "en-us"},
		{CustomID: "image-img_2-1", UID: "img_2", Locale: "en-us"},
		{CustomID: "image-img_3-2", UID: "img_3", Locale: "en-us"},
		{CustomID: "", UID: "img_4", Locale: "en-us", Error: "failed to fetch image: 404"},
		{CustomID: "", UID: "img_6", Locale: "en-us"},
		{CustomID: "image-img_7-6", UID: "img_7", Locale: "fr-fr"},
	}

	tags := MapResults(results, metadata)
	require.Len(t, tags, len(metadata))

	assert.Equal(t, "A red bicycle leaning on a wall.", tags[0].AltText)
	assert.Empty(t, tags[0].Error)

	assert.Equal(t, ErrTextInvalidFormat, tags[1].Error)
	assert.Equal(t, "This request could not be executed before the completion window expired.", tags[2].Error)
	assert.Equal(t, "failed to fetch image: 404", tags[3].Error)
	assert.Equal(t, ErrTextNotPrepared, tags[4].Error)

	assert.Equal(t, ErrTextResultNotFound, tags[5].Error)
	assert.Equal(t, "fr-fr", tags[5].Locale)
}

func TestMapResults_NonOKStatusWithChoices(t *testing.T) {
	line := `{"custom_id":"c","response":{"status_code":429,"body":{"choices":[{"message":{"content":"partial"}}]}}}`
	results, err := ParseJSONL([]byte(line))
	require.NoError(t, err)

	tags := MapResults(results, []pipeline.ImageRequest{{CustomID: "c", UID: "u"}})
	require.Len(t, tags, 1)
	assert.Equal(t, "HTTP 429", tags[0].Error)
}
