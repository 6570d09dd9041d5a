package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// maxWordsPerRequest bounds the prompt size of one completion
const maxWordsPerRequest = 200

// ErrEmptyResponse is returned when the API returns no choices
var ErrEmptyResponse = errors.New("ai: no response choices returned")

// ChatGPT resolves proper names and lemmas for a batch of surface forms
type ChatGPT struct {
	client      *openai.Client
	model       string
	temperature float32
}

// New creates a new ChatGPT client
func New(apiKey, model string) *ChatGPT {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &ChatGPT{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: 0,
	}
}

// DetectProperNames returns the subset of words that are proper names in language
func (c *ChatGPT) DetectProperNames(ctx context.Context, language string, words []string) (map[string]bool, error) {
	names := make(map[string]bool)
	for _, chunk := range chunkWords(uniqueWords(words), maxWordsPerRequest) {
		content, err := c.complete(ctx,
			"You are a linguistic assistant. You identify personal names, place names and brand names in word lists. Answer with JSON only.",
			buildNamesPrompt(language, chunk),
		)
		if err != nil {
			return nil, err
		}
		found, err := parseNames(content)
		if err != nil {
			return nil, err
		}
		for _, n := range found {
			names[n] = true
		}
	}
	return names, nil
}

// LemmatizeBatch maps each word to its dictionary form in language
func (c *ChatGPT) LemmatizeBatch(ctx context.Context, language string, words []string) (map[string]string, error) {
	lemmas := make(map[string]string)
	for _, chunk := range chunkWords(uniqueWords(words), maxWordsPerRequest) {
		content, err := c.complete(ctx,
			"You are a linguistic assistant. You reduce inflected words to their dictionary form. Answer with JSON only.",
			buildLemmasPrompt(language, chunk),
		)
		if err != nil {
			return nil, err
		}
		resolved, err := parseLemmas(content)
		if err != nil {
			return nil, err
		}
		for form, lemma := range resolved {
			lemmas[form] = lemma
		}
	}
	return lemmas, nil
}

func (c *ChatGPT) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildNamesPrompt(language string, words []string) string {
	return fmt.Sprintf(`Language: %s
Which of the following words are proper names (people, places, organizations, brands)?
Keep the exact spelling of each word you return.

Respond in this JSON format:
{"names": ["Berlin", "Anna"]}

Words:
%s`, language, strings.Join(words, "\n"))
}

func buildLemmasPrompt(language string, words []string) string {
	return fmt.Sprintf(`Language: %s
Give the dictionary form (lemma) of each word below, in lowercase.
Skip words you cannot resolve.

Respond in this JSON format:
{"lemmas": {"went": "go", "houses": "house"}}

Words:
%s`, language, strings.Join(words, "\n"))
}

func parseNames(content string) ([]string, error) {
	var result struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse names response: %w", err)
	}
	names := make([]string, 0, len(result.Names))
	for _, n := range result.Names {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

func parseLemmas(content string) (map[string]string, error) {
	var result struct {
		Lemmas map[string]string `json:"lemmas"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse lemmas response: %w", err)
	}
	lemmas := make(map[string]string, len(result.Lemmas))
	for form, lemma := range result.Lemmas {
		form = strings.ToLower(strings.TrimSpace(form))
		lemma = strings.ToLower(strings.TrimSpace(lemma))
		if form != "" && lemma != "" {
			lemmas[form] = lemma
		}
	}
	return lemmas, nil
}

// uniqueWords drops blanks and exact duplicates, keeping first-seen order
func uniqueWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func chunkWords(words []string, size int) [][]string {
	var chunks [][]string
	for len(words) > size {
		chunks = append(chunks, words[:size])
		words = words[size:]
	}
	if len(words) > 0 {
		chunks = append(chunks, words)
	}
	return chunks
}
