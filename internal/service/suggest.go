package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"wave/internal/pkg/ai"
)

const (
	maxEmojiSuggestions = 5
	maxSmartReplies     = 3
)

// suggestService wraps the generative-text client. These are advisory
// affordances: every failure is swallowed and replaced with an empty
// result or a placeholder, never surfaced as a hard error.
type suggestService struct {
	client ai.Client
}

func NewSuggestService(client ai.Client) SuggestService {
	return &suggestService{client: client}
}

func (s *suggestService) SuggestEmojis(ctx context.Context, message string) []string {
	if len(strings.TrimSpace(message)) < 3 {
		return []string{}
	}

	prompt := fmt.Sprintf(
		"Suggest up to %d relevant emojis for this chat message. Reply with the emojis only, separated by spaces.\n\nMessage: %s",
		maxEmojiSuggestions, message)

	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		if err != ai.ErrDisabled {
			log.Printf("emoji suggestion failed: %v", err)
		}
		return []string{}
	}

	emojis := strings.Fields(text)
	if len(emojis) > maxEmojiSuggestions {
		emojis = emojis[:maxEmojiSuggestions]
	}
	return emojis
}

func (s *suggestService) SmartReplies(ctx context.Context, chatHistory string) []string {
	if strings.TrimSpace(chatHistory) == "" {
		return nil
	}

	prompt := fmt.Sprintf(
		"Suggest %d short, relevant replies to this conversation. Reply with one suggestion per line, nothing else.\n\nChat history:\n%s",
		maxSmartReplies, chatHistory)

	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		if err != ai.ErrDisabled {
			log.Printf("smart replies failed: %v", err)
		}
		return nil
	}

	var replies []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		replies = append(replies, line)
		if len(replies) == maxSmartReplies {
			break
		}
	}
	return replies
}

func (s *suggestService) SummarizeChat(ctx context.Context, chatHistory string) string {
	if strings.TrimSpace(chatHistory) == "" {
		return "No chat history to summarize."
	}

	prompt := fmt.Sprintf(
		"Summarize the following chat conversation in a few sentences.\n\nChat history:\n%s", chatHistory)

	summary, err := s.client.Generate(ctx, prompt)
	if err != nil {
		if err != ai.ErrDisabled {
			log.Printf("chat summarization failed: %v", err)
		}
		return "Could not generate summary."
	}

	return strings.TrimSpace(summary)
}
