package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

const (
	retrieveCount = 4
	sourceMaxLen  = 600

	// Returned instead of an error so the support widget keeps working when
	// the model is down; the sources still give the user something to read.
	unavailableAnswer = "Asisten sedang tidak tersedia. Silakan coba beberapa saat lagi."
)

// ErrEmptyMessage rejects blank questions.
var ErrEmptyMessage = errors.New("message is required")

// Reply is the assistant's answer plus the document passages it was
// grounded on.
type Reply struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// Service answers support questions: retrieve matching passages, then ask
// the generator for an answer grounded on them.
type Service struct {
	retriever *Retriever
	generator Generator
	logger    *slog.Logger
}

// NewService wires the support assistant.
func NewService(retriever *Retriever, generator Generator, logger *slog.Logger) *Service {
	return &Service{retriever: retriever, generator: generator, logger: logger}
}

// Answer resolves one question. Generator failures degrade to a fixed
// unavailable answer with the sources intact rather than an error.
func (s *Service) Answer(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	passages := s.retriever.Retrieve(message, retrieveCount)
	sources := trimSources(passages, sourceMaxLen)

	answer, err := s.generator.Generate(ctx, message, passages)
	if err != nil {
		s.logger.Warn("chat generation failed", slog.Any("error", err))
		return Reply{Answer: unavailableAnswer, Sources: sources}, nil
	}
	return Reply{Answer: answer, Sources: sources}, nil
}

func trimSources(passages []Passage, maxLen int) []string {
	if len(passages) == 0 {
		return nil
	}
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		text := p.Text
		if len(text) > maxLen {
			text = text[:maxLen] + "..."
		}
		out = append(out, text)
	}
	return out
}
