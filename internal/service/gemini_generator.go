package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tutorwallet/config"
	"tutorwallet/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GeminiGenerator answers tutoring messages with a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	cfg    config.TutorConfig
}

// NewTutorGenerator returns a Gemini generator wrapped in retries, or an unconfigured
// generator when no API key is set.
func NewTutorGenerator(ctx context.Context, cfg config.TutorConfig) (TutorGenerator, func() error, error) {
	if cfg.APIKey == "" {
		return NewUnconfiguredGenerator(), func() error { return nil }, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g := &GeminiGenerator{client: client, cfg: cfg}
	return NewRetryingGenerator(g, cfg.MaxAttempts, cfg.BaseBackoff), client.Close, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt string, history []ChatTurn) (string, error) {
	if len(history) == 0 {
		return "", &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: errors.New("empty conversation")}
	}
	model := g.client.GenerativeModel(g.cfg.Model)
	model.SetTemperature(g.cfg.Temperature)
	model.SetMaxOutputTokens(g.cfg.MaxOutputTokens)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	cs := model.StartChat()
	cs.History = toGeminiHistory(history[:len(history)-1])
	parts := []genai.Part{genai.Text(history[len(history)-1].Content)}
	// an unanswered user turn is resent together with the new message
	if n := len(cs.History); n > 0 && cs.History[n-1].Role == "user" {
		parts = append(cs.History[n-1].Parts, parts...)
		cs.History = cs.History[:n-1]
	}

	res, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "I apologize, I could not generate a response.", nil
	}
	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "I apologize, I could not generate a response.", nil
	}
	return b.String(), nil
}

// toGeminiHistory maps stored roles onto Gemini's user/model roles. Gemini wants the
// history to open with a user turn and alternate, so leading model turns are dropped and
// consecutive turns of one role are merged. System notes are not sent.
func toGeminiHistory(turns []ChatTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		switch t.Role {
		case domain.MessageRoleAssistant:
			role = "model"
		case domain.MessageRoleSystem:
			continue
		}
		if len(out) == 0 && role == "model" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(t.Content))
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

// classifyGeminiError maps client errors onto config, quota and generic failures using
// the structured status codes the API returns.
func classifyGeminiError(err error) *GeneratorError {
	if errors.Is(err, context.Canceled) {
		return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Retryable: true, Err: err}
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: err}
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Reason() == "API_KEY_INVALID" {
			return &GeneratorError{Kind: domain.ErrUpstreamConfig, Err: err}
		}
		if code := apiErr.HTTPCode(); code > 0 {
			return classifyHTTP(code, err)
		}
		if st := apiErr.GRPCStatus(); st != nil {
			return classifyGRPC(st.Code(), err)
		}
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyHTTP(gErr.Code, err)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return classifyGRPC(st.Code(), err)
	}
	return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: err}
}

func classifyHTTP(code int, err error) *GeneratorError {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &GeneratorError{Kind: domain.ErrUpstreamConfig, Err: err}
	case code == http.StatusTooManyRequests:
		return &GeneratorError{Kind: domain.ErrUpstreamQuota, Retryable: true, Err: err}
	case code >= 500:
		return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Retryable: true, Err: err}
	}
	return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: err}
}

func classifyGRPC(code codes.Code, err error) *GeneratorError {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return &GeneratorError{Kind: domain.ErrUpstreamConfig, Err: err}
	case codes.ResourceExhausted:
		return &GeneratorError{Kind: domain.ErrUpstreamQuota, Retryable: true, Err: err}
	case codes.Unavailable, codes.Internal, codes.DeadlineExceeded:
		return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Retryable: true, Err: err}
	}
	return &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: err}
}
