package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hireround/interview-engine/internal/logger"
	"github.com/hireround/interview-engine/internal/oracle"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash"

	providerName = "gemini"
)

// modelCaller is the seam between the Generator and the GenAI SDK, kept
// narrow so tests can swap in a fake.
type modelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements oracle.Oracle on top of the Gemini API. Retries and
// timeouts belong to oracle.Client; the Generator only performs single calls
// and classifies their failures.
type Generator struct {
	models modelCaller
	model  string
	logger *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Generator{
		models: client.Models,
		model:  model,
		logger: logger.WithCommonFields(log, providerName, model),
	}, nil
}

// Infer sends one structured-output request to Gemini and decodes the reply
// into out.
func (g *Generator) Infer(ctx context.Context, req oracle.Request, out any) error {
	if g == nil || g.models == nil {
		return fmt.Errorf("%w: gemini generator is not initialized", oracle.ErrUnavailable)
	}

	payload, err := json.MarshalIndent(req.Payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal oracle payload: %w", err)
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system := strings.TrimSpace(req.SystemInstructions); system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(string(payload)), config)
	if err != nil {
		return classify(ctx, err)
	}

	raw := collectText(resp)
	if raw == "" {
		return fmt.Errorf("%w: empty candidates", oracle.ErrMalformed)
	}

	g.logger.Debug("gemini response",
		zap.String("response_preview", logger.TruncateForLog(raw, 200)),
	)

	return oracle.Decode(raw, out)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// classify maps SDK failures onto the oracle error taxonomy. Caller
// cancellation passes through untouched so it is never mistaken for a
// transient provider failure.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", oracle.ErrTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", oracle.ErrProvider, err)
		}
		return fmt.Errorf("generate content: %w", err)
	}

	return fmt.Errorf("%w: %s", oracle.ErrProvider, err)
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
