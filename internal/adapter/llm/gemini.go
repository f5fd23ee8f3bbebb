package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"compliance/internal/domain"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("reasoning model unavailable")

type GeminiConfig struct {
	Model       string
	Temperature float32
	RPM         int
	Timeout     time.Duration
}

// GeminiReasoner sends multi-modal prompts to a Gemini model. Calls are
// rate limited and guarded by a circuit breaker.
type GeminiReasoner struct {
	client      *genai.Client
	cfg         GeminiConfig
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewGeminiClient opens a genai client shared by the reasoner, the embedder
// and the model-based parser.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

func NewGeminiReasoner(client *genai.Client, cfg GeminiConfig, logger *slog.Logger) *GeminiReasoner {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-pro"
	}
	if cfg.RPM <= 0 {
		cfg.RPM = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	burst := cfg.RPM / 10
	if burst < 1 {
		burst = 1
	}

	return &GeminiReasoner{
		client:      client,
		cfg:         cfg,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), burst),
		logger:      logger,
	}
}

// Generate sends the prompt followed by every attachment as inline data.
func (g *GeminiReasoner) Generate(ctx context.Context, prompt string, attachments ...domain.EvidenceFile) (string, error) {
	ctx, span := otel.Tracer("gemini-client").Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", g.cfg.Model),
		attribute.Int("gemini.prompt_chars", len(prompt)),
		attribute.Int("gemini.attachments", len(attachments)),
	)

	if err := g.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	parts := make([]genai.Part, 0, len(attachments)+1)
	parts = append(parts, genai.Text(prompt))
	for _, file := range attachments {
		parts = append(parts, genai.Blob{MIMEType: file.AttachmentMIME(), Data: file.Data})
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.GenerativeModel(g.cfg.Model)
		model.SetTemperature(g.cfg.Temperature)
		return model.GenerateContent(ctx, parts...)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "", ErrUnavailable
		}
		return "", err
	}

	resp := result.(*genai.GenerateContentResponse)
	if resp.UsageMetadata != nil {
		span.SetAttributes(attribute.Int("gemini.total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
	}

	return ResponseText(resp), nil
}

func (g *GeminiReasoner) ModelName() string {
	return g.cfg.Model
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
