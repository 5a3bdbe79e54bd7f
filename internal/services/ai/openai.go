package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/quadtask/quadtask/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the Provider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// ClassifyTask classifies a task into an Eisenhower quadrant
func (p *OpenAIProvider) ClassifyTask(ctx context.Context, task *models.Task) (*Classification, error) {
	prompt := buildClassificationPrompt(task)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant that classifies todo items into Eisenhower matrix quadrants by urgency and importance. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "classify_task"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("task_id", task.ID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "classify_task"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("task_id", task.ID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to classify task: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to classify task: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "classify_task"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("task_id", task.ID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseClassificationResponse(content)
}

// buildClassificationPrompt builds the prompt for quadrant classification
func buildClassificationPrompt(task *models.Task) string {
	now := time.Now()

	prompt := fmt.Sprintf(`Classify the following todo item into an Eisenhower matrix quadrant:
- urgent: does it need attention in the next few days?
- important: does it matter for the person's goals or obligations?

Todo item: "%s"`, task.Title)

	prompt += "\n\nTime context:"
	prompt += fmt.Sprintf("\n- Current date and time: %s", now.Format(time.RFC3339))
	prompt += fmt.Sprintf("\n- Todo created at: %s", task.DateCreated.Format(time.RFC3339))
	if task.DueDate != nil {
		prompt += fmt.Sprintf("\n- Due date: %s", task.DueDate.Format(time.RFC3339))
		daysUntilDue := int(task.DueDate.Sub(now).Hours() / 24)
		prompt += fmt.Sprintf("\n- Days until due: %d", daysUntilDue)
	} else {
		prompt += "\n- No due date set"
	}

	prompt += `

Respond with JSON in this exact format:
{"urgent": true, "important": false, "rationale": "one short sentence"}`

	return prompt
}

// parseClassificationResponse parses the model's JSON answer into a
// Classification. Unknown or malformed answers fall back to the
// not-urgent/not-important quadrant.
func parseClassificationResponse(content string) (*Classification, error) {
	var answer struct {
		Urgent    bool   `json:"urgent"`
		Important bool   `json:"important"`
		Rationale string `json:"rationale"`
	}
	raw := content
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		// Some models wrap the JSON in prose; extract the outermost object.
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &answer); err != nil {
			return nil, fmt.Errorf("failed to parse classification response: %w", err)
		}
	}

	return &Classification{
		Quadrant:  QuadrantFor(answer.Urgent, answer.Important),
		Urgent:    answer.Urgent,
		Important: answer.Important,
		Rationale: answer.Rationale,
	}, nil
}

// QuadrantFor maps the urgency/importance pair onto a quadrant.
func QuadrantFor(urgent, important bool) models.Quadrant {
	switch {
	case urgent && important:
		return models.QuadrantQ1
	case !urgent && important:
		return models.QuadrantQ2
	case urgent && !important:
		return models.QuadrantQ3
	default:
		return models.QuadrantQ4
	}
}
