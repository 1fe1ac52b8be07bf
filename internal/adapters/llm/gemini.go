package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

const backendName = "gemini"

// contentGenerator is the slice of *genai.Models this client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client    *genai.Client
	models    contentGenerator
	modelName string
}

type GeminiConfig struct {
	APIKey    string
	Project   string // Vertex only
	Location  string // Vertex only
	UseVertex bool
	ModelName string
}

// NewGeminiClient creates a ReplyGenerator on the Gemini API (API key) or
// on Vertex AI (project + location).
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.UseVertex {
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &GeminiClient{
		client:    client,
		models:    client.Models,
		modelName: modelName,
	}, nil
}

// GenerateReply implements domain.ReplyGenerator.
func (g *GeminiClient) GenerateReply(ctx context.Context, req domain.ReplyRequest) (string, error) {
	contents, err := BuildContents(req)
	if err != nil {
		return "", &domain.GenerationError{Backend: backendName, Err: err}
	}

	model := req.Persona.Model
	if model == "" {
		model = g.modelName
	}

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Persona.Instruction, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   2048,
	}

	res, err := g.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", &domain.GenerationError{Backend: backendName, Err: err}
	}

	text := res.Text()
	if text == "" {
		return "", &domain.GenerationError{Backend: backendName, Err: errors.New("model returned empty text")}
	}

	return text, nil
}

// BuildContents maps history and the new turn to genai contents. An audio
// turn is always sent with AudioInstruction in the same message.
func BuildContents(req domain.ReplyRequest) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, t := range req.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(historyText(t), role))
	}

	switch {
	case req.Audio != nil:
		if len(req.Audio.Data) == 0 {
			return nil, errors.New("audio turn has no data")
		}
		mime := req.Audio.MIMEType
		if mime == "" {
			mime = domain.AudioWAV
		}
		parts := []*genai.Part{
			genai.NewPartFromText(AudioInstruction),
			genai.NewPartFromBytes(req.Audio.Data, mime),
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	case req.Text != "":
		contents = append(contents, genai.NewContentFromText(req.Text, genai.RoleUser))
	default:
		return nil, errors.New("empty turn")
	}

	return contents, nil
}

// ListModels returns the models that support generateContent.
func (g *GeminiClient) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var out []domain.ModelInfo
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}
		out = append(out, domain.ModelInfo{Name: m.Name, Actions: m.SupportedActions})
	}
	return out, nil
}
