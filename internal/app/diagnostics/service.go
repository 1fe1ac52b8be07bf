package diagnostics

import (
	"context"
	"slices"

	"github.com/PabloGalante/weaver-agent/internal/domain"
	"github.com/PabloGalante/weaver-agent/internal/observability"
)

const generateAction = "generateContent"

// Service checks that the model credential works and which models it reaches.
type Service struct {
	lister domain.ModelLister
}

// NewService creates a diagnostics service. lister may be nil when the
// assistant is not configured.
func NewService(lister domain.ModelLister) *Service {
	return &Service{lister: lister}
}

// GenerativeModels returns the names of models that support generateContent.
func (s *Service) GenerativeModels(ctx context.Context) ([]string, error) {
	if s.lister == nil {
		return nil, domain.ErrConfigurationMissing
	}

	log := observability.LoggerFromContext(ctx)

	models, err := s.lister.ListModels(ctx)
	if err != nil {
		log.Error("model listing failed", "error", err)
		return nil, err
	}

	names := []string{}
	for _, m := range models {
		if len(m.Actions) == 0 || slices.Contains(m.Actions, generateAction) {
			names = append(names, m.Name)
		}
	}

	log.Info("listed models", "model_count", len(names))
	return names, nil
}
