package application

import (
	"context"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/sensitivity"
)

// PricingService 定价门面服务，整合 Command 和 Query
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造定价门面服务
func NewPricingService(registry *Registry, greeks *sensitivity.Engine, opts ...CommandOption) *PricingService {
	return &PricingService{
		Command: NewPricingCommandService(registry, greeks, opts...),
		Query:   NewPricingQueryService(registry),
	}
}

// --- Command Facade ---

func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	return s.Command.PriceOption(ctx, cmd)
}

func (s *PricingService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	return s.Command.BatchPriceOptions(ctx, cmd)
}

// --- Query Facade ---

func (s *PricingService) ListModels(ctx context.Context) []string {
	return s.Query.ListModels(ctx)
}

func (s *PricingService) ListContracts(ctx context.Context) []string {
	return s.Query.ListContracts(ctx)
}

func (s *PricingService) Describe(ctx context.Context) string {
	return s.Query.Describe(ctx)
}
