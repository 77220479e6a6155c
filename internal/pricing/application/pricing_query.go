package application

import (
	"context"
)

// PricingQueryService 处理定价相关的查询操作
type PricingQueryService struct {
	registry *Registry
}

// NewPricingQueryService 创建新的 PricingQueryService 实例
func NewPricingQueryService(registry *Registry) *PricingQueryService {
	return &PricingQueryService{registry: registry}
}

// ListModels 列出可用模型
func (q *PricingQueryService) ListModels(_ context.Context) []string {
	return q.registry.ListModels()
}

// ListContracts 列出可用合约
func (q *PricingQueryService) ListContracts(_ context.Context) []string {
	return q.registry.ListContracts()
}

// Describe 可读的模型与合约清单
func (q *PricingQueryService) Describe(_ context.Context) string {
	return q.registry.Describe()
}

// RecentCreations 最近的构造记录
func (q *PricingQueryService) RecentCreations(_ context.Context, limit int) []CreationRecord {
	return q.registry.RecentCreations(limit)
}
