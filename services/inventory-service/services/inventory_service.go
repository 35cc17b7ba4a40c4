package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"checkout-backend/services/inventory-service/models"
	"checkout-backend/services/inventory-service/repository"
)

// InventoryService handles the administrative stock surface; the saga path
// goes through ReservationService.
type InventoryService struct {
	repo   repository.InventoryRepository
	logger *zap.Logger
}

func NewInventoryService(repo repository.InventoryRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, logger: logger}
}

// GetStock returns the current inventory for a product
func (s *InventoryService) GetStock(ctx context.Context, productID string) (*models.Inventory, error) {
	return s.repo.Get(ctx, productID)
}

// SetStock initializes or updates inventory for a product (upsert). An
// existing record keeps its reserved count; incoming available is added on
// top of the current stock.
func (s *InventoryService) SetStock(ctx context.Context, req *models.SetStockRequest) (*models.Inventory, error) {
	existing, err := s.repo.Get(ctx, req.ProductID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing stock: %w", err)
	}

	now := time.Now().UTC()

	inv := &models.Inventory{
		ProductID: req.ProductID,
		Available: req.Available,
		Reserved:  0,
		Threshold: req.Threshold,
		UpdatedAt: now,
	}
	if existing != nil {
		inv.Available = existing.Available + req.Available
		inv.Reserved = existing.Reserved
	}

	if err := s.repo.Set(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}

	s.logger.Info("stock updated",
		zap.String("product_id", req.ProductID),
		zap.Int("available", inv.Available),
		zap.Int("reserved", inv.Reserved),
		zap.Int("threshold", inv.Threshold))
	return inv, nil
}

// CheckStock checks stock availability for multiple items
func (s *InventoryService) CheckStock(ctx context.Context, items []models.CheckStockItem) ([]models.StockCheckResult, error) {
	results := make([]models.StockCheckResult, 0, len(items))

	for _, item := range items {
		check, err := s.repo.CheckStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to check stock for product=%s: %w", item.ProductID, err)
		}
		results = append(results, *check)
	}

	return results, nil
}
