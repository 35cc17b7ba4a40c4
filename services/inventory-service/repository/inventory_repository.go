package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"checkout-backend/services/inventory-service/models"
)

var (
	ErrNotFound          = errors.New("inventory record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNothingReserved   = errors.New("release exceeds reserved quantity")
)

// InventoryRepository defines the interface for inventory data access.
// Reserve, Release and Confirm are conditional updates: the row-level
// check-and-set is what serializes concurrent sagas touching one product.
type InventoryRepository interface {
	Get(ctx context.Context, productID string) (*models.Inventory, error)
	Set(ctx context.Context, inv *models.Inventory) error
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
	Confirm(ctx context.Context, productID string, quantity int) error
	CheckStock(ctx context.Context, productID string, quantity int) (*models.StockCheckResult, error)
}

// DynamoInventoryRepository implements InventoryRepository using DynamoDB
type DynamoInventoryRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoInventoryRepository(client *dynamodb.Client, table string) *DynamoInventoryRepository {
	return &DynamoInventoryRepository{client: client, table: table}
}

type ddbInventory struct {
	ProductID string `dynamodbav:"product_id"`
	Available int    `dynamodbav:"available"`
	Reserved  int    `dynamodbav:"reserved"`
	Threshold int    `dynamodbav:"threshold"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func (r *DynamoInventoryRepository) key(productID string) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(map[string]string{"product_id": productID})
}

func (r *DynamoInventoryRepository) Get(ctx context.Context, productID string) (*models.Inventory, error) {
	key, err := r.key(productID)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.table,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var di ddbInventory
	if err := attributevalue.UnmarshalMap(out.Item, &di); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}

	inv := &models.Inventory{
		ProductID: di.ProductID,
		Available: di.Available,
		Reserved:  di.Reserved,
		Threshold: di.Threshold,
	}
	if t, err := time.Parse(time.RFC3339, di.UpdatedAt); err == nil {
		inv.UpdatedAt = t
	}
	return inv, nil
}

func (r *DynamoInventoryRepository) Set(ctx context.Context, inv *models.Inventory) error {
	di := ddbInventory{
		ProductID: inv.ProductID,
		Available: inv.Available,
		Reserved:  inv.Reserved,
		Threshold: inv.Threshold,
		UpdatedAt: inv.UpdatedAt.Format(time.RFC3339),
	}

	item, err := attributevalue.MarshalMap(di)
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.table,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// adjust applies one conditional stock movement. The condition guards the
// source bucket so a concurrent writer can never drive it negative.
func (r *DynamoInventoryRepository) adjust(ctx context.Context, productID string, quantity int, expr, condExpr string, condErr error) error {
	key, err := r.key(productID)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	qtyAV, _ := attributevalue.Marshal(quantity)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": qtyAV,
			":now": nowAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#avail": "available",
			"#resv":  "reserved",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return condErr
		}
		return fmt.Errorf("conditional update failed: %w", err)
	}
	return nil
}

// Reserve atomically moves quantity from available to reserved.
func (r *DynamoInventoryRepository) Reserve(ctx context.Context, productID string, quantity int) error {
	return r.adjust(ctx, productID, quantity,
		"SET #avail = #avail - :qty, #resv = #resv + :qty, updated_at = :now",
		"#avail >= :qty",
		ErrInsufficientStock)
}

// Release atomically moves quantity from reserved back to available.
func (r *DynamoInventoryRepository) Release(ctx context.Context, productID string, quantity int) error {
	return r.adjust(ctx, productID, quantity,
		"SET #avail = #avail + :qty, #resv = #resv - :qty, updated_at = :now",
		"#resv >= :qty",
		ErrNothingReserved)
}

// Confirm permanently deducts a reserved quantity.
func (r *DynamoInventoryRepository) Confirm(ctx context.Context, productID string, quantity int) error {
	return r.adjust(ctx, productID, quantity,
		"SET #resv = #resv - :qty, updated_at = :now",
		"#resv >= :qty",
		ErrNothingReserved)
}

func (r *DynamoInventoryRepository) CheckStock(ctx context.Context, productID string, quantity int) (*models.StockCheckResult, error) {
	inv, err := r.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &models.StockCheckResult{
				ProductID: productID,
				Requested: quantity,
			}, nil
		}
		return nil, err
	}

	return &models.StockCheckResult{
		ProductID:    productID,
		Requested:    quantity,
		Available:    inv.Available,
		IsSufficient: inv.Available >= quantity,
	}, nil
}
