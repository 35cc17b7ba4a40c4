package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"checkout-backend/services/contracts"
	"checkout-backend/services/inventory-service/models"
)

var ErrReservationExists = errors.New("reservation already exists")

// ReservationRepository persists the per-transaction idempotency record.
type ReservationRepository interface {
	// Create inserts a new reservation; ErrReservationExists if the
	// transaction id was seen before.
	Create(ctx context.Context, res *models.Reservation) error
	Get(ctx context.Context, transactionID string) (*models.Reservation, error)
	// Save overwrites an existing reservation (progress and outcome updates).
	Save(ctx context.Context, res *models.Reservation) error
}

// DynamoReservationRepository implements ReservationRepository using DynamoDB.
type DynamoReservationRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoReservationRepository(client *dynamodb.Client, table string) *DynamoReservationRepository {
	return &DynamoReservationRepository{client: client, table: table}
}

type ddbReservedItem struct {
	ProductID string `dynamodbav:"product_id"`
	Quantity  int    `dynamodbav:"quantity"`
}

type ddbReservation struct {
	TransactionID string `dynamodbav:"transaction_id"`
	OrderID       string `dynamodbav:"order_id"`
	UserID        string `dynamodbav:"user_id"`
	Status        string `dynamodbav:"status"`
	// Priced line snapshot, stored as JSON since decimal prices have no
	// native attributevalue mapping.
	ItemsJSON       string            `dynamodbav:"items_json"`
	ReservedItems   []ddbReservedItem `dynamodbav:"reserved_items"`
	ShippingAddress string            `dynamodbav:"shipping_address"`
	PaymentMethod   string            `dynamodbav:"payment_method"`
	Reason          string            `dynamodbav:"reason"`
	CreatedAt       string            `dynamodbav:"created_at"`
	UpdatedAt       string            `dynamodbav:"updated_at"`
}

func toDDB(res *models.Reservation) (ddbReservation, error) {
	items := make([]ddbReservedItem, 0, len(res.ReservedItems))
	for _, it := range res.ReservedItems {
		items = append(items, ddbReservedItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	itemsJSON, err := json.Marshal(res.Items)
	if err != nil {
		return ddbReservation{}, fmt.Errorf("marshal line items: %w", err)
	}

	return ddbReservation{
		TransactionID:   res.TransactionID,
		OrderID:         res.OrderID,
		UserID:          res.UserID,
		Status:          string(res.Status),
		ItemsJSON:       string(itemsJSON),
		ReservedItems:   items,
		ShippingAddress: res.ShippingAddress,
		PaymentMethod:   string(res.PaymentMethod),
		Reason:          res.Reason,
		CreatedAt:       res.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func fromDDB(dr *ddbReservation) (*models.Reservation, error) {
	items := make([]models.ReservedItem, 0, len(dr.ReservedItems))
	for _, it := range dr.ReservedItems {
		items = append(items, models.ReservedItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	var lines []contracts.LineItem
	if dr.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(dr.ItemsJSON), &lines); err != nil {
			return nil, fmt.Errorf("unmarshal line items: %w", err)
		}
	}

	res := &models.Reservation{
		TransactionID:   dr.TransactionID,
		OrderID:         dr.OrderID,
		UserID:          dr.UserID,
		Status:          models.ReservationStatus(dr.Status),
		Items:           lines,
		ReservedItems:   items,
		ShippingAddress: dr.ShippingAddress,
		PaymentMethod:   contracts.PaymentMethod(dr.PaymentMethod),
		Reason:          dr.Reason,
	}
	if t, err := time.Parse(time.RFC3339, dr.CreatedAt); err == nil {
		res.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dr.UpdatedAt); err == nil {
		res.UpdatedAt = t
	}
	return res, nil
}

func (r *DynamoReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	dr, err := toDDB(res)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(dr)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}

	condExpr := "attribute_not_exists(transaction_id)"
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: &condExpr,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrReservationExists
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoReservationRepository) Get(ctx context.Context, transactionID string) (*models.Reservation, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"transaction_id": transactionID})
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
		return nil, nil
	}

	var dr ddbReservation
	if err := attributevalue.UnmarshalMap(out.Item, &dr); err != nil {
		return nil, fmt.Errorf("unmarshal reservation: %w", err)
	}
	return fromDDB(&dr)
}

func (r *DynamoReservationRepository) Save(ctx context.Context, res *models.Reservation) error {
	dr, err := toDDB(res)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(dr)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
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
