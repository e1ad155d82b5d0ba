package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
)

// GSI names on the orders, cart and users tables.
const (
	orderStatusIndex = "gsi_status"
	orderTransIndex  = "gsi_app_trans_id"
	orderUserIndex   = "gsi_user"
	cartUserIndex    = "gsi_user"
	userEmailIndex   = "gsi_email"
)

const adjustStockRetries = 3

// DynamoTables names the document tables backing the storefront.
type DynamoTables struct {
	Orders   string
	Products string
	Cart     string
	Users    string
}

// DynamoStore implements the order, inventory, cart and user store
// contracts over DynamoDB document tables. Status transitions and stock
// adjustments are expressed as conditional updates so concurrent writers
// can never overwrite each other.
type DynamoStore struct {
	client *dynamodb.Client
	tables DynamoTables
}

func NewDynamoStore(client *dynamodb.Client, tables DynamoTables) *DynamoStore {
	return &DynamoStore{client: client, tables: tables}
}

// dynamoOrder is the Orders table item structure. order_time is stored as
// UTC RFC3339 so the status GSI range condition compares correctly.
type dynamoOrder struct {
	ID          string `dynamodbav:"id"`
	UserID      string `dynamodbav:"user_id"`
	Items       string `dynamodbav:"items"` // JSON-encoded line items
	Subtotal    int64  `dynamodbav:"subtotal"`
	Discount    int64  `dynamodbav:"discount"`
	ShippingFee int64  `dynamodbav:"shipping_fee"`
	Total       int64  `dynamodbav:"total"`
	Status      string `dynamodbav:"order_status"`
	Address     string `dynamodbav:"address"`
	Phone       string `dynamodbav:"phone"`
	AppTransID  string `dynamodbav:"app_trans_id,omitempty"`
	OrderTime   string `dynamodbav:"order_time"`
	UpdateTime  string `dynamodbav:"update_time"`
}

func marshalOrder(o *order.Order) (map[string]types.AttributeValue, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, err
	}
	return attributevalue.MarshalMap(dynamoOrder{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       string(items),
		Subtotal:    o.Subtotal,
		Discount:    o.Discount,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		Status:      string(o.Status),
		Address:     o.Address,
		Phone:       o.Phone,
		AppTransID:  o.AppTransID,
		OrderTime:   o.OrderTime.UTC().Format(time.RFC3339),
		UpdateTime:  o.UpdateTime.UTC().Format(time.RFC3339),
	})
}

func unmarshalOrder(item map[string]types.AttributeValue) (*order.Order, error) {
	var do dynamoOrder
	if err := attributevalue.UnmarshalMap(item, &do); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order item: %w", err)
	}
	var items []order.LineItem
	if err := json.Unmarshal([]byte(do.Items), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	orderTime, _ := time.Parse(time.RFC3339, do.OrderTime)
	updateTime, _ := time.Parse(time.RFC3339, do.UpdateTime)
	return &order.Order{
		ID:          do.ID,
		UserID:      do.UserID,
		Items:       items,
		Subtotal:    do.Subtotal,
		Discount:    do.Discount,
		ShippingFee: do.ShippingFee,
		Total:       do.Total,
		Status:      order.Status(do.Status),
		Address:     do.Address,
		Phone:       do.Phone,
		AppTransID:  do.AppTransID,
		OrderTime:   orderTime,
		UpdateTime:  updateTime,
	}, nil
}

// Order store

func (s *DynamoStore) Create(ctx context.Context, o *order.Order) error {
	av, err := marshalOrder(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Orders),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, id string) (*order.Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Orders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if result.Item == nil {
		return nil, order.ErrOrderNotFound
	}
	return unmarshalOrder(result.Item)
}

func (s *DynamoStore) GetByAppTransID(ctx context.Context, appTransID string) (*order.Order, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Orders),
		IndexName:              aws.String(orderTransIndex),
		KeyConditionExpression: aws.String("app_trans_id = :tid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tid": &types.AttributeValueMemberS{Value: appTransID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by app_trans_id: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return unmarshalOrder(result.Items[0])
}

func (s *DynamoStore) SetAppTransID(ctx context.Context, orderID, appTransID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tables.Orders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:    aws.String("SET app_trans_id = :tid"),
		ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(app_trans_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tid": &types.AttributeValueMemberS{Value: appTransID},
		},
	})
	if isConditionalCheckFailed(err) {
		if _, getErr := s.Get(ctx, orderID); errors.Is(getErr, order.ErrOrderNotFound) {
			return order.ErrOrderNotFound
		}
		return order.ErrTransIDSet
	}
	if err != nil {
		return fmt.Errorf("failed to set app_trans_id: %w", err)
	}
	return nil
}

func (s *DynamoStore) Transition(ctx context.Context, orderID string, from, to order.Status, at time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tables.Orders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:    aws.String("SET order_status = :to, update_time = :at"),
		ConditionExpression: aws.String("attribute_exists(id) AND order_status = :from"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from": &types.AttributeValueMemberS{Value: string(from)},
			":to":   &types.AttributeValueMemberS{Value: string(to)},
			":at":   &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		},
	})
	if isConditionalCheckFailed(err) {
		if _, getErr := s.Get(ctx, orderID); errors.Is(getErr, order.ErrOrderNotFound) {
			return order.ErrOrderNotFound
		}
		return order.ErrStatusConflict
	}
	if err != nil {
		return fmt.Errorf("failed to transition order: %w", err)
	}
	return nil
}

// CancelAndRestock commits the status transition and the per-size stock
// credits in a single DynamoDB transaction. Either everything applies or
// nothing does.
func (s *DynamoStore) CancelAndRestock(ctx context.Context, orderID string, restock []order.LineItem, at time.Time) error {
	writes := make([]types.TransactWriteItem, 0, len(restock)+1)
	writes = append(writes, types.TransactWriteItem{
		Update: &types.Update{
			TableName: aws.String(s.tables.Orders),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: orderID},
			},
			UpdateExpression:    aws.String("SET order_status = :to, update_time = :at"),
			ConditionExpression: aws.String("attribute_exists(id) AND order_status = :from"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":from": &types.AttributeValueMemberS{Value: string(order.StatusAwaitingPayment)},
				":to":   &types.AttributeValueMemberS{Value: string(order.StatusCancelled)},
				":at":   &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
			},
		},
	})
	for _, item := range restock {
		writes = append(writes, types.TransactWriteItem{
			Update: &types.Update{
				TableName: aws.String(s.tables.Products),
				Key: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: item.ProductID},
				},
				UpdateExpression:    aws.String(stockAdjustExpr),
				ConditionExpression: aws.String("attribute_exists(stock.#size)"),
				ExpressionAttributeNames: map[string]string{
					"#size": item.Size,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(item.Quantity)},
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err == nil {
		return nil
	}

	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for i, reason := range cancelled.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
				continue
			}
			if i == 0 {
				return order.ErrStatusConflict
			}
			item := restock[i-1]
			return fmt.Errorf("%w: product %s size %s", inventory.ErrNotFound, item.ProductID, item.Size)
		}
	}
	return fmt.Errorf("failed to cancel and restock order: %w", err)
}

func (s *DynamoStore) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Orders),
		IndexName:              aws.String(orderUserIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by user: %w", err)
	}
	return unmarshalOrders(result.Items)
}

func (s *DynamoStore) ListAwaitingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Orders),
		IndexName:              aws.String(orderStatusIndex),
		KeyConditionExpression: aws.String("order_status = :status AND order_time <= :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(order.StatusAwaitingPayment)},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query awaiting orders: %w", err)
	}
	return unmarshalOrders(result.Items)
}

func unmarshalOrders(items []map[string]types.AttributeValue) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(items))
	for _, item := range items {
		o, err := unmarshalOrder(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Product store

type dynamoProduct struct {
	ID    string         `dynamodbav:"id"`
	Name  string         `dynamodbav:"name"`
	Price int64          `dynamodbav:"price"`
	Stock map[string]int `dynamodbav:"stock"`
}

func (s *DynamoStore) GetProduct(ctx context.Context, productID string) (*inventory.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Products),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if result.Item == nil {
		return nil, inventory.ErrNotFound
	}
	var dp dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Item, &dp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &inventory.Product{ID: dp.ID, Name: dp.Name, Price: dp.Price, Stock: dp.Stock}, nil
}

func (s *DynamoStore) PutProduct(ctx context.Context, p *inventory.Product) error {
	av, err := attributevalue.MarshalMap(dynamoProduct{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Stock: p.Stock,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Products),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	return nil
}

func (s *DynamoStore) ListProducts(ctx context.Context) ([]*inventory.Product, error) {
	result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.Products),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	products := make([]*inventory.Product, 0, len(result.Items))
	for _, item := range result.Items {
		var dp dynamoProduct
		if err := attributevalue.UnmarshalMap(item, &dp); err != nil {
			continue
		}
		products = append(products, &inventory.Product{ID: dp.ID, Name: dp.Name, Price: dp.Price, Stock: dp.Stock})
	}
	return products, nil
}

// stockAdjustExpr applies a relative adjustment to one size entry inside the
// stock map. ADD only works on top-level attributes; a nested path has to be
// adjusted with SET. The attribute_exists condition keeps the expression from
// minting a size record out of nothing.
const stockAdjustExpr = "SET stock.#size = stock.#size + :delta"

// AdjustStock applies an atomic increment to one size record. A debit is
// conditioned on the result staying >= 0; contended writes are retried a
// bounded number of times before reporting ErrConflict.
func (s *DynamoStore) AdjustStock(ctx context.Context, productID, size string, delta int) error {
	condition := "attribute_exists(stock.#size)"
	values := map[string]types.AttributeValue{
		":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
	}
	if delta < 0 {
		condition += " AND stock.#size >= :need"
		values[":need"] = &types.AttributeValueMemberN{Value: strconv.Itoa(-delta)}
	}

	var lastErr error
	for attempt := 0; attempt < adjustStockRetries; attempt++ {
		_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(s.tables.Products),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: productID},
			},
			UpdateExpression:          aws.String(stockAdjustExpr),
			ConditionExpression:       aws.String(condition),
			ExpressionAttributeNames:  map[string]string{"#size": size},
			ExpressionAttributeValues: values,
		})
		if err == nil {
			return nil
		}
		if isConditionalCheckFailed(err) {
			p, getErr := s.GetProduct(ctx, productID)
			if getErr != nil {
				return getErr
			}
			if _, ok := p.Available(size); !ok {
				return inventory.ErrNotFound
			}
			return inventory.ErrInsufficientStock
		}
		var conflict *types.TransactionConflictException
		if !errors.As(err, &conflict) {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", inventory.ErrConflict, lastErr)
}

// Cart store

type dynamoCartLine struct {
	ID        string `dynamodbav:"id"`
	UserID    string `dynamodbav:"user_id"`
	ProductID string `dynamodbav:"product_id"`
	Size      string `dynamodbav:"size"`
	Quantity  int    `dynamodbav:"quantity"`
	AddedAt   string `dynamodbav:"added_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func toCartLine(dl dynamoCartLine) *cart.Line {
	addedAt, _ := time.Parse(time.RFC3339Nano, dl.AddedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, dl.UpdatedAt)
	return &cart.Line{
		ID:        dl.ID,
		UserID:    dl.UserID,
		ProductID: dl.ProductID,
		Size:      dl.Size,
		Quantity:  dl.Quantity,
		AddedAt:   addedAt,
		UpdatedAt: updatedAt,
	}
}

func (s *DynamoStore) GetLine(ctx context.Context, lineID string) (*cart.Line, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Cart),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: lineID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}
	if result.Item == nil {
		return nil, cart.ErrLineNotFound
	}
	var dl dynamoCartLine
	if err := attributevalue.UnmarshalMap(result.Item, &dl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart line: %w", err)
	}
	return toCartLine(dl), nil
}

func (s *DynamoStore) FindLine(ctx context.Context, userID, productID, size string) (*cart.Line, error) {
	lines, err := s.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.ProductID == productID && line.Size == size {
			return line, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (s *DynamoStore) SaveLine(ctx context.Context, line *cart.Line) error {
	av, err := attributevalue.MarshalMap(dynamoCartLine{
		ID:        line.ID,
		UserID:    line.UserID,
		ProductID: line.ProductID,
		Size:      line.Size,
		Quantity:  line.Quantity,
		AddedAt:   line.AddedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: line.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cart line: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Cart),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put cart line: %w", err)
	}
	return nil
}

func (s *DynamoStore) DeleteLine(ctx context.Context, lineID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tables.Cart),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: lineID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (s *DynamoStore) ListLines(ctx context.Context, userID string) ([]*cart.Line, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Cart),
		IndexName:              aws.String(cartUserIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	lines := make([]*cart.Line, 0, len(result.Items))
	for _, item := range result.Items {
		var dl dynamoCartLine
		if err := attributevalue.UnmarshalMap(item, &dl); err != nil {
			continue
		}
		lines = append(lines, toCartLine(dl))
	}
	return lines, nil
}

// User store

type dynamoUser struct {
	ID              string `dynamodbav:"id"`
	Email           string `dynamodbav:"email"`
	Name            string `dynamodbav:"name"`
	PasswordHash    string `dynamodbav:"password_hash"`
	MembershipLevel string `dynamodbav:"membership_level"`
	Role            string `dynamodbav:"role"`
	CreatedAt       string `dynamodbav:"created_at"`
}

func toUser(du dynamoUser) *user.User {
	createdAt, _ := time.Parse(time.RFC3339Nano, du.CreatedAt)
	return &user.User{
		ID:              du.ID,
		Email:           du.Email,
		Name:            du.Name,
		PasswordHash:    du.PasswordHash,
		MembershipLevel: du.MembershipLevel,
		Role:            du.Role,
		CreatedAt:       createdAt,
	}
}

func (s *DynamoStore) CreateUser(ctx context.Context, u *user.User) error {
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrUserNotFound) {
		return err
	}

	av, err := attributevalue.MarshalMap(dynamoUser{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		PasswordHash:    u.PasswordHash,
		MembershipLevel: u.MembershipLevel,
		Role:            u.Role,
		CreatedAt:       u.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Users),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Users),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, user.ErrUserNotFound
	}
	var du dynamoUser
	if err := attributevalue.UnmarshalMap(result.Item, &du); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return toUser(du), nil
}

func (s *DynamoStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Users),
		IndexName:              aws.String(userEmailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, user.ErrUserNotFound
	}
	var du dynamoUser
	if err := attributevalue.UnmarshalMap(result.Items[0], &du); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return toUser(du), nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
