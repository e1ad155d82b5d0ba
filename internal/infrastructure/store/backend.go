package store

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
)

// Backend bundles the four persistence contracts a single implementation
// satisfies. Both DynamoStore and PostgresStore qualify.
type Backend interface {
	order.Store
	inventory.Store
	cart.Store
	user.Store
}

var (
	_ Backend = (*DynamoStore)(nil)
	_ Backend = (*PostgresStore)(nil)
)

// OpenDynamo builds a DynamoDB backend using the default AWS credential
// chain.
func OpenDynamo(ctx context.Context, tables DynamoTables) (*DynamoStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), tables), nil
}
