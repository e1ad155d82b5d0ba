package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================
// Stock Update Expression Tests
// ============================================

// The per-size quantities live inside the nested stock map, and DynamoDB's
// ADD action is only valid on top-level attributes. The shared expression
// must therefore SET the nested path; an ADD here fails at runtime with a
// ValidationException on every credit and debit.
func TestStockAdjustExpr_SetsNestedPath(t *testing.T) {
	assert.Equal(t, "SET stock.#size = stock.#size + :delta", stockAdjustExpr)
	assert.False(t, strings.Contains(stockAdjustExpr, "ADD"))
}
