package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{100, "$1.00"},
		{9100, "$91.00"},
		{123456, "$1,234.56"},
		{123456789, "$1,234,567.89"},
		{-2500, "-$25.00"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatCents(tc.cents), "cents=%d", tc.cents)
	}
}

func TestBuildOrderConfirmationBody(t *testing.T) {
	body := BuildOrderConfirmationBody("order-123", 9100, []OrderItem{
		{ProductID: "p1", Name: "Tee", Size: "M", Quantity: 2, Price: 2500},
		{ProductID: "p2", Quantity: 1, Price: 5000},
	})

	assert.Contains(t, body, "order-123")
	assert.Contains(t, body, "Tee (M)")
	// Items without a name fall back to the product ID.
	assert.Contains(t, body, "p2")
	assert.Contains(t, body, "$91.00")
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
}

func TestBuildOrderCancellationBody_DefaultReason(t *testing.T) {
	body := BuildOrderCancellationBody("order-123", "")
	assert.Contains(t, body, "the order was not paid in time")
}
