package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeBorrows(t *testing.T) {
	rows := []Borrow{
		{PersonName: "karim", Amount: decimal.NewFromInt(25000)},
		{PersonName: "ahmed", Amount: decimal.NewFromInt(10000)},
		{PersonName: "karim", Amount: decimal.NewFromFloat(7500.50)},
	}

	out := SummarizeBorrows(rows)
	require.Len(t, out, 2)

	// Sorted by person name, amounts totalled per person.
	assert.Equal(t, "ahmed", out[0].PersonName)
	assert.True(t, out[0].Total.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "karim", out[1].PersonName)
	assert.True(t, out[1].Total.Equal(decimal.NewFromFloat(32500.50)))
}

func TestSummarizeBorrowsEmpty(t *testing.T) {
	assert.Empty(t, SummarizeBorrows(nil))
}
