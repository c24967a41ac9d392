package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_GenerateHash(t *testing.T) {
	base := Transaction{
		ID:          "txn1",
		Description: "Netflix",
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromFloat(15.99),
		Type:        TypeExpense,
		Owner:       "alice",
		RecurringID: "rec1",
	}

	same := base
	same.ID = "txn2" // a fresh ID for the same occurrence must collide
	assert.Equal(t, base.GenerateHash(), same.GenerateHash())

	nextMonth := base
	nextMonth.Date = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, base.GenerateHash(), nextMonth.GenerateHash())

	otherOwner := base
	otherOwner.Owner = "bob"
	assert.NotEqual(t, base.GenerateHash(), otherOwner.GenerateHash())

	otherAmount := base
	otherAmount.Amount = decimal.NewFromFloat(16.99)
	assert.NotEqual(t, base.GenerateHash(), otherAmount.GenerateHash())
}

func TestTransaction_Signed(t *testing.T) {
	expense := Transaction{Amount: decimal.NewFromInt(25), Type: TypeExpense}
	income := Transaction{Amount: decimal.NewFromInt(25), Type: TypeIncome}

	assert.True(t, expense.Signed().Equal(decimal.NewFromInt(-25)))
	assert.True(t, income.Signed().Equal(decimal.NewFromInt(25)))
}

func TestRecurringDefinition_Validate(t *testing.T) {
	valid := RecurringDefinition{
		ID:          "rec1",
		Owner:       "alice",
		Description: "Rent",
		Category:    "Rent",
		Amount:      decimal.NewFromInt(1200),
		Type:        TypeExpense,
		Frequency:   FrequencyMonthly,
		NextDate:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
	require.NoError(t, valid.Validate())

	badFreq := valid
	badFreq.Frequency = "fortnightly"
	require.Error(t, badFreq.Validate())

	badAmount := valid
	badAmount.Amount = decimal.Zero
	require.Error(t, badAmount.Validate())

	badType := valid
	badType.Type = "transfer"
	require.Error(t, badType.Validate())

	noDate := valid
	noDate.NextDate = time.Time{}
	require.Error(t, noDate.Validate())
}

func TestRecurringDefinition_Materialize(t *testing.T) {
	def := RecurringDefinition{
		ID:          "rec1",
		Owner:       "alice",
		Description: "Gym",
		Merchant:    "FitLife",
		Category:    "Subscriptions",
		Amount:      decimal.NewFromFloat(29.99),
		Type:        TypeExpense,
		AccountID:   "acct1",
		GroupID:     "grp1",
		Frequency:   FrequencyMonthly,
	}

	scheduled := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	txn := def.Materialize(scheduled)

	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, scheduled, txn.Date)
	assert.Equal(t, def.ID, txn.RecurringID)
	assert.Equal(t, def.Owner, txn.Owner)
	assert.Equal(t, def.GroupID, txn.GroupID)
	assert.True(t, txn.Amount.Equal(def.Amount))
	assert.Equal(t, txn.GenerateHash(), txn.Hash)

	// The same occurrence always materializes to the same hash.
	again := def.Materialize(scheduled)
	assert.Equal(t, txn.Hash, again.Hash)
}
