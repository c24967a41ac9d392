package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/model"
	"github.com/austinmedina/spendingManagement/internal/service"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func testTransaction(owner string, day time.Time, amount float64) *model.Transaction {
	return &model.Transaction{
		ID:          model.NewID(),
		Description: fmt.Sprintf("Purchase on %s", day.Format("2006-01-02")),
		Merchant:    "Corner Store",
		Category:    "Groceries",
		Date:        day,
		Amount:      decimal.NewFromFloat(amount),
		Type:        model.TypeExpense,
		Owner:       owner,
	}
}

func TestSaveTransaction_RoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := testTransaction("alice", testDate(2024, 3, 5), 42.50)
	txn.AccountID = "checking"
	txn.ReceiptImage = "receipts/2024-03-05.jpg"

	created, err := store.SaveTransaction(ctx, txn)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, txn.Hash, "save computes the hash when unset")

	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.Description, got.Description)
	assert.Equal(t, txn.Merchant, got.Merchant)
	assert.Equal(t, txn.AccountID, got.AccountID)
	assert.Equal(t, txn.ReceiptImage, got.ReceiptImage)
	assert.Equal(t, "2024-03-05", got.Date.Format("2006-01-02"))
	assert.True(t, got.Amount.Equal(txn.Amount))
	assert.Equal(t, model.TypeExpense, got.Type)
}

func TestSaveTransaction_DuplicateHashIgnored(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := testTransaction("alice", testDate(2024, 3, 5), 42.50)
	created, err := store.SaveTransaction(ctx, txn)
	require.NoError(t, err)
	require.True(t, created)

	// Same owner, date, amount and description under a fresh ID collapses
	// onto the same hash.
	dup := testTransaction("alice", testDate(2024, 3, 5), 42.50)
	created, err = store.SaveTransaction(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	txns, err := store.GetTransactions(ctx, service.TransactionFilter{Owner: "alice"})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestSaveTransaction_Invalid(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransaction(ctx, nil)
	assert.Error(t, err)

	missing := testTransaction("", testDate(2024, 3, 5), 10)
	_, err = store.SaveTransaction(ctx, missing)
	assert.Error(t, err)
}

func TestGetTransactions_Filters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	seed := []*model.Transaction{
		testTransaction("alice", testDate(2024, 3, 1), 10),
		testTransaction("alice", testDate(2024, 3, 15), 20),
		testTransaction("alice", testDate(2024, 4, 1), 30),
		testTransaction("bob", testDate(2024, 3, 10), 40),
	}
	seed[1].Category = "Dining"
	income := testTransaction("alice", testDate(2024, 3, 20), 1000)
	income.Type = model.TypeIncome
	income.Description = "Paycheck"
	seed = append(seed, income)

	for _, txn := range seed {
		created, err := store.SaveTransaction(ctx, txn)
		require.NoError(t, err)
		require.True(t, created)
	}

	start := testDate(2024, 3, 1)
	end := testDate(2024, 3, 31)

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   int
	}{
		{"by owner", service.TransactionFilter{Owner: "alice"}, 4},
		{"by date range", service.TransactionFilter{Owner: "alice", StartDate: &start, EndDate: &end}, 3},
		{"by category", service.TransactionFilter{Owner: "alice", Category: "Dining"}, 1},
		{"by type", service.TransactionFilter{Owner: "alice", Type: model.TypeIncome}, 1},
		{"with limit", service.TransactionFilter{Owner: "alice", Limit: 2}, 2},
		{"no filter returns everything", service.TransactionFilter{}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := store.GetTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, txns, tt.want)
		})
	}
}

func TestGetTransactions_NewestFirst(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, day := range []time.Time{
		testDate(2024, 3, 10),
		testDate(2024, 3, 1),
		testDate(2024, 3, 20),
	} {
		_, err := store.SaveTransaction(ctx, testTransaction("alice", day, 10))
		require.NoError(t, err)
	}

	txns, err := store.GetTransactions(ctx, service.TransactionFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "2024-03-20", txns[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-03-01", txns[2].Date.Format("2006-01-02"))
}

func TestGetRecentExpenses(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 3, 1+i), float64(10+i)))
		require.NoError(t, err)
	}
	income := testTransaction("alice", testDate(2024, 3, 25), 1000)
	income.Type = model.TypeIncome
	income.Description = "Paycheck"
	_, err := store.SaveTransaction(ctx, income)
	require.NoError(t, err)

	expenses, err := store.GetRecentExpenses(ctx, "alice", 4)
	require.NoError(t, err)
	require.Len(t, expenses, 4)
	for _, txn := range expenses {
		assert.Equal(t, model.TypeExpense, txn.Type)
	}
	assert.Equal(t, "2024-03-06", expenses[0].Date.Format("2006-01-02"))
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetTransactionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testRecurring(owner string, next time.Time) *model.RecurringDefinition {
	return &model.RecurringDefinition{
		ID:          model.NewID(),
		Owner:       owner,
		Description: "Rent",
		Category:    "Housing",
		Amount:      decimal.NewFromInt(1200),
		Type:        model.TypeExpense,
		Frequency:   model.FrequencyMonthly,
		NextDate:    next,
		Active:      true,
	}
}

func TestRecurringDefinition_Lifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	def := testRecurring("alice", testDate(2024, 4, 1))
	require.NoError(t, store.SaveRecurringDefinition(ctx, def))

	defs, err := store.GetRecurringDefinitions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Rent", defs[0].Description)
	assert.True(t, defs[0].Active)

	// Upsert on the same ID updates in place.
	def.Amount = decimal.NewFromInt(1250)
	require.NoError(t, store.SaveRecurringDefinition(ctx, def))
	defs, err = store.GetRecurringDefinitions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.True(t, defs[0].Amount.Equal(decimal.NewFromInt(1250)))

	require.NoError(t, store.UpdateRecurringNextDate(ctx, def.ID, testDate(2024, 5, 1)))
	defs, _ = store.GetRecurringDefinitions(ctx, "alice")
	assert.Equal(t, "2024-05-01", defs[0].NextDate.Format("2006-01-02"))

	require.NoError(t, store.SetRecurringActive(ctx, def.ID, false))
	active, err := store.GetActiveRecurringDefinitions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, active)
	defs, _ = store.GetRecurringDefinitions(ctx, "alice")
	assert.Len(t, defs, 1, "deactivated definitions remain listed")

	require.NoError(t, store.DeleteRecurringDefinition(ctx, def.ID))
	defs, _ = store.GetRecurringDefinitions(ctx, "alice")
	assert.Empty(t, defs)
}

func TestRecurringDefinition_UpdateMissing(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	err := store.UpdateRecurringNextDate(ctx, "missing", testDate(2024, 5, 1))
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.DeleteRecurringDefinition(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetActiveRecurringDefinitions_AllOwners(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecurringDefinition(ctx, testRecurring("alice", testDate(2024, 4, 1))))
	require.NoError(t, store.SaveRecurringDefinition(ctx, testRecurring("bob", testDate(2024, 4, 15))))

	all, err := store.GetActiveRecurringDefinitions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Soonest next date first.
	assert.Equal(t, "alice", all[0].Owner)
}

func testBudget(owner, category string, limit int64) *model.Budget {
	return &model.Budget{
		ID:        model.NewID(),
		Owner:     owner,
		Category:  category,
		Limit:     decimal.NewFromInt(limit),
		Period:    model.PeriodMonthly,
		StartDate: testDate(2024, 1, 1),
	}
}

func TestBudget_SaveAndGet(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBudget(ctx, testBudget("alice", "Groceries", 400)))
	require.NoError(t, store.SaveBudget(ctx, testBudget("alice", "Dining", 150)))
	require.NoError(t, store.SaveBudget(ctx, testBudget("bob", "Groceries", 300)))

	budgets, err := store.GetBudgets(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, budgets, 2)
}

func TestBudget_DuplicateCategoryRejected(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBudget(ctx, testBudget("alice", "Groceries", 400)))
	err := store.SaveBudget(ctx, testBudget("alice", "Groceries", 500))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestBudget_Delete(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	budget := testBudget("alice", "Groceries", 400)
	require.NoError(t, store.SaveBudget(ctx, budget))
	require.NoError(t, store.DeleteBudget(ctx, budget.ID))

	budgets, err := store.GetBudgets(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, budgets)

	assert.ErrorIs(t, store.DeleteBudget(ctx, budget.ID), common.ErrNotFound)
}

func TestGroupAndSplit_Lifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	group := &model.Group{
		ID:      model.NewID(),
		Name:    "Household",
		Members: []string{"alice", "bob"},
	}
	require.NoError(t, store.SaveGroup(ctx, group))

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Members)

	txn := testTransaction("alice", testDate(2024, 3, 5), 100)
	txn.GroupID = group.ID
	_, err = store.SaveTransaction(ctx, txn)
	require.NoError(t, err)

	// Unsplit transaction has no split record.
	split, err := store.GetSplit(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, split)

	require.NoError(t, store.SaveSplit(ctx, &model.Split{
		TransactionID: txn.ID,
		Shares: []model.SplitShare{
			{Member: "alice", Percent: decimal.NewFromInt(60)},
			{Member: "bob", Percent: decimal.NewFromInt(40)},
		},
	}))

	split, err = store.GetSplit(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, split)
	require.Len(t, split.Shares, 2)
	assert.Equal(t, "alice", split.Shares[0].Member)
	assert.True(t, split.Shares[0].Percent.Equal(decimal.NewFromInt(60)))

	// Re-saving replaces the previous split rather than accumulating shares.
	require.NoError(t, store.SaveSplit(ctx, &model.Split{
		TransactionID: txn.ID,
		Shares: []model.SplitShare{
			{Member: "alice", Percent: decimal.NewFromInt(50)},
			{Member: "bob", Percent: decimal.NewFromInt(50)},
		},
	}))
	split, err = store.GetSplit(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, split.Shares, 2)
	assert.True(t, split.Shares[0].Percent.Equal(decimal.NewFromInt(50)))
}

func TestListGroups_OrderedByName(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	require.NoError(t, store.SaveGroup(ctx, &model.Group{
		ID:      model.NewID(),
		Name:    "Roommates",
		Members: []string{"carol", "dave"},
	}))
	require.NoError(t, store.SaveGroup(ctx, &model.Group{
		ID:      model.NewID(),
		Name:    "Household",
		Members: []string{"alice", "bob"},
	}))

	groups, err = store.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Household", groups[0].Name)
	assert.Equal(t, "Roommates", groups[1].Name)
	assert.Equal(t, []string{"alice", "bob"}, groups[0].Members)
}

func TestSaveSplit_Rejections(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	group := &model.Group{ID: model.NewID(), Name: "Household", Members: []string{"alice", "bob"}}
	require.NoError(t, store.SaveGroup(ctx, group))

	grouped := testTransaction("alice", testDate(2024, 3, 5), 100)
	grouped.GroupID = group.ID
	_, err := store.SaveTransaction(ctx, grouped)
	require.NoError(t, err)

	ungrouped := testTransaction("alice", testDate(2024, 3, 6), 50)
	_, err = store.SaveTransaction(ctx, ungrouped)
	require.NoError(t, err)

	tests := []struct {
		name  string
		split *model.Split
	}{
		{
			name: "percentages that do not sum to 100",
			split: &model.Split{
				TransactionID: grouped.ID,
				Shares: []model.SplitShare{
					{Member: "alice", Percent: decimal.NewFromInt(60)},
					{Member: "bob", Percent: decimal.NewFromInt(30)},
				},
			},
		},
		{
			name: "share for a non-member",
			split: &model.Split{
				TransactionID: grouped.ID,
				Shares: []model.SplitShare{
					{Member: "alice", Percent: decimal.NewFromInt(50)},
					{Member: "mallory", Percent: decimal.NewFromInt(50)},
				},
			},
		},
		{
			name: "transaction without a group",
			split: &model.Split{
				TransactionID: ungrouped.ID,
				Shares: []model.SplitShare{
					{Member: "alice", Percent: decimal.NewFromInt(100)},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveSplit(ctx, tt.split))
		})
	}
}

func TestGetVisibleTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	group := &model.Group{ID: model.NewID(), Name: "Household", Members: []string{"alice", "bob"}}
	require.NoError(t, store.SaveGroup(ctx, group))

	shared := testTransaction("alice", testDate(2024, 3, 5), 100)
	shared.GroupID = group.ID
	_, err := store.SaveTransaction(ctx, shared)
	require.NoError(t, err)
	require.NoError(t, store.SaveSplit(ctx, &model.Split{
		TransactionID: shared.ID,
		Shares: []model.SplitShare{
			{Member: "alice", Percent: decimal.NewFromInt(50)},
			{Member: "bob", Percent: decimal.NewFromInt(50)},
		},
	}))

	private := testTransaction("alice", testDate(2024, 3, 6), 30)
	_, err = store.SaveTransaction(ctx, private)
	require.NoError(t, err)

	bobOwn := testTransaction("bob", testDate(2024, 3, 7), 15)
	_, err = store.SaveTransaction(ctx, bobOwn)
	require.NoError(t, err)

	visible, err := store.GetVisibleTransactions(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, visible, 2)

	ids := []string{visible[0].ID, visible[1].ID}
	assert.Contains(t, ids, shared.ID, "bob sees the transaction he holds a share of")
	assert.Contains(t, ids, bobOwn.ID)
	assert.NotContains(t, ids, private.ID, "alice's unshared spending stays hers")
}

func TestNotification_DedupeOnTuple(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := &model.Notification{
		ID:        model.NewID(),
		Owner:     "alice",
		Kind:      model.KindBudgetWarning,
		Title:     "Budget warning",
		Message:   "Groceries at 80%",
		Reference: "Groceries",
		Period:    "2024-03",
	}
	require.NoError(t, store.SaveNotification(ctx, first))

	dup := *first
	dup.ID = model.NewID()
	dup.Message = "Groceries at 82%"
	require.NoError(t, store.SaveNotification(ctx, &dup))

	notifications, err := store.GetNotifications(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Groceries at 80%", notifications[0].Message, "the first insert wins")
}

func TestFindNotification(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	n := &model.Notification{
		ID:        model.NewID(),
		Owner:     "alice",
		Kind:      model.KindBudgetWarning,
		Title:     "Budget warning",
		Message:   "Groceries at 80%",
		Reference: "Groceries",
		Period:    "2024-03",
	}
	require.NoError(t, store.SaveNotification(ctx, n))

	found, err := store.FindNotification(ctx, "alice", model.KindBudgetWarning, "Groceries", "2024-03")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, n.ID, found.ID)

	absent, err := store.FindNotification(ctx, "alice", model.KindBudgetWarning, "Groceries", "2024-04")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestUpdateNotificationKind(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	n := &model.Notification{
		ID:        model.NewID(),
		Owner:     "alice",
		Kind:      model.KindBudgetWarning,
		Title:     "Budget warning",
		Message:   "Groceries at 80%",
		Reference: "Groceries",
		Period:    "2024-03",
	}
	require.NoError(t, store.SaveNotification(ctx, n))
	require.NoError(t, store.MarkNotificationRead(ctx, n.ID))

	require.NoError(t, store.UpdateNotificationKind(ctx, n.ID,
		model.KindBudgetCritical, "Budget critical", "Groceries at 95%"))

	notifications, err := store.GetNotifications(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.KindBudgetCritical, notifications[0].Kind)
	assert.Equal(t, "Groceries at 95%", notifications[0].Message)
	assert.False(t, notifications[0].Read, "upgrading resets the read flag")

	err = store.UpdateNotificationKind(ctx, "missing", model.KindBudgetCritical, "t", "m")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNotification_ReadFlags(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		n := &model.Notification{
			ID:        model.NewID(),
			Owner:     "alice",
			Kind:      model.KindRecurringDue,
			Title:     "Recurring charge",
			Message:   "Rent posted",
			Reference: fmt.Sprintf("def-%d", i),
			Period:    "2024-03-01",
		}
		require.NoError(t, store.SaveNotification(ctx, n))
		ids = append(ids, n.ID)
	}

	require.NoError(t, store.MarkNotificationRead(ctx, ids[0]))

	unread, err := store.GetNotifications(ctx, "alice", true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	count, err := store.MarkAllNotificationsRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	unread, err = store.GetNotifications(ctx, "alice", true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	require.NoError(t, store.MarkNotificationEmailed(ctx, ids[0]))
	all, err := store.GetNotifications(ctx, "alice", false)
	require.NoError(t, err)
	var emailed int
	for _, n := range all {
		if n.EmailSent {
			emailed++
		}
	}
	assert.Equal(t, 1, emailed)
}

func TestOwners(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 3, 5), 10))
	require.NoError(t, err)
	require.NoError(t, store.SaveRecurringDefinition(ctx, testRecurring("bob", testDate(2024, 4, 1))))
	require.NoError(t, store.SaveBudget(ctx, testBudget("carol", "Groceries", 200)))

	owners, err := store.Owners(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, owners)
}

func TestGetMonthlySummary(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	groceries := testTransaction("alice", testDate(2024, 3, 5), 80)
	_, err := store.SaveTransaction(ctx, groceries)
	require.NoError(t, err)

	dining := testTransaction("alice", testDate(2024, 3, 12), 45.50)
	dining.Category = "Dining"
	_, err = store.SaveTransaction(ctx, dining)
	require.NoError(t, err)

	income := testTransaction("alice", testDate(2024, 3, 1), 2000)
	income.Type = model.TypeIncome
	income.Category = "Salary"
	income.Description = "Paycheck"
	_, err = store.SaveTransaction(ctx, income)
	require.NoError(t, err)

	// A different month must not leak into the summary.
	_, err = store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 2, 20), 500))
	require.NoError(t, err)

	summary, err := store.GetMonthlySummary(ctx, "alice", testDate(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, "2024-03", summary.Month)
	assert.Equal(t, 3, summary.Count)
	assert.True(t, summary.TotalExpenses.Equal(decimal.NewFromFloat(125.50)),
		"expenses were %s", summary.TotalExpenses)
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(2000)))
	assert.True(t, summary.Net.Equal(decimal.NewFromFloat(1874.50)))
	assert.True(t, summary.ByCategory["Groceries"].Equal(decimal.NewFromInt(80)))
	assert.True(t, summary.ByCategory["Dining"].Equal(decimal.NewFromFloat(45.50)))
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}
