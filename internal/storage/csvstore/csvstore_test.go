package csvstore

import (
	"context"
	"fmt"
	"os"
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

func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
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

func TestNew_CreatesEntityFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir)
	require.NoError(t, err)

	for _, name := range []string{"transactions", "recurring", "budgets", "groups", "splits", "notifications"} {
		info, err := os.Stat(filepath.Join(dir, name+".csv"))
		require.NoError(t, err, "%s.csv must exist", name)
		assert.Greater(t, info.Size(), int64(0), "%s.csv must carry a header row", name)
	}
}

func TestNew_EmptyDirRejected(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestSaveTransaction_RoundTrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	txn := testTransaction("alice", testDate(2024, 3, 5), 42.50)
	txn.GroupID = "household"
	created, err := store.SaveTransaction(ctx, txn)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.Description, got.Description)
	assert.Equal(t, txn.GroupID, got.GroupID)
	assert.Equal(t, "2024-03-05", got.Date.Format("2006-01-02"))
	assert.True(t, got.Amount.Equal(txn.Amount))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveTransaction_DuplicateHashIgnored(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	created, err := store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 3, 5), 42.50))
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 3, 5), 42.50))
	require.NoError(t, err)
	assert.False(t, created)

	txns, err := store.GetTransactions(ctx, service.TransactionFilter{Owner: "alice"})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestGetTransactions_FilterAndOrder(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, day := range []time.Time{
		testDate(2024, 3, 10),
		testDate(2024, 3, 1),
		testDate(2024, 3, 20),
	} {
		_, err := store.SaveTransaction(ctx, testTransaction("alice", day, 10))
		require.NoError(t, err)
	}
	_, err := store.SaveTransaction(ctx, testTransaction("bob", testDate(2024, 3, 15), 10))
	require.NoError(t, err)

	txns, err := store.GetTransactions(ctx, service.TransactionFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "2024-03-20", txns[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-03-01", txns[2].Date.Format("2006-01-02"))

	start := testDate(2024, 3, 5)
	txns, err = store.GetTransactions(ctx, service.TransactionFilter{Owner: "alice", StartDate: &start})
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestRecurringDefinition_Lifecycle(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	def := &model.RecurringDefinition{
		ID:          model.NewID(),
		Owner:       "alice",
		Description: "Rent",
		Category:    "Housing",
		Amount:      decimal.NewFromInt(1200),
		Type:        model.TypeExpense,
		Frequency:   model.FrequencyMonthly,
		NextDate:    testDate(2024, 4, 1),
		Active:      true,
	}
	require.NoError(t, store.SaveRecurringDefinition(ctx, def))

	def.Amount = decimal.NewFromInt(1250)
	require.NoError(t, store.SaveRecurringDefinition(ctx, def))

	defs, err := store.GetRecurringDefinitions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, defs, 1, "upsert must not duplicate the definition")
	assert.True(t, defs[0].Amount.Equal(decimal.NewFromInt(1250)))

	require.NoError(t, store.UpdateRecurringNextDate(ctx, def.ID, testDate(2024, 5, 1)))
	defs, _ = store.GetRecurringDefinitions(ctx, "alice")
	assert.Equal(t, "2024-05-01", defs[0].NextDate.Format("2006-01-02"))

	require.NoError(t, store.SetRecurringActive(ctx, def.ID, false))
	active, err := store.GetActiveRecurringDefinitions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, store.DeleteRecurringDefinition(ctx, def.ID))
	assert.ErrorIs(t, store.DeleteRecurringDefinition(ctx, def.ID), common.ErrNotFound)
}

func TestBudget_DuplicateCategoryRejected(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	budget := &model.Budget{
		ID:        model.NewID(),
		Owner:     "alice",
		Category:  "Groceries",
		Limit:     decimal.NewFromInt(400),
		Period:    model.PeriodMonthly,
		StartDate: testDate(2024, 1, 1),
	}
	require.NoError(t, store.SaveBudget(ctx, budget))

	dup := *budget
	dup.ID = model.NewID()
	err := store.SaveBudget(ctx, &dup)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestGroupMembers_SurviveRoundTrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	group := &model.Group{
		ID:      model.NewID(),
		Name:    "Household",
		Members: []string{"alice", "bob", "carol"},
	}
	require.NoError(t, store.SaveGroup(ctx, group))

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.Members, got.Members)
}

func TestListGroups_OrderedByName(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

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

	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Household", groups[0].Name)
	assert.Equal(t, "Roommates", groups[1].Name)
	assert.Equal(t, []string{"alice", "bob"}, groups[0].Members)
}

func TestSplit_ValidatedAndVisible(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	group := &model.Group{ID: model.NewID(), Name: "Household", Members: []string{"alice", "bob"}}
	require.NoError(t, store.SaveGroup(ctx, group))

	txn := testTransaction("alice", testDate(2024, 3, 5), 100)
	txn.GroupID = group.ID
	_, err := store.SaveTransaction(ctx, txn)
	require.NoError(t, err)

	err = store.SaveSplit(ctx, &model.Split{
		TransactionID: txn.ID,
		Shares: []model.SplitShare{
			{Member: "alice", Percent: decimal.NewFromInt(70)},
			{Member: "bob", Percent: decimal.NewFromInt(20)},
		},
	})
	assert.Error(t, err, "shares summing to 90 must be rejected")

	require.NoError(t, store.SaveSplit(ctx, &model.Split{
		TransactionID: txn.ID,
		Shares: []model.SplitShare{
			{Member: "alice", Percent: decimal.NewFromInt(70)},
			{Member: "bob", Percent: decimal.NewFromInt(30)},
		},
	}))

	split, err := store.GetSplit(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, split)
	assert.Len(t, split.Shares, 2)

	visible, err := store.GetVisibleTransactions(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, txn.ID, visible[0].ID)
}

func TestNotification_DedupeAndUpgrade(t *testing.T) {
	store := createTestStore(t)
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

	dup := *n
	dup.ID = model.NewID()
	require.NoError(t, store.SaveNotification(ctx, &dup))
	all, err := store.GetNotifications(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, all, 1)

	found, err := store.FindNotification(ctx, "alice", model.KindBudgetWarning, "Groceries", "2024-03")
	require.NoError(t, err)
	require.NotNil(t, found)

	require.NoError(t, store.UpdateNotificationKind(ctx, found.ID,
		model.KindBudgetCritical, "Budget critical", "Groceries at 95%"))
	all, err = store.GetNotifications(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.KindBudgetCritical, all[0].Kind)
	assert.False(t, all[0].Read)

	absent, err := store.FindNotification(ctx, "alice", model.KindBudgetWarning, "Groceries", "2024-04")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestNotification_ReadFlags(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveNotification(ctx, &model.Notification{
			ID:        model.NewID(),
			Owner:     "alice",
			Kind:      model.KindRecurringDue,
			Title:     "Recurring charge",
			Message:   "Rent posted",
			Reference: fmt.Sprintf("def-%d", i),
			Period:    "2024-03-01",
		}))
	}

	count, err := store.MarkAllNotificationsRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	unread, err := store.GetNotifications(ctx, "alice", true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(dir)
	require.NoError(t, err)
	txn := testTransaction("alice", testDate(2024, 3, 5), 42.50)
	_, err = store.SaveTransaction(ctx, txn)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.Description, got.Description)
}

func TestGetMonthlySummary(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	_, err := store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 3, 5), 80))
	require.NoError(t, err)

	income := testTransaction("alice", testDate(2024, 3, 1), 2000)
	income.Type = model.TypeIncome
	income.Category = "Salary"
	income.Description = "Paycheck"
	_, err = store.SaveTransaction(ctx, income)
	require.NoError(t, err)

	_, err = store.SaveTransaction(ctx, testTransaction("alice", testDate(2024, 2, 20), 500))
	require.NoError(t, err)

	summary, err := store.GetMonthlySummary(ctx, "alice", testDate(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, "2024-03", summary.Month)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.TotalExpenses.Equal(decimal.NewFromInt(80)))
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(2000)))
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(1920)))
}
