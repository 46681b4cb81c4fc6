package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevops-backend/internal/database"
	"bevops-backend/internal/database/dbtest"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

func TestRepositoryRoundTrip(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	tr := tracking.New(database.NewSequence(db), tracking.WithClock(func() time.Time { return now }))

	t.Run("sequence issues increasing ids", func(t *testing.T) {
		a, err := tr.IssueID(ctx, models.ContainerKeg)
		require.NoError(t, err)
		b, err := tr.IssueID(ctx, models.ContainerKeg)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	var kegs []models.Container
	for i := 0; i < 2; i++ {
		keg, err := tr.CreateContainer(ctx, models.ContainerKeg, "Hoppy Trail IPA", "B-100",
			tracking.WithLocation("warehouse", models.LocationWarehouse))
		require.NoError(t, err)
		require.NoError(t, database.InsertContainer(ctx, db, keg))
		kegs = append(kegs, keg)
	}

	t.Run("container with children round trips", func(t *testing.T) {
		pallet, err := tr.CreatePallet(ctx, kegs, "")
		require.NoError(t, err)
		require.NoError(t, database.InsertContainer(ctx, db, pallet))

		got, err := database.GetContainer(ctx, db, pallet.ID)
		require.NoError(t, err)
		assert.Equal(t, pallet.ChildIDs, got.ChildIDs)
		assert.Equal(t, models.ContainerPallet, got.Type)
	})

	t.Run("missing container wraps database.ErrNotFound", func(t *testing.T) {
		_, err := database.GetContainer(ctx, db, "KEG-9999")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("locked batch returns rows in id order", func(t *testing.T) {
		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()

		got, err := database.GetContainersForUpdate(ctx, tx, []string{kegs[1].ID, kegs[0].ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, kegs[0].ID, got[0].ID)
	})

	t.Run("warehouse lists its containers", func(t *testing.T) {
		loc, err := database.GetLocation(ctx, db, "warehouse")
		require.NoError(t, err)
		assert.Contains(t, loc.ContainerIDs, kegs[0].ID)
	})

	t.Run("deposits never go negative", func(t *testing.T) {
		customer := tracking.LocationID("Riverside Pub")
		require.NoError(t, database.AddDepositOwed(ctx, db, customer, 60))
		require.NoError(t, database.AddDepositOwed(ctx, db, customer, -90))
		require.NoError(t, database.RecordDepositPayment(ctx, db, customer, 25))

		deposits, err := database.ListDeposits(ctx, db)
		require.NoError(t, err)
		assert.Zero(t, deposits[customer].Owed)
		assert.InDelta(t, 25.0, deposits[customer].Paid, 1e-9)
	})

	t.Run("inventory levels grade seeded products", func(t *testing.T) {
		levels, err := database.InventoryLevels(ctx, db, 10)
		require.NoError(t, err)
		assert.Equal(t, models.InventoryCritical, levels["Golden Lager"])
	})

	t.Run("breakdown and customer ranking", func(t *testing.T) {
		groups, err := database.InventoryBreakdown(ctx, db, "product")
		require.NoError(t, err)
		require.NotEmpty(t, groups)
		assert.Equal(t, "Hoppy Trail IPA", groups[0].Group)

		_, err = database.InventoryBreakdown(ctx, db, "qr_code")
		assert.Error(t, err)

		customers, err := database.TopCustomers(ctx, db, "owed", 5, now)
		require.NoError(t, err)
		assert.Len(t, customers, 3)
	})

	t.Run("snapshot loads everything", func(t *testing.T) {
		snap, err := database.LoadSnapshot(ctx, db)
		require.NoError(t, err)
		assert.NotEmpty(t, snap.Locations)
		assert.GreaterOrEqual(t, len(snap.Containers), 3)
		assert.Contains(t, snap.Thresholds, "Hoppy Trail IPA")
	})
}

func TestCleaningAndMaintenanceRows(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	tr := tracking.New(database.NewSequence(db))
	keg, err := tr.CreateContainer(ctx, models.ContainerKeg, "Midnight Stout", "B-7")
	require.NoError(t, err)
	require.NoError(t, database.InsertContainer(ctx, db, keg))

	item := models.CleaningQueueItem{
		ID: "CLN-1", ContainerID: keg.ID, ContainerType: keg.Type, ProductName: keg.ProductName,
		ReturnedFrom: "Riverside Pub", ReturnedAt: now,
		Condition: models.ConditionDirty, Priority: models.PriorityHigh, Status: models.CleaningQueued,
	}
	require.NoError(t, database.InsertCleaningItem(ctx, db, item))

	queued, err := database.ListCleaningQueue(ctx, db, models.CleaningQueued)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, models.PriorityHigh, queued[0].Priority)

	item.Status = models.CleaningInProgress
	item.StartedAt = &now
	require.NoError(t, database.SaveCleaningItem(ctx, db, item))
	got, err := database.GetCleaningItem(ctx, db, "CLN-1")
	require.NoError(t, err)
	assert.Equal(t, models.CleaningInProgress, got.Status)

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	pending, err := database.OpenCleaningItemsFor(ctx, tx, keg.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.Len(t, pending, 1)
	assert.Equal(t, "CLN-1", pending[0].ID)

	ticket := models.MaintenanceItem{
		ID: "MNT-1", ContainerID: keg.ID, ContainerType: keg.Type, Issue: "Leaking spear",
		Severity: models.SeverityMajor, Status: models.MaintenanceReported, ReportedAt: now, ReportedBy: "system",
	}
	require.NoError(t, database.InsertMaintenanceItem(ctx, db, ticket))

	open, err := database.OpenMaintenanceFor(ctx, db, keg.ID)
	require.NoError(t, err)
	assert.True(t, open)

	ticket.Status = models.MaintenanceScrapped
	ticket.CompletedAt = &now
	require.NoError(t, database.SaveMaintenanceItem(ctx, db, ticket))

	open, err = database.OpenMaintenanceFor(ctx, db, keg.ID)
	require.NoError(t, err)
	assert.False(t, open)
}
