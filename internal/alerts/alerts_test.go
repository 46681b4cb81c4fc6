package alerts

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevops-backend/internal/models"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := now.AddDate(0, 0, -n)
	return &t
}

func intPtr(v int) *int { return &v }

func ptr(s string) *string { return &s }

func byID(alerts []models.Alert) map[string]models.Alert {
	m := make(map[string]models.Alert, len(alerts))
	for _, a := range alerts {
		m[a.ID] = a
	}
	return m
}

func TestOverdueReturns(t *testing.T) {
	e := New(DefaultPolicy())
	bar := models.Location{ID: "LOC-BAR", Name: "The Bar", Type: models.LocationCustomer}
	wh := models.Location{ID: "LOC-WH", Name: "Warehouse", Type: models.LocationWarehouse}

	snap := Snapshot{
		Locations: []models.Location{bar, wh},
		Containers: []models.Container{
			{ID: "KEG-0001", ProductName: "IPA", LocationID: "LOC-BAR", ExpectedReturnDate: daysAgo(5)},
			{ID: "KEG-0002", ProductName: "IPA", LocationID: "LOC-BAR", ExpectedReturnDate: daysAgo(20)},
			{ID: "KEG-0003", ProductName: "IPA", LocationID: "LOC-BAR", ExpectedReturnDate: daysAgo(45)},
			{ID: "KEG-0004", ProductName: "IPA", LocationID: "LOC-BAR", ExpectedReturnDate: daysAgo(-3)},
			{ID: "KEG-0005", ProductName: "IPA", LocationID: "LOC-WH", ExpectedReturnDate: daysAgo(60)},
		},
	}

	got := byID(e.OverdueReturns(snap, now))
	require.Len(t, got, 3)
	assert.Equal(t, models.AlertWarning, got["overdue-KEG-0001"].Severity)
	assert.Equal(t, models.AlertError, got["overdue-KEG-0002"].Severity)
	assert.Equal(t, models.AlertCritical, got["overdue-KEG-0003"].Severity)
	assert.Equal(t, "IPA at The Bar is 45 days overdue", got["overdue-KEG-0003"].Message)
}

func TestLowInventory(t *testing.T) {
	e := New(DefaultPolicy())
	var cs []models.Container
	for i := 0; i < 7; i++ {
		cs = append(cs, models.Container{ProductName: "IPA", Status: models.StatusFilled})
	}
	cs = append(cs,
		models.Container{ProductName: "Stout", Status: models.StatusEmpty},
		models.Container{ProductName: "Stout", Status: models.StatusInTransit},
	)
	for i := 0; i < 12; i++ {
		cs = append(cs, models.Container{ProductName: "Lager", Status: models.StatusFilled})
	}

	got := byID(e.LowInventory(Snapshot{Containers: cs, Thresholds: map[string]int{"Cider": 5}}, now))
	require.Len(t, got, 3)
	assert.Equal(t, models.AlertWarning, got["low-inventory-IPA"].Severity)
	assert.Equal(t, models.AlertError, got["low-inventory-Stout"].Severity)
	assert.Equal(t, models.AlertCritical, got["low-inventory-Cider"].Severity)
	assert.Equal(t, "IPA inventory is low: 7 units (threshold: 10)", got["low-inventory-IPA"].Message)
}

func TestOverCapacity(t *testing.T) {
	e := New(DefaultPolicy())
	snap := Snapshot{Locations: []models.Location{
		{ID: "A", Name: "Bay A", Capacity: intPtr(2), ContainerIDs: []string{"1", "2", "3"}},
		{ID: "B", Name: "Bay B", Capacity: intPtr(10), ContainerIDs: make([]string, 9)},
		{ID: "C", Name: "Bay C", Capacity: intPtr(10), ContainerIDs: make([]string, 5)},
		{ID: "D", Name: "Bay D", ContainerIDs: make([]string, 500)},
	}}

	got := byID(e.OverCapacity(snap, now))
	require.Len(t, got, 2)
	assert.Equal(t, models.AlertError, got["over-capacity-A"].Severity)
	assert.Equal(t, "Bay A is over capacity: 3/2 (150%)", got["over-capacity-A"].Message)
	assert.Equal(t, models.AlertWarning, got["near-capacity-B"].Severity)

	t.Run("packed units share their pallet's slot", func(t *testing.T) {
		pallet := models.Container{ID: "PLT-0001", Type: models.ContainerPallet, LocationID: "E"}
		ids := []string{pallet.ID}
		cs := []models.Container{pallet}
		for i := 0; i < 10; i++ {
			keg := models.Container{ID: fmt.Sprintf("KEG-%04d", i), Type: models.ContainerKeg, LocationID: "E", ParentID: ptr(pallet.ID)}
			ids = append(ids, keg.ID)
			cs = append(cs, keg)
		}
		snap := Snapshot{
			Locations:  []models.Location{{ID: "E", Name: "Bay E", Capacity: intPtr(2), ContainerIDs: ids}},
			Containers: cs,
		}
		assert.Empty(t, e.OverCapacity(snap, now))
	})
}

func TestDepositImbalance(t *testing.T) {
	e := New(DefaultPolicy())
	locs := []models.Location{
		{ID: "L1", Name: "Small", Type: models.LocationCustomer},
		{ID: "L2", Name: "Medium", Type: models.LocationCustomer},
		{ID: "L3", Name: "Large", Type: models.LocationCustomer},
		{ID: "L4", Name: "Paid Up", Type: models.LocationCustomer},
		{ID: "L5", Name: "Empty", Type: models.LocationCustomer},
	}
	var cs []models.Container
	add := func(loc string, n int) {
		for i := 0; i < n; i++ {
			cs = append(cs, models.Container{Type: models.ContainerKeg, LocationID: loc})
		}
	}
	add("L1", 2)  // 60 owed
	add("L2", 10) // 300 owed
	add("L3", 20) // 600 owed
	add("L4", 5)

	snap := Snapshot{
		Locations:  locs,
		Containers: cs,
		Deposits:   map[string]models.DepositLedger{"L4": {LocationID: "L4", Paid: 150}},
	}
	got := byID(e.DepositImbalance(snap, now))
	require.Len(t, got, 3)
	assert.NotContains(t, got, "deposit-imbalance-L4")
	assert.Equal(t, models.AlertInfo, got["deposit-imbalance-L1"].Severity)
	assert.Equal(t, models.AlertWarning, got["deposit-imbalance-L2"].Severity)
	assert.Equal(t, models.AlertError, got["deposit-imbalance-L3"].Severity)
	assert.Equal(t, "Large has 20 kegs but deposit shortfall of $600", got["deposit-imbalance-L3"].Message)

	t.Run("pallet of kegs matches the keg ledger", func(t *testing.T) {
		bar := models.Location{ID: "BAR", Name: "Bar", Type: models.LocationCustomer}
		cs := []models.Container{{ID: "PLT-0001", Type: models.ContainerPallet, LocationID: bar.ID}}
		for i := 0; i < 10; i++ {
			cs = append(cs, models.Container{ID: fmt.Sprintf("KEG-%04d", i), Type: models.ContainerKeg, LocationID: bar.ID, ParentID: ptr("PLT-0001")})
		}
		paid := Snapshot{
			Locations:  []models.Location{bar},
			Containers: cs,
			Deposits:   map[string]models.DepositLedger{bar.ID: {LocationID: bar.ID, Paid: 300}},
		}
		assert.Empty(t, e.DepositImbalance(paid, now))

		paid.Deposits[bar.ID] = models.DepositLedger{LocationID: bar.ID, Paid: 240}
		short := e.DepositImbalance(paid, now)
		require.Len(t, short, 1)
		assert.Equal(t, "Bar has 10 kegs but deposit shortfall of $60", short[0].Message)
	})
}

func TestExpiringProducts(t *testing.T) {
	e := New(DefaultPolicy())
	snap := Snapshot{Containers: []models.Container{
		{ID: "K1", ProductName: "IPA", BatchNumber: "B1", Status: models.StatusFilled, FillDate: daysAgo(100)},
		{ID: "K2", ProductName: "IPA", BatchNumber: "B2", Status: models.StatusFilled, FillDate: daysAgo(80)},
		{ID: "K3", ProductName: "IPA", BatchNumber: "B3", Status: models.StatusFilled, FillDate: daysAgo(10)},
		{ID: "K4", ProductName: "IPA", BatchNumber: "B4", Status: models.StatusEmpty, FillDate: daysAgo(100)},
	}}

	got := byID(e.ExpiringProducts(snap, now))
	require.Len(t, got, 2)
	assert.Equal(t, models.AlertCritical, got["expired-K1"].Severity)
	assert.Equal(t, models.AlertWarning, got["expiring-K2"].Severity)
	assert.Equal(t, "IPA (B2) expires in 10 days", got["expiring-K2"].Message)
}

func TestSort_CriticalFirst(t *testing.T) {
	warning := models.Alert{ID: "w", Severity: models.AlertWarning, Timestamp: now.Add(time.Hour)}
	critical := models.Alert{ID: "c", Severity: models.AlertCritical, Timestamp: now.Add(-time.Hour)}

	for _, in := range [][]models.Alert{{warning, critical}, {critical, warning}} {
		Sort(in)
		assert.Equal(t, "c", in[0].ID)
	}

	sameSev := []models.Alert{
		{ID: "old", Severity: models.AlertError, Timestamp: now.Add(-time.Hour)},
		{ID: "new", Severity: models.AlertError, Timestamp: now},
	}
	Sort(sameSev)
	assert.Equal(t, "new", sameSev[0].ID)
}

func TestAll(t *testing.T) {
	e := New(DefaultPolicy())
	snap := Snapshot{
		Locations: []models.Location{
			{ID: "LOC-BAR", Name: "The Bar", Type: models.LocationCustomer, Capacity: intPtr(1), ContainerIDs: []string{"KEG-0001", "KEG-0002"}},
		},
		Containers: []models.Container{
			{ID: "KEG-0001", ProductName: "IPA", LocationID: "LOC-BAR", Status: models.StatusDelivered, ExpectedReturnDate: daysAgo(40)},
			{ID: "KEG-0002", ProductName: "IPA", LocationID: "LOC-BAR", Status: models.StatusDelivered},
		},
	}

	got := e.All(snap, now)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Severity.Rank(), got[i].Severity.Rank())
	}
	assert.Equal(t, models.AlertCritical, got[0].Severity)

	again := e.All(snap, now)
	assert.Equal(t, got, again)

	sum := Summarize(got)
	assert.Equal(t, len(got), sum.Total)
	assert.Equal(t, 1, sum.Critical)

	assert.NotNil(t, e.All(Snapshot{}, now))
}
