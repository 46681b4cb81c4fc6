package tracking

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevops-backend/internal/models"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	return New(NewMemorySequence(), WithClock(func() time.Time { return fixedNow }))
}

func ptr[T any](v T) *T { return &v }

func TestIssueID(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	tests := []struct {
		ct   models.ContainerType
		want string
	}{
		{models.ContainerKeg, "KEG-0001"},
		{models.ContainerKeg, "KEG-0002"},
		{models.ContainerCase, "CASE-0001"},
		{models.ContainerPallet, "PLT-0001"},
		{models.ContainerBottle, "BTL-0001"},
		{models.ContainerCan, "CAN-0001"},
	}
	for _, tt := range tests {
		id, err := tr.IssueID(ctx, tt.ct)
		require.NoError(t, err)
		assert.Equal(t, tt.want, id)
	}

	t.Run("unknown type", func(t *testing.T) {
		_, err := tr.IssueID(ctx, models.ContainerType("barrel"))
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("wide numbers keep digits", func(t *testing.T) {
		id, err := FormatID(models.ContainerKeg, 12345)
		require.NoError(t, err)
		assert.Equal(t, "KEG-12345", id)
	})
}

func TestCreateContainer(t *testing.T) {
	tr := newTestTracker()
	c, err := tr.CreateContainer(context.Background(), models.ContainerKeg, "IPA", "B-1", WithVolume("15.5 gal"))
	require.NoError(t, err)

	assert.Equal(t, "KEG-0001", c.ID)
	assert.Equal(t, "qr:KEG-0001", c.QRCode)
	assert.Equal(t, models.StatusProduction, c.Status)
	assert.Equal(t, "15.5 gal", c.Volume)
	require.Len(t, c.History, 1)
	assert.Equal(t, "Created", c.History[0].Action)
	assert.Equal(t, "Production", c.History[0].Location)
	assert.Equal(t, fixedNow, c.CreatedAt)
}

func TestCreateCase_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker()

	var members []models.Container
	var sum float64
	for i := 0; i < 6; i++ {
		w := 2.0 + float64(i)
		b, err := tr.CreateContainer(ctx, models.ContainerBottle, "Lager", "B-7", WithWeight(w))
		require.NoError(t, err)
		members = append(members, b)
		sum += w
	}

	cs, err := tr.CreateCase(ctx, members, "Lager", "B-7")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPackaging, cs.Status)
	require.NotNil(t, cs.Quantity)
	assert.Equal(t, 6, *cs.Quantity)
	require.NotNil(t, cs.Weight)
	assert.InDelta(t, sum, *cs.Weight, 1e-9)
	require.Len(t, cs.History, 1)
	assert.Equal(t, "Contains 6 items", cs.History[0].Notes)

	resolved, err := ResolveChildren(cs, Index(members))
	require.NoError(t, err)
	got := memberIDs(resolved)
	want := memberIDs(members)
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)

	t.Run("members without weight use the type default", func(t *testing.T) {
		cans := []models.Container{
			{ID: "CAN-0001", Type: models.ContainerCan},
			{ID: "CAN-0002", Type: models.ContainerCan, Weight: ptr(1.2)},
		}
		cs, err := tr.CreateCase(ctx, cans, "Lager", "B-8")
		require.NoError(t, err)
		require.NotNil(t, cs.Weight)
		assert.InDelta(t, 0.8+1.2, *cs.Weight, 1e-9)
	})
}

func TestCreateCase_RejectsParentedMember(t *testing.T) {
	tr := newTestTracker()
	m := models.Container{ID: "BTL-0009", Type: models.ContainerBottle, ParentID: ptr("CASE-0001")}
	_, err := tr.CreateCase(context.Background(), []models.Container{m}, "Lager", "B-1")
	assert.ErrorIs(t, err, ErrAlreadyParented)

	_, err = tr.CreateCase(context.Background(), nil, "Lager", "B-1")
	assert.ErrorIs(t, err, ErrNoMembers)
}

func TestCreatePallet(t *testing.T) {
	tr := newTestTracker()
	members := []models.Container{
		{ID: "CASE-0001", Type: models.ContainerCase, ProductName: "IPA", Weight: ptr(30.0)},
		{ID: "CASE-0002", Type: models.ContainerCase, ProductName: "Stout"},
	}

	p, err := tr.CreatePallet(context.Background(), members, "")
	require.NoError(t, err)

	assert.Equal(t, "Mixed Products", p.ProductName)
	assert.Equal(t, "MIXED", p.BatchNumber)
	assert.InDelta(t, 80.0, *p.Weight, 1e-9)
	assert.Equal(t, []string{"CASE-0001", "CASE-0002"}, p.ChildIDs)
	assert.Equal(t, "Contains 2 containers", p.History[0].Notes)

	t.Run("shared product", func(t *testing.T) {
		same := []models.Container{
			{ID: "CASE-0003", Type: models.ContainerCase, ProductName: "IPA"},
			{ID: "CASE-0004", Type: models.ContainerCase, ProductName: "IPA"},
		}
		p, err := tr.CreatePallet(context.Background(), same, "dock 4")
		require.NoError(t, err)
		assert.Equal(t, "IPA", p.ProductName)
		assert.Equal(t, "dock 4", p.History[0].Notes)
	})
}

func TestUpdateStatus_DoesNotMutate(t *testing.T) {
	orig := models.Container{
		ID:     "KEG-0001",
		Status: models.StatusProduction,
		History: []models.HistoryEntry{
			{Timestamp: fixedNow, Action: "Created", Location: "Production"},
		},
	}

	next := UpdateStatus(orig, models.StatusPackaging, "Packaging", "line 2", fixedNow.Add(time.Hour))

	assert.Equal(t, models.StatusProduction, orig.Status)
	assert.Len(t, orig.History, 1)
	assert.Equal(t, models.StatusPackaging, next.Status)
	require.Len(t, next.History, 2)
	assert.Equal(t, "Status changed to packaging", next.History[1].Action)
	assert.Equal(t, orig.History[0], next.History[0])

	next.History[0].Action = "tampered"
	assert.Equal(t, "Created", orig.History[0].Action)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.ContainerStatus
		to   models.ContainerStatus
		ok   bool
	}{
		{"production to packaging", models.StatusProduction, models.StatusPackaging, true},
		{"delivered to returned", models.StatusDelivered, models.StatusReturned, true},
		{"returned to cleaning", models.StatusReturned, models.StatusCleaning, true},
		{"cleaning to maintenance", models.StatusCleaning, models.StatusMaintenance, true},
		{"maintenance to empty", models.StatusMaintenance, models.StatusEmpty, true},
		{"empty to staging", models.StatusEmpty, models.StatusStaging, true},
		{"skip to delivered", models.StatusStaging, models.StatusDelivered, false},
		{"backwards to production", models.StatusLoaded, models.StatusProduction, false},
		{"scrapped is terminal", models.StatusScrapped, models.StatusEmpty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.Container{ID: "KEG-0001", Status: tt.from}
			out, err := Transition(c, tt.to, "somewhere", "", fixedNow)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, out.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, out.Status)
			}
		})
	}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		name string
		c    models.Container
		want float64
	}{
		{"explicit", models.Container{Type: models.ContainerKeg, Weight: ptr(100.0)}, 100},
		{"keg", models.Container{Type: models.ContainerKeg}, 160},
		{"case", models.Container{Type: models.ContainerCase}, 30},
		{"bottle", models.Container{Type: models.ContainerBottle}, 2.5},
		{"can", models.Container{Type: models.ContainerCan}, 0.8},
		{"pallet with children", models.Container{Type: models.ContainerPallet, ChildIDs: []string{"a", "b", "c"}}, 150},
		{"empty pallet", models.Container{Type: models.ContainerPallet}, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Weight(tt.c), 1e-9)
		})
	}
}

func TestTruckLoading(t *testing.T) {
	truck := NewTruck("TRUCK-1", "North", "Route A", 400)
	keg := models.Container{ID: "KEG-0001", Type: models.ContainerKeg}

	loaded := LoadTruck(truck, keg)
	assert.Empty(t, truck.ContainerIDs)
	assert.Equal(t, models.TruckLoading, loaded.Status)
	assert.InDelta(t, 160.0, loaded.CurrentLoad, 1e-9)
	assert.Equal(t, 40, CapacityPercent(loaded))

	loaded = LoadTruck(loaded, models.Container{ID: "KEG-0002", Type: models.ContainerKeg})
	assert.False(t, CanAddToTruck(loaded, models.Container{ID: "KEG-0003", Type: models.ContainerKeg}))
	assert.True(t, CanAddToTruck(loaded, models.Container{ID: "CASE-0001", Type: models.ContainerCase, Weight: ptr(8.0)}))

	onRoad := StartRoute(loaded, fixedNow)
	assert.Equal(t, models.TruckOnRoad, onRoad.Status)
	require.NotNil(t, onRoad.DepartureTime)

	empty := UnloadTruck(onRoad, []models.Container{
		{ID: "KEG-0001", Type: models.ContainerKeg},
		{ID: "KEG-0002", Type: models.ContainerKeg},
	})
	assert.Empty(t, empty.ContainerIDs)
	assert.Equal(t, models.TruckDelivered, empty.Status)
	assert.Zero(t, empty.CurrentLoad)

	back := ReturnToDepot(empty)
	assert.Equal(t, models.TruckIdle, back.Status)
	assert.Nil(t, back.DepartureTime)
	assert.NotNil(t, empty.DepartureTime)

	assert.Equal(t, DefaultTruckCapacity, NewTruck("T", "n", "r", 0).Capacity)
}

func TestUnloadBeforeDeparture(t *testing.T) {
	bay := models.Location{ID: "staging", Name: "Truck Bay", Type: models.LocationTruckBay}
	keg := models.Container{ID: "KEG-0001", Type: models.ContainerKeg, Status: models.StatusStaging}
	pallet := models.Container{ID: "PLT-0001", Type: models.ContainerPallet, Status: models.StatusStaging, Weight: ptr(200.0)}

	truck := NewTruck("TRUCK-1", "North", "Route A", 400)
	truck = LoadTruck(LoadTruck(truck, keg), pallet)
	onTruck := LoadOnTruck(keg, truck.ID, fixedNow)

	back, err := UnloadFromTruck(onTruck, bay, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStaging, back.Status)
	assert.Nil(t, back.TruckID)
	assert.Equal(t, "staging", back.LocationID)
	assert.Equal(t, models.LocationTruckBay, back.LocationType)
	assert.Equal(t, "Unloaded from truck TRUCK-1", back.History[len(back.History)-1].Notes)
	require.NotNil(t, onTruck.TruckID)

	_, err = UnloadFromTruck(keg, bay, fixedNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	lighter := TakeOffTruck(truck, keg)
	assert.Equal(t, []string{"PLT-0001"}, lighter.ContainerIDs)
	assert.InDelta(t, 200.0, lighter.CurrentLoad, 1e-9)
	assert.Equal(t, models.TruckLoading, lighter.Status)

	empty := TakeOffTruck(lighter, pallet)
	assert.Empty(t, empty.ContainerIDs)
	assert.Zero(t, empty.CurrentLoad)
	assert.Equal(t, models.TruckIdle, empty.Status)
	assert.Len(t, truck.ContainerIDs, 2)
}

func TestLocations(t *testing.T) {
	loc := NewLocation("Joe's Tap Room", models.LocationCustomer, "1 Main St", nil)
	assert.Equal(t, "LOC-JOE'S-TAP-ROOM", loc.ID)

	delivered := DeliverToLocation(loc, "TRUCK-1", []string{"KEG-0001", "KEG-0002"}, ptr("Joe"), fixedNow)
	assert.Empty(t, loc.ContainerIDs)
	assert.Equal(t, []string{"KEG-0001", "KEG-0002"}, delivered.ContainerIDs)
	require.Len(t, delivered.DeliveryHistory, 1)
	assert.Equal(t, "TRUCK-1", delivered.DeliveryHistory[0].TruckID)

	pending := MarkPendingReturn(delivered, []string{"KEG-0001", "KEG-0001"})
	assert.Equal(t, []string{"KEG-0001"}, pending.PendingReturns)

	returned := RecordReturn(pending, []string{"KEG-0001"})
	assert.Equal(t, []string{"KEG-0002"}, returned.ContainerIDs)
	assert.Empty(t, returned.PendingReturns)
}

func TestAttach(t *testing.T) {
	pallet := models.Container{ID: "PLT-0001", Type: models.ContainerPallet}
	members := []models.Container{{ID: "CASE-0001"}, {ID: "CASE-0002"}}

	out, err := Attach(pallet, members, fixedNow)
	require.NoError(t, err)
	for _, m := range out {
		require.NotNil(t, m.ParentID)
		assert.Equal(t, "PLT-0001", *m.ParentID)
	}
	assert.Nil(t, members[0].ParentID)

	_, err = Attach(models.Container{ID: "PLT-0002", Type: models.ContainerPallet}, out, fixedNow)
	assert.ErrorIs(t, err, ErrAlreadyParented)

	_, err = Attach(models.Container{ID: "KEG-0001", Type: models.ContainerKeg}, members, fixedNow)
	assert.ErrorIs(t, err, ErrNotAggregate)
}
