package tracking

import (
	"context"
	"fmt"
	"time"

	"bevops-backend/internal/models"
)

const (
	actionCreated       = "Created"
	actionCaseCreated   = "Case Created"
	actionPalletCreated = "Pallet Created"

	locProduction = "Production"
	locPackaging  = "Packaging"

	mixedProducts = "Mixed Products"
	mixedBatch    = "MIXED"
)

// Tracker issues identities and builds containers. It holds no container state.
type Tracker struct {
	seq Sequence
	now func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func New(seq Sequence, opts ...Option) *Tracker {
	t := &Tracker{seq: seq, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IssueID draws the next number for the type and formats it
func (t *Tracker) IssueID(ctx context.Context, ct models.ContainerType) (string, error) {
	if _, err := Prefix(ct); err != nil {
		return "", err
	}
	n, err := t.seq.Next(ctx, ct)
	if err != nil {
		return "", fmt.Errorf("next %s sequence: %w", ct, err)
	}
	return FormatID(ct, n)
}

// ContainerOption overrides a field on a freshly created container
type ContainerOption func(*models.Container)

func WithVolume(v string) ContainerOption {
	return func(c *models.Container) { c.Volume = v }
}

func WithWeight(w float64) ContainerOption {
	return func(c *models.Container) { c.Weight = &w }
}

func WithLocation(id string, lt models.LocationType) ContainerOption {
	return func(c *models.Container) {
		c.LocationID = id
		c.LocationType = lt
	}
}

func WithFillDate(d time.Time) ContainerOption {
	return func(c *models.Container) { c.FillDate = &d }
}

func WithExpectedReturn(d time.Time) ContainerOption {
	return func(c *models.Container) { c.ExpectedReturnDate = &d }
}

func WithOrder(orderID, customerID string) ContainerOption {
	return func(c *models.Container) {
		if orderID != "" {
			c.OrderID = &orderID
		}
		if customerID != "" {
			c.CustomerID = &customerID
		}
	}
}

func WithStatus(s models.ContainerStatus) ContainerOption {
	return func(c *models.Container) { c.Status = s }
}

// CreateContainer returns a new container in production with a single Created entry
func (t *Tracker) CreateContainer(ctx context.Context, ct models.ContainerType, productName, batchNumber string, opts ...ContainerOption) (models.Container, error) {
	id, err := t.IssueID(ctx, ct)
	if err != nil {
		return models.Container{}, err
	}
	now := t.now()

	c := models.Container{
		ID:           id,
		Type:         ct,
		ProductName:  productName,
		BatchNumber:  batchNumber,
		QRCode:       QRCode(id),
		Status:       models.StatusProduction,
		LocationType: models.LocationProduction,
		CreatedAt:    now,
		UpdatedAt:    now,
		History: []models.HistoryEntry{{
			Timestamp: now,
			Action:    actionCreated,
			Location:  locProduction,
		}},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// CreateCase packs members into a new case. Members must not already have a parent.
func (t *Tracker) CreateCase(ctx context.Context, members []models.Container, productName, batchNumber string) (models.Container, error) {
	if err := checkMembers(members); err != nil {
		return models.Container{}, err
	}
	id, err := t.IssueID(ctx, models.ContainerCase)
	if err != nil {
		return models.Container{}, err
	}
	now := t.now()

	var total float64
	for _, m := range members {
		total += Weight(m)
	}
	qty := len(members)

	return models.Container{
		ID:           id,
		Type:         models.ContainerCase,
		ProductName:  productName,
		BatchNumber:  batchNumber,
		QRCode:       QRCode(id),
		Status:       models.StatusPackaging,
		LocationType: models.LocationProduction,
		ChildIDs:     memberIDs(members),
		Quantity:     &qty,
		Weight:       &total,
		CreatedAt:    now,
		UpdatedAt:    now,
		History: []models.HistoryEntry{{
			Timestamp: now,
			Action:    actionCaseCreated,
			Location:  locPackaging,
			Notes:     fmt.Sprintf("Contains %d items", qty),
		}},
	}, nil
}

// CreatePallet stacks members onto a new pallet. Members without a weight count as 50 lbs.
func (t *Tracker) CreatePallet(ctx context.Context, members []models.Container, notes string) (models.Container, error) {
	if err := checkMembers(members); err != nil {
		return models.Container{}, err
	}
	id, err := t.IssueID(ctx, models.ContainerPallet)
	if err != nil {
		return models.Container{}, err
	}
	now := t.now()

	var total float64
	for _, m := range members {
		if m.Weight != nil && *m.Weight > 0 {
			total += *m.Weight
		} else {
			total += DefaultUnitWeight
		}
	}

	product := members[0].ProductName
	for _, m := range members[1:] {
		if m.ProductName != product {
			product = mixedProducts
			break
		}
	}

	if notes == "" {
		notes = fmt.Sprintf("Contains %d containers", len(members))
	}

	return models.Container{
		ID:           id,
		Type:         models.ContainerPallet,
		ProductName:  product,
		BatchNumber:  mixedBatch,
		QRCode:       QRCode(id),
		Status:       models.StatusPackaging,
		LocationType: models.LocationProduction,
		ChildIDs:     memberIDs(members),
		Weight:       &total,
		CreatedAt:    now,
		UpdatedAt:    now,
		History: []models.HistoryEntry{{
			Timestamp: now,
			Action:    actionPalletCreated,
			Location:  locPackaging,
			Notes:     notes,
		}},
	}, nil
}

func checkMembers(members []models.Container) error {
	if len(members) == 0 {
		return ErrNoMembers
	}
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.ParentID != nil && *m.ParentID != "" {
			return fmt.Errorf("%w: %s is in %s", ErrAlreadyParented, m.ID, *m.ParentID)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrAlreadyParented, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

func memberIDs(members []models.Container) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}
