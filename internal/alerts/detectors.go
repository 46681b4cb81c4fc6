package alerts

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"bevops-backend/internal/models"
)

const day = 24 * time.Hour

func wholeDays(d time.Duration) int {
	return int(d / day)
}

func atLocation(cs []models.Container, locID string) []models.Container {
	var out []models.Container
	for _, c := range cs {
		if c.LocationID == locID {
			out = append(out, c)
		}
	}
	return out
}

// OverdueReturns flags containers at customers past their expected return date
func (e *Engine) OverdueReturns(s Snapshot, now time.Time) []models.Alert {
	var out []models.Alert
	for _, loc := range s.Locations {
		if loc.Type != models.LocationCustomer {
			continue
		}
		for _, c := range atLocation(s.Containers, loc.ID) {
			if c.ExpectedReturnDate == nil || !c.ExpectedReturnDate.Before(now) {
				continue
			}
			days := wholeDays(now.Sub(*c.ExpectedReturnDate))

			sev := models.AlertWarning
			switch {
			case days > e.policy.OverdueCriticalDays:
				sev = models.AlertCritical
			case days > e.policy.OverdueErrorDays:
				sev = models.AlertError
			}

			out = append(out, models.Alert{
				ID:          "overdue-" + c.ID,
				Type:        models.AlertOverdueReturn,
				Severity:    sev,
				Title:       "Overdue Return",
				Message:     fmt.Sprintf("%s at %s is %d days overdue", c.ProductName, loc.Name, days),
				LocationID:  loc.ID,
				ContainerID: c.ID,
				ProductName: c.ProductName,
				Timestamp:   now,
			})
		}
	}
	return out
}

// LowInventory counts filled and empty containers per product against its threshold.
// Products with a configured threshold and no stock at all are reported as critical.
func (e *Engine) LowInventory(s Snapshot, now time.Time) []models.Alert {
	counts := make(map[string]int)
	for _, c := range s.Containers {
		if c.Status == models.StatusFilled || c.Status == models.StatusEmpty {
			counts[c.ProductName]++
		}
	}
	for product := range s.Thresholds {
		if _, ok := counts[product]; !ok {
			counts[product] = 0
		}
	}

	products := make([]string, 0, len(counts))
	for p := range counts {
		products = append(products, p)
	}
	sort.Strings(products)

	var out []models.Alert
	for _, product := range products {
		count := counts[product]
		threshold := s.Thresholds[product]
		if threshold <= 0 {
			threshold = e.policy.DefaultInventoryThreshold
		}
		if count >= threshold {
			continue
		}

		sev := models.AlertWarning
		switch {
		case count == 0:
			sev = models.AlertCritical
		case float64(count) < float64(threshold)/2:
			sev = models.AlertError
		}

		out = append(out, models.Alert{
			ID:          "low-inventory-" + product,
			Type:        models.AlertLowInventory,
			Severity:    sev,
			Title:       "Low Inventory",
			Message:     fmt.Sprintf("%s inventory is low: %d units (threshold: %d)", product, count, threshold),
			ProductName: product,
			Timestamp:   now,
		})
	}
	return out
}

// nested returns the ids of containers packed inside another container
func nested(cs []models.Container) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range cs {
		if c.ParentID != nil && *c.ParentID != "" {
			out[c.ID] = struct{}{}
		}
	}
	return out
}

// OverCapacity checks locations with a declared capacity. A pallet takes one
// slot however much is packed on it.
func (e *Engine) OverCapacity(s Snapshot, now time.Time) []models.Alert {
	inside := nested(s.Containers)

	var out []models.Alert
	for _, loc := range s.Locations {
		if loc.Capacity == nil || *loc.Capacity <= 0 {
			continue
		}
		capacity := *loc.Capacity
		count := 0
		for _, id := range loc.ContainerIDs {
			if _, ok := inside[id]; !ok {
				count++
			}
		}
		pct := float64(count) / float64(capacity) * 100

		switch {
		case count > capacity:
			out = append(out, models.Alert{
				ID:         "over-capacity-" + loc.ID,
				Type:       models.AlertOverCapacity,
				Severity:   models.AlertError,
				Title:      "Over Capacity",
				Message:    fmt.Sprintf("%s is over capacity: %d/%d (%.0f%%)", loc.Name, count, capacity, pct),
				LocationID: loc.ID,
				Timestamp:  now,
			})
		case pct >= e.policy.NearCapacityPercent:
			out = append(out, models.Alert{
				ID:         "near-capacity-" + loc.ID,
				Type:       models.AlertOverCapacity,
				Severity:   models.AlertWarning,
				Title:      "Near Capacity",
				Message:    fmt.Sprintf("%s is near capacity: %d/%d (%.0f%%)", loc.Name, count, capacity, pct),
				LocationID: loc.ID,
				Timestamp:  now,
			})
		}
	}
	return out
}

// DepositImbalance compares deposits paid with what the kegs at a customer
// require. Kegs packed in cases or pallets carry a deposit too.
func (e *Engine) DepositImbalance(s Snapshot, now time.Time) []models.Alert {
	var out []models.Alert
	for _, loc := range s.Locations {
		if loc.Type != models.LocationCustomer {
			continue
		}
		count := 0
		for _, c := range atLocation(s.Containers, loc.ID) {
			if c.Type == models.ContainerKeg {
				count++
			}
		}
		paid := s.Deposits[loc.ID].Paid
		imbalance := float64(count)*e.policy.DepositPerUnit - paid
		if imbalance <= 0 || count == 0 {
			continue
		}

		sev := models.AlertInfo
		switch {
		case imbalance > e.policy.DepositErrorAmount:
			sev = models.AlertError
		case imbalance > e.policy.DepositWarningAmount:
			sev = models.AlertWarning
		}

		out = append(out, models.Alert{
			ID:         "deposit-imbalance-" + loc.ID,
			Type:       models.AlertDepositImbalance,
			Severity:   sev,
			Title:      "Deposit Imbalance",
			Message:    fmt.Sprintf("%s has %d kegs but deposit shortfall of $%s", loc.Name, count, strconv.FormatFloat(imbalance, 'f', -1, 64)),
			LocationID: loc.ID,
			Timestamp:  now,
		})
	}
	return out
}

// ExpiringProducts flags filled containers past or near the end of their shelf life
func (e *Engine) ExpiringProducts(s Snapshot, now time.Time) []models.Alert {
	shelfLife := time.Duration(e.policy.ShelfLifeDays) * day
	warnWindow := now.Add(time.Duration(e.policy.ExpiryWarningDays) * day)

	var out []models.Alert
	for _, c := range s.Containers {
		if c.FillDate == nil || c.Status != models.StatusFilled {
			continue
		}
		expires := c.FillDate.Add(shelfLife)

		switch {
		case expires.Before(now):
			out = append(out, models.Alert{
				ID:          "expired-" + c.ID,
				Type:        models.AlertExpiringProduct,
				Severity:    models.AlertCritical,
				Title:       "Product Expired",
				Message:     fmt.Sprintf("%s (%s) has expired", c.ProductName, c.BatchNumber),
				ContainerID: c.ID,
				ProductName: c.ProductName,
				Timestamp:   now,
			})
		case expires.Before(warnWindow):
			out = append(out, models.Alert{
				ID:          "expiring-" + c.ID,
				Type:        models.AlertExpiringProduct,
				Severity:    models.AlertWarning,
				Title:       "Product Expiring Soon",
				Message:     fmt.Sprintf("%s (%s) expires in %d days", c.ProductName, c.BatchNumber, wholeDays(expires.Sub(now))),
				ContainerID: c.ID,
				ProductName: c.ProductName,
				Timestamp:   now,
			})
		}
	}
	return out
}
