// Package alerts derives exception alerts from a snapshot of containers and
// locations. Alerts are recomputed on every call and never stored.
package alerts

import (
	"sort"
	"time"

	"bevops-backend/internal/models"
)

// Policy holds the thresholds the detectors use
type Policy struct {
	OverdueErrorDays          int     `mapstructure:"overdue_error_days"`
	OverdueCriticalDays       int     `mapstructure:"overdue_critical_days"`
	DefaultInventoryThreshold int     `mapstructure:"default_inventory_threshold"`
	NearCapacityPercent       float64 `mapstructure:"near_capacity_percent"`
	DepositPerUnit            float64 `mapstructure:"deposit_per_unit"`
	DepositWarningAmount      float64 `mapstructure:"deposit_warning_amount"`
	DepositErrorAmount        float64 `mapstructure:"deposit_error_amount"`
	ShelfLifeDays             int     `mapstructure:"shelf_life_days"`
	ExpiryWarningDays         int     `mapstructure:"expiry_warning_days"`
}

func DefaultPolicy() Policy {
	return Policy{
		OverdueErrorDays:          14,
		OverdueCriticalDays:       30,
		DefaultInventoryThreshold: 10,
		NearCapacityPercent:       90,
		DepositPerUnit:            30,
		DepositWarningAmount:      200,
		DepositErrorAmount:        500,
		ShelfLifeDays:             90,
		ExpiryWarningDays:         30,
	}
}

// Snapshot is the state the detectors scan
type Snapshot struct {
	Locations  []models.Location
	Containers []models.Container
	Deposits   map[string]models.DepositLedger // by location id
	Thresholds map[string]int                  // low inventory threshold by product
}

// Engine runs the detectors under one policy
type Engine struct {
	policy Policy
}

func New(p Policy) *Engine {
	return &Engine{policy: p}
}

func (e *Engine) Policy() Policy { return e.policy }

// All runs every detector and sorts by severity, most recent first within a severity
func (e *Engine) All(s Snapshot, now time.Time) []models.Alert {
	var out []models.Alert
	out = append(out, e.OverdueReturns(s, now)...)
	out = append(out, e.LowInventory(s, now)...)
	out = append(out, e.OverCapacity(s, now)...)
	out = append(out, e.DepositImbalance(s, now)...)
	out = append(out, e.ExpiringProducts(s, now)...)
	Sort(out)
	if out == nil {
		out = []models.Alert{}
	}
	return out
}

// Sort orders alerts by severity rank then descending timestamp. Equal alerts keep their order.
func Sort(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
}

// Summary counts alerts per severity
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Error    int `json:"error"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

func Summarize(alerts []models.Alert) Summary {
	s := Summary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case models.AlertCritical:
			s.Critical++
		case models.AlertError:
			s.Error++
		case models.AlertWarning:
			s.Warning++
		case models.AlertInfo:
			s.Info++
		}
	}
	return s
}
