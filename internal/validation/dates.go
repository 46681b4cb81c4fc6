package validation

import "time"

// MaxDeliveryLead is how far ahead a delivery can be booked without a warning
const MaxDeliveryLead = 30 * 24 * time.Hour

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ValidateDeliveryDate rejects deliveries before today
func ValidateDeliveryDate(delivery, now time.Time) Result {
	r := OK()
	if delivery.Before(startOfDay(now)) {
		r.fail(TemporalViolation, "Delivery date cannot be in the past")
	}
	if delivery.After(now.Add(MaxDeliveryLead)) {
		r.warn("Delivery scheduled more than 30 days in advance")
	}
	return r
}

// ValidateFillDate rejects fills after the end of today
func ValidateFillDate(fill, now time.Time) Result {
	r := OK()
	endOfDay := startOfDay(now).AddDate(0, 0, 1).Add(-time.Nanosecond)
	if fill.After(endOfDay) {
		r.fail(TemporalViolation, "Fill date cannot be in the future")
	}
	return r
}

// ValidateReturnDate requires the expected return to be strictly after delivery
func ValidateReturnDate(delivery, expectedReturn time.Time) Result {
	r := OK()
	if !expectedReturn.After(delivery) {
		r.fail(TemporalViolation, "Return date must be after delivery date")
	}
	return r
}
