package core

import "time"

// ResolveStatus derives a transaction's lifecycle status from its dates.
// It returns the status together with the normalized payment date, since
// an explicit override can set or clear the payment date as a side value.
//
// Precedence:
//  1. an explicit status wins; Paid without a payment date settles at now,
//     and any non-Paid override clears a stale payment date
//  2. a recorded payment date always means Paid
//  3. a due date strictly before now means Overdue
//  4. otherwise Pending
//
// The reference clock is always the caller's: the resolver never reads
// time.Now, so derivations are repeatable in tests and across timezones.
func ResolveStatus(dueDate, paymentDate time.Time, explicit Status, now time.Time) (Status, time.Time) {
	switch explicit {
	case StatusPaid:
		if paymentDate.IsZero() {
			paymentDate = now
		}
		return StatusPaid, paymentDate
	case StatusPending, StatusOverdue:
		return explicit, time.Time{}
	}

	if !paymentDate.IsZero() {
		return StatusPaid, paymentDate
	}
	if dueDate.Before(now) {
		return StatusOverdue, time.Time{}
	}
	return StatusPending, time.Time{}
}
