// Package activity records interactions (calls, emails, meetings, notes,
// tasks) against exactly one lead or one customer.
package activity
