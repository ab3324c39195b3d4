// Package customer manages converted accounts.
package customer
