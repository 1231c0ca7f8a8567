// Package order contains the Order aggregate root and its pure state machine.
// The aggregate enforces the forward-only lifecycle
// Creating -> Confirmed -> Paid -> Processing -> Prepared -> {Closed | Delivering -> Closed}
// and records the domain events each command emits. It performs no I/O: the
// hosting execution strategy supplies the clock, persists the state and
// publishes the recorded events.
package order
