// Package transport implements the BLE GATT transport that carries the
// Viiiiva protocol: discovering the peripheral by service UUID,
// connecting, subscribing to notifications on its single non-standard
// characteristic, and writing command packets with-response.
package transport

import "time"

const (
	// ServiceUUID and CharacteristicUUID are the Viiiiva device's
	// non-standard GATT service and characteristic. Unlike a typical
	// BLE peripheral with separate command/response characteristics,
	// Viiiiva uses exactly one characteristic for both directions:
	// writes go to it, and value-change notifications come from it.
	ServiceUUID        = "5b774111-d526-7b9a-4ae7-e59d015d79ed"
	CharacteristicUUID = "5b774321-d526-7b9a-4ae7-e59d015d79ed"

	// ScanTimeout bounds how long Connect will scan for a peripheral
	// advertising ServiceUUID before giving up.
	ScanTimeout = 30 * time.Second

	// InactivityTimeout is the reasonable client policy suggested by
	// the engine's concurrency design notes: restart this timer on
	// every StartWaiting and every WriteValue observed while waiting,
	// cancel it on FinishWaiting, and fire NotifyTimeout on expiry.
	InactivityTimeout = 16 * time.Second
)
