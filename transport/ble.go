package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/p00ya/vivian/protocol"
)

// BLE implements protocol.Transport over a single GATT characteristic
// using tinygo.org/x/bluetooth. A BLE value is only usable for one
// device connection: reconnecting requires a new BLE.
type BLE struct {
	adapter *bluetooth.Adapter
	device  bluetooth.Device
	char    bluetooth.DeviceCharacteristic

	mu      sync.Mutex
	timer   *time.Timer
	timeout time.Duration

	onTimeout func()
	onNotify  func([]byte)
}

var serviceUUID, charUUID bluetooth.UUID

func init() {
	var err error
	serviceUUID, err = bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		panic("transport: bad service UUID: " + err.Error())
	}
	charUUID, err = bluetooth.ParseUUID(CharacteristicUUID)
	if err != nil {
		panic("transport: bad characteristic UUID: " + err.Error())
	}
}

// Connect scans for a peripheral advertising ServiceUUID, connects to
// it, and discovers the Viiiiva characteristic. addr, if non-empty,
// restricts the scan to a single known MAC address (as stored by the
// preferences store); an empty addr connects to the first matching
// advertisement seen.
func Connect(ctx context.Context, addr string) (*BLE, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("transport: enabling adapter: %w", err)
	}

	found := make(chan bluetooth.ScanResult, 1)
	go func() {
		_ = adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if addr != "" && result.Address.String() != addr {
				return
			}
			if addr == "" && !result.HasServiceUUID(serviceUUID) {
				return
			}
			a.StopScan()
			select {
			case found <- result:
			default:
			}
		})
	}()

	var result bluetooth.ScanResult
	select {
	case result = <-found:
	case <-ctx.Done():
		adapter.StopScan()
		return nil, ctx.Err()
	case <-time.After(ScanTimeout):
		adapter.StopScan()
		return nil, fmt.Errorf("transport: no Viiiiva advertisement seen within %s", ScanTimeout)
	}

	device, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("transport: connecting to %s: %w", result.Address, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("transport: discovering service: %w", err)
	}
	if len(services) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("transport: service %s not found on %s", ServiceUUID, result.Address)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("transport: discovering characteristic: %w", err)
	}

	b := &BLE{
		adapter: adapter,
		device:  device,
		char:    chars[0],
		timeout: InactivityTimeout,
	}

	if err := b.char.EnableNotifications(b.handleNotification); err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("transport: enabling notifications: %w", err)
	}
	return b, nil
}

// Bind attaches the Manager-facing callbacks. Call it once the Manager
// exists and before issuing any command; notifications that arrive
// before Bind are dropped.
func (b *BLE) Bind(onNotify func([]byte), onTimeout func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onNotify = onNotify
	b.onTimeout = onTimeout
}

func (b *BLE) handleNotification(buf []byte) {
	b.mu.Lock()
	cb := b.onNotify
	b.mu.Unlock()
	if cb != nil {
		cb(append([]byte{}, buf...))
	}
}

// WriteValue implements protocol.Transport. Writes go to the device
// with-response: the device acks every command at the GATT layer
// before the protocol-level ack packet ever arrives.
func (b *BLE) WriteValue(data []byte) int {
	if _, err := b.char.Write(data); err != nil {
		log.Printf("viv: transport: write_value failed: %v", err)
		return -1
	}
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	b.mu.Unlock()
	return 0
}

// StartWaiting implements protocol.Transport by arming the inactivity
// timer that triggers NotifyTimeout.
func (b *BLE) StartWaiting() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timer = time.AfterFunc(b.timeout, func() {
		if cb := b.onTimeout; cb != nil {
			cb()
		}
	})
}

// FinishWaiting implements protocol.Transport by disarming the timer.
func (b *BLE) FinishWaiting() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Address reports the connected device's MAC address, suitable for
// persisting in the preferences store.
func (b *BLE) Address() string { return b.device.Address.String() }

// Close disconnects from the device.
func (b *BLE) Close() error {
	b.FinishWaiting()
	return b.device.Disconnect()
}

var _ protocol.Transport = (*BLE)(nil)
