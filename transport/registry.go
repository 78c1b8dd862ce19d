package transport

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Device describes a BlueZ-known device discovered while walking the
// object tree, independent of whether a live connection exists.
type Device struct {
	Address string
	Name    string
	Bonded  bool
	Paired  bool
}

// ListBonded returns every BlueZ device object that is bonded and
// advertises ServiceUUID in its cached UUIDs list. This does not
// require an active connection: BlueZ caches the advertised service
// UUIDs from the last connection or from an advertisement report.
func ListBonded() ([]Device, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("transport: connecting to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object("org.bluez", dbus.ObjectPath("/"))
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("transport: GetManagedObjects: %w", err)
	}

	var devices []Device
	for path, ifaces := range objects {
		props, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		if !strings.Contains(string(path), "/dev_") {
			continue
		}
		bonded, _ := props["Bonded"].Value().(bool)
		if !bonded {
			continue
		}
		if !hasServiceUUID(props) {
			continue
		}
		addr, _ := props["Address"].Value().(string)
		name, _ := props["Name"].Value().(string)
		paired, _ := props["Paired"].Value().(bool)
		devices = append(devices, Device{Address: addr, Name: name, Bonded: bonded, Paired: paired})
	}
	return devices, nil
}

func hasServiceUUID(props map[string]dbus.Variant) bool {
	v, ok := props["UUIDs"]
	if !ok {
		return false
	}
	uuids, ok := v.Value().([]string)
	if !ok {
		return false
	}
	for _, u := range uuids {
		if strings.EqualFold(u, ServiceUUID) {
			return true
		}
	}
	return false
}
