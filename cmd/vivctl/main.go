// Command vivctl is a command-line client for the Viiiiva BLE GATT
// protocol: list and download FIT files, erase them from the device,
// set the device clock, and enumerate bonded devices.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/p00ya/vivian/config"
	"github.com/p00ya/vivian/monitor"
	"github.com/p00ya/vivian/protocol"
	"github.com/p00ya/vivian/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "devices":
		runDevices(os.Args[2:])
	case "nickname":
		runNickname(os.Args[2:])
	case "list":
		runList(os.Args[2:])
	case "download":
		runDownload(os.Args[2:])
	case "erase":
		runErase(os.Args[2:])
	case "set-time":
		runSetTime(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vivctl <devices|nickname|list|download|erase|set-time> [flags]")
}

// cliCallback adapts subcommand-specific behavior to a
// protocol.ResultCallback, signaling completion on done once a
// terminal event for the requested operation fires.
type cliCallback struct {
	protocol.NopResultCallback
	done chan error

	onEntry func(protocol.DirectoryEntry)
	onFile  func(data []byte)
}

func (c *cliCallback) OnError(code protocol.ErrorCode, message string) {
	c.done <- fmt.Errorf("%s: %s", code, message)
}

func (c *cliCallback) OnParseDirectoryEntry(entry protocol.DirectoryEntry) {
	if c.onEntry != nil {
		c.onEntry(entry)
	}
}

func (c *cliCallback) OnFinishParsingDirectory() { c.done <- nil }

func (c *cliCallback) OnDownloadFile(_ uint16, data []byte) {
	if c.onFile != nil {
		c.onFile(data)
	}
	c.done <- nil
}

func (c *cliCallback) OnEraseFile(_ uint16, ok bool) {
	if !ok {
		c.done <- fmt.Errorf("device reported erase failure")
		return
	}
	c.done <- nil
}

func (c *cliCallback) OnSetTime(ok bool) {
	if !ok {
		c.done <- fmt.Errorf("device reported set_time failure")
		return
	}
	c.done <- nil
}

// connect resolves which device address to use (flag overrides the
// saved preference), connects, constructs a Manager wired to cb, and
// binds the transport's notification/timeout callbacks to it. It
// returns the connected transport alongside the manager so the caller
// can Close it when done.
func connect(ctx context.Context, addr string, cb protocol.ResultCallback, monitorAddr string) (*transport.BLE, *protocol.Manager, error) {
	prefsPath, err := config.DefaultPath()
	if err != nil {
		return nil, nil, err
	}
	prefs, err := config.Load(prefsPath)
	if err != nil {
		return nil, nil, err
	}
	if addr == "" {
		addr = prefs.LastAddress
	}

	ble, err := transport.Connect(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	if monitorAddr != "" {
		hub := monitor.NewHub()
		go func() {
			log.Printf("viv: monitor listening on %s", monitorAddr)
			if err := http.ListenAndServe(monitorAddr, hub); err != nil {
				log.Printf("viv: monitor: %v", err)
			}
		}()
		cb = monitor.NewCallback(hub, cb)
	}

	mgr := protocol.NewManager(ble, cb)
	ble.Bind(mgr.NotifyValue, mgr.NotifyTimeout)

	prefs.LastAddress = ble.Address()
	if err := config.Save(prefsPath, prefs); err != nil {
		log.Printf("viv: warning: could not save preferences: %v", err)
	}

	return ble, mgr, nil
}

func runDevices(args []string) {
	prefsPath, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	prefs, err := config.Load(prefsPath)
	if err != nil {
		log.Fatalf("viv: %v", err)
	}

	devices, err := transport.ListBonded()
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	if len(devices) == 0 {
		fmt.Println("no bonded Viiiiva devices found")
		return
	}
	for _, d := range devices {
		name := d.Name
		if nick, ok := prefs.Nicknames[d.Address]; ok && nick != "" {
			name = nick
		}
		fmt.Printf("%s\t%s\n", d.Address, name)
	}
}

func runNickname(args []string) {
	fs := flag.NewFlagSet("nickname", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: vivctl nickname <address> <name>")
		os.Exit(2)
	}
	addr, name := fs.Arg(0), fs.Arg(1)

	prefsPath, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	prefs, err := config.Load(prefsPath)
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	prefs.SetNickname(addr, name)
	if err := config.Save(prefsPath, prefs); err != nil {
		log.Fatalf("viv: %v", err)
	}
	fmt.Printf("%s is now %q\n", addr, prefs.Nickname(addr))
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	addr := fs.String("addr", "", "device address (defaults to last connected)")
	monitorAddr := fs.String("monitor-addr", "", "if set, serve transfer progress events over a websocket at this address")
	fs.Parse(args)

	done := make(chan error, 1)
	var entries []protocol.DirectoryEntry
	cb := &cliCallback{done: done, onEntry: func(e protocol.DirectoryEntry) { entries = append(entries, e) }}

	ble, mgr, err := connect(context.Background(), *addr, cb, *monitorAddr)
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	defer ble.Close()

	mgr.DownloadDirectory()
	if err := <-done; err != nil {
		log.Fatalf("viv: %v", err)
	}
	for _, e := range entries {
		fmt.Printf("%04x.fit\t%d bytes\t%s\n", e.Index, e.Length, time.Unix(e.PosixTime, 0).Format(time.RFC3339))
	}
}

func runDownload(args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	addr := fs.String("addr", "", "device address (defaults to last connected)")
	index := fs.Uint("index", 0, "file index to download")
	out := fs.String("out", "", "output path (defaults to <index>.fit)")
	monitorAddr := fs.String("monitor-addr", "", "if set, serve transfer progress events over a websocket at this address")
	fs.Parse(args)

	done := make(chan error, 1)
	var data []byte
	cb := &cliCallback{done: done, onFile: func(d []byte) { data = d }}

	ble, mgr, err := connect(context.Background(), *addr, cb, *monitorAddr)
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	defer ble.Close()

	mgr.DownloadFile(uint16(*index))
	if err := <-done; err != nil {
		log.Fatalf("viv: %v", err)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("%04x.fit", *index)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("viv: writing %s: %v", path, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(data))
}

func runErase(args []string) {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	addr := fs.String("addr", "", "device address (defaults to last connected)")
	index := fs.Uint("index", 0, "file index to erase")
	monitorAddr := fs.String("monitor-addr", "", "if set, serve transfer progress events over a websocket at this address")
	fs.Parse(args)

	done := make(chan error, 1)
	cb := &cliCallback{done: done}

	ble, mgr, err := connect(context.Background(), *addr, cb, *monitorAddr)
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	defer ble.Close()

	mgr.EraseFile(uint16(*index))
	if err := <-done; err != nil {
		log.Fatalf("viv: %v", err)
	}
	fmt.Printf("erased %04x.fit\n", *index)
}

func runSetTime(args []string) {
	fs := flag.NewFlagSet("set-time", flag.ExitOnError)
	addr := fs.String("addr", "", "device address (defaults to last connected)")
	monitorAddr := fs.String("monitor-addr", "", "if set, serve transfer progress events over a websocket at this address")
	fs.Parse(args)

	done := make(chan error, 1)
	cb := &cliCallback{done: done}

	ble, mgr, err := connect(context.Background(), *addr, cb, *monitorAddr)
	if err != nil {
		log.Fatalf("viv: %v", err)
	}
	defer ble.Close()

	// The engine performs no rounding: round the current wall-clock
	// time up to the next whole second before setting it, since the
	// device's clock has one-second resolution.
	now := time.Now()
	posix := now.Unix()
	if now.Nanosecond() > 0 {
		posix++
	}

	mgr.SetTime(posix)
	if err := <-done; err != nil {
		log.Fatalf("viv: %v", err)
	}
	fmt.Println("device clock set")
}
