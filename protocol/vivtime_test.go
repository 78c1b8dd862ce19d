package protocol

import "testing"

func TestTimeRoundTrip(t *testing.T) {
	cases := []int64{DeviceEpoch, DeviceEpoch + 1, 2649980945, 2649980946}
	for _, posix := range cases {
		device := ToDeviceTime(posix)
		got := ToPosixTime(device)
		if got != posix {
			t.Errorf("ToPosixTime(ToDeviceTime(%d)) = %d, want %d", posix, got, posix)
		}
	}
}

func TestToPosixTimeKnownValue(t *testing.T) {
	// Scenario S4: header clock bytes 12 34 56 78 decode to device time
	// 0x78563412, and posix = device + epoch = 2649980946.
	if got := ToPosixTime(0x78563412); got != 2649980946 {
		t.Fatalf("ToPosixTime(0x78563412) = %d, want 2649980946", got)
	}
}
