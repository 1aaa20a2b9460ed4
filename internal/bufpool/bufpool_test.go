package bufpool

import (
	"errors"
	"testing"
)

func TestNewBankValidation(t *testing.T) {
	tests := []struct {
		name    string
		geom    Geometry
		devices int
		depth   int
		wantErr error
	}{
		{"single buffer rejected", Geometry{64, 32, 4}, 1, 1, ErrInvalidDepth},
		{"zero width", Geometry{0, 32, 4}, 1, 2, ErrInvalidGeometry},
		{"negative height", Geometry{64, -1, 4}, 1, 2, ErrInvalidGeometry},
		{"minimum depth", Geometry{64, 32, 4}, 1, 2, nil},
		{"several devices", Geometry{16, 16, 4}, 4, 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := NewBank(tt.geom, tt.devices, tt.depth)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewBank() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer bank.Close()

			if bank.Devices() != tt.devices || bank.Depth() != tt.depth {
				t.Errorf("bank shape = %dx%d, want %dx%d", bank.Devices(), bank.Depth(), tt.devices, tt.depth)
			}
		})
	}
}

func TestBankSlots(t *testing.T) {
	geom := Geometry{Width: 8, Height: 4, PixelStride: 4}
	bank, err := NewBank(geom, 2, 3)
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	defer bank.Close()

	seen := make(map[uintptr]bool)
	for dev := range 2 {
		pool, err := bank.Pool(dev)
		if err != nil {
			t.Fatalf("Pool(%d) error = %v", dev, err)
		}
		for i, slot := range pool {
			if slot.Device != dev || slot.Index != i {
				t.Errorf("slot identity = (%d,%d), want (%d,%d)", slot.Device, slot.Index, dev, i)
			}
			if slot.Len() != geom.FrameSize() {
				t.Errorf("slot length = %d, want %d", slot.Len(), geom.FrameSize())
			}
			if slot.Width != 8 || slot.Height != 4 {
				t.Errorf("slot dims = %dx%d", slot.Width, slot.Height)
			}
			if seen[slot.Addr()] {
				t.Errorf("slot (%d,%d) shares memory with another slot", dev, i)
			}
			seen[slot.Addr()] = true

			// memory must be writable end to end
			slot.Mem[0] = 0xAA
			slot.Mem[slot.Len()-1] = 0x55
		}
	}

	// pools are stable across calls
	a, _ := bank.Pool(1)
	b, _ := bank.Pool(1)
	for i := range a {
		if !a[i].Same(b[i]) {
			t.Errorf("slot %d changed between Pool calls", i)
		}
	}

	if _, err := bank.Pool(2); err == nil {
		t.Error("Pool(2) should fail for a two-device bank")
	}
}

func TestBankClose(t *testing.T) {
	bank, err := NewBank(Geometry{4, 4, 4}, 1, 2)
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	if err := bank.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bank.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := bank.Pool(0); !errors.Is(err, ErrBankClosed) {
		t.Errorf("Pool() after Close error = %v, want ErrBankClosed", err)
	}
}

func TestFrameRelease(t *testing.T) {
	var released []*Frame
	slot := Slot{Mem: make([]byte, 16), Device: 1, Index: 0}
	f := NewFrame(slot, 7, func(fr *Frame) { released = append(released, fr) })

	f.Retain()
	if f.Refs() != 2 {
		t.Fatalf("Refs() = %d, want 2", f.Refs())
	}

	f.Release()
	if len(released) != 0 {
		t.Fatal("hook ran while a reference was still held")
	}
	f.Release()
	if len(released) != 1 || released[0] != f {
		t.Fatalf("hook calls = %d, want exactly one with the frame", len(released))
	}
	if f.Seq != 7 || f.Device != 1 {
		t.Errorf("frame identity = (seq %d, device %d)", f.Seq, f.Device)
	}
}

func TestFrameOverRelease(t *testing.T) {
	f := NewFrame(Slot{}, 0, nil)
	f.Release()

	defer func() {
		if recover() == nil {
			t.Error("second Release did not panic")
		}
	}()
	f.Release()
}

func TestFrameRetainAfterRelease(t *testing.T) {
	f := NewFrame(Slot{}, 0, nil)
	f.Release()

	defer func() {
		if recover() == nil {
			t.Error("Retain of released frame did not panic")
		}
	}()
	f.Retain()
}
