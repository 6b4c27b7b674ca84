package block

import "testing"

// =============================================================================
// Constructor Tests: New()
// =============================================================================

func TestNew(t *testing.T) {
	p := New(128, 4)
	if p.Cap() != 4 {
		t.Errorf("Cap = %d, want 4", p.Cap())
	}
	if p.Free() != 4 {
		t.Errorf("Free = %d, want 4", p.Free())
	}
}

func TestNew_PanicInvalid(t *testing.T) {
	tests := []struct {
		name           string
		size, capacity int
	}{
		{"zero_size", 0, 4},
		{"zero_capacity", 128, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			New(tt.size, tt.capacity)
		})
	}
}

// =============================================================================
// Get / Put
// =============================================================================

func TestGet_Exhaustion(t *testing.T) {
	p := New(64, 3)
	seen := make(map[int32]bool)
	for i := 0; i < 3; i++ {
		b, ok := p.Get()
		if !ok {
			t.Fatalf("Get #%d failed", i)
		}
		if len(b.Data) != 64 {
			t.Errorf("len(Data) = %d, want 64", len(b.Data))
		}
		if seen[b.ID] {
			t.Errorf("block %d handed out twice", b.ID)
		}
		seen[b.ID] = true
	}
	if _, ok := p.Get(); ok {
		t.Error("Get should fail on an exhausted pool")
	}
	if p.Free() != 0 {
		t.Errorf("Free = %d, want 0", p.Free())
	}
}

func TestPut_Reuse(t *testing.T) {
	p := New(64, 1)
	b, _ := p.Get()
	b.Data[0] = 0xAB
	p.Put(b)

	again, ok := p.Get()
	if !ok {
		t.Fatal("Get after Put failed")
	}
	if again.ID != b.ID {
		t.Errorf("ID = %d, want %d", again.ID, b.ID)
	}
	if again.Data[0] != 0xAB {
		t.Error("block content should be retained until Zero")
	}
	Zero(again)
	if again.Data[0] != 0 {
		t.Error("Zero did not clear the block")
	}
}

func TestBlocks_DoNotOverlap(t *testing.T) {
	p := New(16, 2)
	a, _ := p.Get()
	b, _ := p.Get()
	for i := range a.Data {
		a.Data[i] = 1
	}
	for i := range b.Data {
		if b.Data[i] != 0 {
			t.Fatalf("write to block %d leaked into block %d", a.ID, b.ID)
		}
	}
	// Appending past a block must not spill into its neighbour.
	grown := append(a.Data, 9)
	if &grown[0] == &a.Data[0] {
		t.Error("block slice capacity should be clipped to the block size")
	}
}

func TestPut_PanicForeign(t *testing.T) {
	p := New(16, 2)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on foreign block")
		}
	}()
	p.Put(Block{ID: 7})
}
