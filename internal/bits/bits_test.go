package bits

import "testing"

func TestSetGet(t *testing.T) {
	buf := make([]byte, 4)
	for _, i := range []uint64{0, 1, 7, 8, 15, 31} {
		Set(buf, i)
		if !Get(buf, i) {
			t.Errorf("bit %d not set", i)
		}
	}
	// LSB-first within a byte.
	buf2 := make([]byte, 1)
	Set(buf2, 0)
	if buf2[0] != 0x01 {
		t.Errorf("bit 0 = byte %#x, want 0x01", buf2[0])
	}
	Set(buf2, 7)
	if buf2[0] != 0x81 {
		t.Errorf("bits {0,7} = byte %#x, want 0x81", buf2[0])
	}
}

func TestRowSize(t *testing.T) {
	cases := []struct{ bits, want uint64 }{
		{0, 0}, {1, 1}, {7, 1}, {8, 1}, {9, 2}, {16, 2}, {17, 3},
	}
	for _, tc := range cases {
		if got := RowSize(tc.bits); got != tc.want {
			t.Errorf("RowSize(%d) = %d, want %d", tc.bits, got, tc.want)
		}
	}
}

func TestAddCounts(t *testing.T) {
	counts := make([]uint16, 16)
	AddCounts(counts, []byte{0b00000101, 0b10000000})
	AddCounts(counts, []byte{0b00000001, 0b00000000})

	want := map[int]uint16{0: 2, 2: 1, 15: 1}
	for i, c := range counts {
		if c != want[i] {
			t.Errorf("counts[%d] = %d, want %d", i, c, want[i])
		}
	}
}

func TestAddCountsSaturatesNowhere(t *testing.T) {
	// 300 additions exceed a uint8; counters are uint16 by design.
	counts := make([]uint16, 8)
	for i := 0; i < 300; i++ {
		AddCounts(counts, []byte{0xFF})
	}
	for i, c := range counts {
		if c != 300 {
			t.Errorf("counts[%d] = %d, want 300", i, c)
		}
	}
}

func TestAnd(t *testing.T) {
	a := []byte{0b1100, 0xFF}
	b := []byte{0b1010, 0x0F}
	dst := make([]byte, 2)
	And(dst, a, b)
	if dst[0] != 0b1000 || dst[1] != 0x0F {
		t.Errorf("And = %v", dst)
	}

	AndInPlace(a, b)
	if a[0] != 0b1000 || a[1] != 0x0F {
		t.Errorf("AndInPlace = %v", a)
	}
}
