package packet

import (
	"encoding/binary"
	"runtime"
	"testing"
)

func TestPadding(t *testing.T) {
	testCases := []struct {
		n     int
		align Alignment
		want  int
	}{
		{n: 0, align: Align4, want: 0},
		{n: 13, align: Align4, want: 3},
		{n: 14, align: Align4, want: 2},
		{n: 15, align: Align4, want: 1},
		{n: 16, align: Align4, want: 0},
		{n: 17, align: Align1, want: 0},
		{n: 13, align: 0, want: 0},
	}
	for _, tc := range testCases {
		if got := Padding(tc.n, tc.align); got != tc.want {
			t.Errorf("Padding(%d, %d) = %d, want %d", tc.n, tc.align, got, tc.want)
		}
	}
}

func TestPaddingMatchesPacketFormula(t *testing.T) {
	// A packet starting on an aligned offset is followed by
	// (4 - ((10 + length) mod 4)) mod 4 bytes of padding.
	for length := 0; length < 64; length++ {
		want := (4 - ((PacketHeaderSize + length) % 4)) % 4
		if got := Padding(ListHeaderSize+PacketHeaderSize+length, Align4); got != want {
			t.Errorf("length %d: padding %d, want %d", length, got, want)
		}
	}
}

func TestNativeAlignment(t *testing.T) {
	want := Align1
	if runtime.GOARCH == "arm" || runtime.GOARCH == "arm64" {
		want = Align4
	}
	if got := NativeAlignment(); got != want {
		t.Errorf("NativeAlignment() = %d, want %d", got, want)
	}
	if err := NativeLayout().Validate(); err != nil {
		t.Errorf("NativeLayout().Validate() = %v", err)
	}
}

func TestLayout_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		layout  Layout
		wantErr bool
	}{
		{name: "packed", layout: Layout{Align: Align1, Order: binary.LittleEndian}},
		{name: "padded", layout: Layout{Align: Align4, Order: binary.BigEndian}},
		{name: "zero alignment", layout: Layout{Order: binary.LittleEndian}, wantErr: true},
		{name: "alignment 8", layout: Layout{Align: 8, Order: binary.LittleEndian}, wantErr: true},
		{name: "missing order", layout: Layout{Align: Align1}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.layout.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLayout_Equal(t *testing.T) {
	native := Layout{Align: Align1, Order: binary.NativeEndian}
	nativeIsLittle := binary.NativeEndian.Uint16([]byte{1, 0}) == 1

	testCases := []struct {
		name string
		a, b Layout
		want bool
	}{
		{name: "same", a: packed, b: packed, want: true},
		{name: "alignment differs", a: packed, b: padded, want: false},
		{name: "byte order differs", a: packed, b: Layout{Align: Align1, Order: binary.BigEndian}, want: false},
		{name: "native vs little", a: native, b: packed, want: nativeIsLittle},
		{name: "native vs big", a: native, b: Layout{Align: Align1, Order: binary.BigEndian}, want: !nativeIsLittle},
		{name: "missing order", a: Layout{Align: Align1}, b: packed, want: false},
		{name: "both missing order", a: Layout{Align: Align1}, b: Layout{Align: Align1}, want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := tc.b.Equal(tc.a); got != tc.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tc.b, tc.a, got, tc.want)
			}
		})
	}
}
