package picking

import (
	"errors"
	"testing"

	"github.com/Faultbox/latent-explorer/pkg/math"
)

func TestIDRoundTrip(t *testing.T) {
	const n = 10000
	seen := make(map[[4]byte]int, n)

	for i := 0; i < n; i++ {
		b := EncodeID(i)
		if prev, dup := seen[b]; dup {
			t.Fatalf("EncodeID(%d) collides with EncodeID(%d): %v", i, prev, b)
		}
		seen[b] = i

		got, hit := Resolve(b)
		if !hit || got != i {
			t.Errorf("Resolve(EncodeID(%d)) = %d, %v", i, got, hit)
		}
	}

	if _, hit := Resolve([4]byte{}); hit {
		t.Error("background decoded as a hit")
	}
}

func TestDecodeIDLittleEndian(t *testing.T) {
	tests := []struct {
		b    [4]byte
		want uint32
	}{
		{[4]byte{0, 0, 0, 0}, 0},
		{[4]byte{1, 0, 0, 0}, 1},
		{[4]byte{0, 1, 0, 0}, 256},
		{[4]byte{0, 0, 1, 0}, 65536},
		{[4]byte{0, 0, 0, 1}, 16777216},
		{[4]byte{0x78, 0x56, 0x34, 0x12}, 0x12345678},
	}
	for _, tt := range tests {
		if got := DecodeID(tt.b); got != tt.want {
			t.Errorf("DecodeID(%v) = %d, want %d", tt.b, got, tt.want)
		}
	}
}

func TestEncodeIDFirstPointIsNotBackground(t *testing.T) {
	if b := EncodeID(0); b != [4]byte{1, 0, 0, 0} {
		t.Errorf("EncodeID(0) = %v, want [1 0 0 0]", b)
	}
}

func TestChannelCapacity(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0},
		{1, 255},
		{2, 65535},
		{3, 16777215},
		{4, MaxIndex + 1},
	}
	for _, tt := range tests {
		if got := ChannelCapacity(tt.n); got != tt.want {
			t.Errorf("ChannelCapacity(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestScreenToPixel(t *testing.T) {
	hiDPI := Viewport{ClientWidth: 400, ClientHeight: 300, FramebufferWidth: 800, FramebufferHeight: 600}

	tests := []struct {
		name   string
		vp     Viewport
		x, y   float32
		px, py int
		ok     bool
	}{
		{"top left", UniformViewport(512, 512), 0, 0, 0, 511, true},
		{"bottom right", UniformViewport(512, 512), 511.5, 511.5, 511, 0, true},
		{"center", UniformViewport(512, 512), 256, 256, 256, 255, true},
		{"hidpi", hiDPI, 100, 50, 200, 499, true},
		{"hidpi fractional", hiDPI, 100.6, 50.6, 201, 498, true},
		{"left of canvas", UniformViewport(512, 512), -1, 10, 0, 0, false},
		{"below canvas", UniformViewport(512, 512), 10, 512, 0, 0, false},
		{"right of canvas", hiDPI, 400, 10, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, py, ok := tt.vp.ScreenToPixel(tt.x, tt.y)
			if ok != tt.ok {
				t.Fatalf("ScreenToPixel(%v, %v) ok = %v, want %v", tt.x, tt.y, ok, tt.ok)
			}
			if ok && (px != tt.px || py != tt.py) {
				t.Errorf("ScreenToPixel(%v, %v) = (%d, %d), want (%d, %d)", tt.x, tt.y, px, py, tt.px, tt.py)
			}
		})
	}
}

type fakeTarget struct {
	w, h   int
	pixels map[[2]int][4]byte
	reads  int
	err    error
}

func (f *fakeTarget) ReadPixel(x, y int) ([4]byte, error) {
	f.reads++
	if f.err != nil {
		return [4]byte{}, f.err
	}
	return f.pixels[[2]int{x, y}], nil
}

func TestPick(t *testing.T) {
	target := &fakeTarget{
		w: 64, h: 64,
		pixels: map[[2]int][4]byte{
			{10, 53}: EncodeID(41),
		},
	}
	p := NewPicker(UniformViewport(64, 64), 4)

	sel, err := p.Pick(target, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !sel.Hit || sel.Index != 41 {
		t.Errorf("Pick over point = %+v, want index 41", sel)
	}

	sel, err = p.Pick(target, 30, 30)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Hit {
		t.Errorf("Pick over background = %+v, want no hit", sel)
	}
}

func TestPickOutsideSkipsRead(t *testing.T) {
	target := &fakeTarget{w: 64, h: 64}
	p := NewPicker(UniformViewport(64, 64), 3)

	sel, err := p.Pick(target, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if sel != None {
		t.Errorf("Pick outside = %+v, want None", sel)
	}
	if target.reads != 0 {
		t.Errorf("outside pick read %d pixels", target.reads)
	}
}

func TestPickMasksUnwrittenChannels(t *testing.T) {
	// A 3-channel ID attribute leaves alpha at 1.0 (255).
	b := EncodeID(7)
	b[3] = 255
	target := &fakeTarget{pixels: map[[2]int][4]byte{{0, 0}: b}}

	p := NewPicker(UniformViewport(1, 1), 3)
	sel, err := p.Pick(target, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !sel.Hit || sel.Index != 7 {
		t.Errorf("Pick = %+v, want index 7", sel)
	}

	// Background with alpha 255 still decodes to no hit.
	target.pixels[[2]int{0, 0}] = [4]byte{0, 0, 0, 255}
	if sel, _ := p.Pick(target, 0, 0); sel.Hit {
		t.Errorf("background with opaque alpha = %+v, want no hit", sel)
	}
}

func TestPickReadError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPicker(UniformViewport(8, 8), 4)

	_, err := p.Pick(&fakeTarget{err: boom}, 1, 1)
	if !errors.Is(err, boom) {
		t.Errorf("Pick error = %v, want wrapped boom", err)
	}
}

func TestScreenToRayThroughCenter(t *testing.T) {
	view := math.LookAt(math.V3(0, 0, 2), math.Vec3{}, math.V3(0, 1, 0))
	proj := math.Perspective(0.785398, 1, 0.1, 100)
	inv := proj.Mul(view).Inverse()

	ray := ScreenToRay(256, 256, 512, 512, inv)
	if d := ray.Direction.Sub(math.V3(0, 0, -1)).Length(); d > 1e-4 {
		t.Errorf("center ray direction = %v, want (0,0,-1)", ray.Direction)
	}

	hit, ok := ray.IntersectSphere(math.Vec3{}, 0.5)
	if !ok {
		t.Fatal("center ray missed the sphere")
	}
	if d := hit.Sub(math.V3(0, 0, 0.5)).Length(); d > 1e-3 {
		t.Errorf("hit = %v, want (0,0,0.5)", hit)
	}
}

func TestIntersectSphere(t *testing.T) {
	tests := []struct {
		name string
		ray  Ray
		ok   bool
		want math.Vec3
	}{
		{"front", Ray{math.V3(0, 0, 5), math.V3(0, 0, -1)}, true, math.V3(0, 0, 1)},
		{"inside", Ray{math.Vec3{}, math.V3(1, 0, 0)}, true, math.V3(1, 0, 0)},
		{"miss", Ray{math.V3(0, 2, 5), math.V3(0, 0, -1)}, false, math.Vec3{}},
		{"behind", Ray{math.V3(0, 0, 5), math.V3(0, 0, 1)}, false, math.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.ray.IntersectSphere(math.Vec3{}, 1)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Sub(tt.want).Length() > 1e-5 {
				t.Errorf("hit = %v, want %v", got, tt.want)
			}
		})
	}
}
