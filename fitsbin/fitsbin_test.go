package fitsbin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCardRoundTrip(t *testing.T) {
	cases := []struct {
		key   string
		value interface{}
	}{
		{"NCHANS", int64(32)},
		{"CDELT4", 0.5},
		{"PZERO5", 2456580.5},
		{"SIMPLE", true},
		{"EXTEND", false},
		{"OBJECT", "Undefined"},
		{"ARRNAM", "MWA"},
		{"CRVAL3", int64(-5)},
	}
	for _, c := range cases {
		img := formatCard(Card{Key: c.key, Value: c.value, Comment: "a comment"})
		if len(img) != CardSize {
			t.Fatalf("%s: card is %d bytes", c.key, len(img))
		}
		parsed := parseCard(img)
		if parsed.Key != c.key {
			t.Errorf("key %q round-tripped to %q", c.key, parsed.Key)
		}
		if parsed.Value != c.value {
			t.Errorf("%s: value %v (%T) round-tripped to %v (%T)", c.key, c.value, c.value, parsed.Value, parsed.Value)
		}
	}
}

func TestCardQuotedString(t *testing.T) {
	img := formatCard(Card{Key: "EXTNAME", Value: "AIPS AN"})
	parsed := parseCard(img)
	if parsed.Value != "AIPS AN" {
		t.Fatalf("got %q", parsed.Value)
	}

	img = formatCard(Card{Key: "COMMENT", Value: "doesn't need quoting"})
	parsed = parseCard(img)
	if parsed.Key != "COMMENT" {
		t.Fatalf("got key %q", parsed.Key)
	}
}

func TestHeaderEncodeDecode(t *testing.T) {
	h := NewHeader()
	h.Append("SIMPLE", true, "")
	h.Append("BITPIX", 8, "")
	h.Append("NAXIS", 0, "")
	h.Append("NCHANS", 32, "fine channels")
	h.Append("OBJECT", "high band", "")

	encoded := h.Encode()
	if len(encoded)%BlockSize != 0 {
		t.Fatalf("encoded header is %d bytes, not block aligned", len(encoded))
	}

	decoded, consumed, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(encoded) {
		t.Errorf("consumed %d of %d bytes", consumed, len(encoded))
	}
	if n, err := decoded.Int("NCHANS"); err != nil || n != 32 {
		t.Errorf("NCHANS = %d, %v", n, err)
	}
	if s, err := decoded.Str("OBJECT"); err != nil || s != "high band" {
		t.Errorf("OBJECT = %q, %v", s, err)
	}
	if decoded.Has("MISSING") {
		t.Error("Has reported a key that was never written")
	}
}

func TestDataSizeRandomGroups(t *testing.T) {
	h := NewHeader()
	h.Append("SIMPLE", true, "")
	h.Append("BITPIX", -32, "")
	h.Append("NAXIS", 6, "")
	h.Append("NAXIS1", 0, "")
	h.Append("NAXIS2", 3, "")
	h.Append("NAXIS3", 4, "")
	h.Append("NAXIS4", 8, "")
	h.Append("NAXIS5", 1, "")
	h.Append("NAXIS6", 1, "")
	h.Append("GROUPS", true, "")
	h.Append("PCOUNT", 5, "")
	h.Append("GCOUNT", 10, "")

	n, err := h.DataSize()
	if err != nil {
		t.Fatal(err)
	}
	// 10 groups x (5 params + 3*4*8 elements) x 4 bytes.
	if want := int64(10 * (5 + 96) * 4); n != want {
		t.Fatalf("DataSize = %d, want %d", n, want)
	}
}

func TestWriterAndOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "round.fits")

	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHeader()
	h.Append("SIMPLE", true, "")
	h.Append("BITPIX", 8, "")
	h.Append("NAXIS", 2, "")
	h.Append("NAXIS1", 4, "")
	h.Append("NAXIS2", 3, "")
	if err := w.AppendHDU(h); err != nil {
		t.Fatal(err)
	}
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if err := w.WriteDataAt(0, payload); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteDataAt(int64(len(payload)), []byte{1}); err == nil {
		t.Fatal("write past the data unit should fail")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if f.NumHDUs() != 1 {
		t.Fatalf("NumHDUs = %d", f.NumHDUs())
	}
	data, err := f.ReadData(0)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Fatalf("data = %v", data)
	}
}

func TestAppendHeaderKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.fits")

	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	primary := NewHeader()
	primary.Append("SIMPLE", true, "")
	primary.Append("BITPIX", 8, "")
	primary.Append("NAXIS", 0, "")
	if err := w.AppendHDU(primary); err != nil {
		t.Fatal(err)
	}
	ext := NewHeader()
	ext.Append("XTENSION", "BINTABLE", "")
	ext.Append("BITPIX", 8, "")
	ext.Append("NAXIS", 2, "")
	ext.Append("NAXIS1", 2, "")
	ext.Append("NAXIS2", 2, "")
	if err := w.AppendHDU(ext); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteDataAt(0, []byte{0xAA, 0xBB, 0xCC, 0xDD}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// Append enough cards to force the extension header into a second block:
	// a fresh header holds 35 cards before END spills over.
	var cards []Card
	for i := 0; i < 40; i++ {
		cards = append(cards, Card{Key: "REFLG_" + string(rune('A'+i/10)) + string(rune('0'+i%10)), Value: i})
	}
	if err := AppendHeaderKeys(path, 1, cards); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	hdu, err := f.HDU(1)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := hdu.Header.Int("REFLG_A0"); err != nil || v != 0 {
		t.Errorf("REFLG_A0 = %d, %v", v, err)
	}
	if v, err := hdu.Header.Int("REFLG_D9"); err != nil || v != 39 {
		t.Errorf("REFLG_D9 = %d, %v", v, err)
	}
	// The table data must have survived the header growth untouched.
	data, err := f.ReadData(1)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 0xAA || data[3] != 0xDD {
		t.Errorf("table data corrupted: %v", data)
	}

	// The file stays block aligned.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size()%BlockSize != 0 {
		t.Errorf("file size %d is not a multiple of %d", info.Size(), BlockSize)
	}
}

func TestReplaceHeaderKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replace.fits")

	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	primary := NewHeader()
	primary.Append("SIMPLE", true, "")
	primary.Append("BITPIX", 8, "")
	primary.Append("NAXIS", 2, "")
	primary.Append("NAXIS1", 2, "")
	primary.Append("NAXIS2", 2, "")
	primary.Append("CRVAL4", 1.0e8, "")
	if err := w.AppendHDU(primary); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteDataAt(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := ReplaceHeaderKey(path, 0, Card{Key: "CRVAL4", Value: 9.998e7}); err != nil {
		t.Fatal(err)
	}

	// The file size is unchanged and everything else is intact.
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if before.Size() != after.Size() {
		t.Fatalf("size changed %d -> %d", before.Size(), after.Size())
	}
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	hdu, err := f.HDU(0)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := hdu.Header.Float("CRVAL4"); err != nil || v != 9.998e7 {
		t.Errorf("CRVAL4 = %v, %v", v, err)
	}
	if n, err := hdu.Header.Int("NAXIS1"); err != nil || n != 2 {
		t.Errorf("NAXIS1 = %d, %v", n, err)
	}
	data, err := f.ReadData(0)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 1 || data[3] != 4 {
		t.Errorf("data = %v", data)
	}

	if err := ReplaceHeaderKey(path, 0, Card{Key: "MISSING", Value: 1}); err == nil {
		t.Error("replacing an absent key succeeded")
	}
	if err := ReplaceHeaderKey(path, 5, Card{Key: "CRVAL4", Value: 1}); err == nil {
		t.Error("replacing in an absent HDU succeeded")
	}
}

func TestFormWidth(t *testing.T) {
	cases := map[string]int{
		"8A": 8,
		"3D": 24,
		"1J": 4,
		"1E": 4,
		"3E": 12,
		"1A": 1,
		"D":  8,
	}
	for form, want := range cases {
		got, err := FormWidth(form)
		if err != nil {
			t.Errorf("%s: %v", form, err)
			continue
		}
		if got != want {
			t.Errorf("FormWidth(%s) = %d, want %d", form, got, want)
		}
	}
	if _, err := FormWidth("3Q"); err == nil {
		t.Error("expected an error for an unsupported type code")
	}
}
