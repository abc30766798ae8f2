package blob

import (
	"bytes"
	"compress/gzip"
	"testing"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode_Legacy(t *testing.T) {
	res := Decode([]byte("Meeting notes #work @alice"), true)
	if res.Kind != KindLegacyText {
		t.Fatalf("kind = %v, want legacy text", res.Kind)
	}
	if res.Text != "Meeting notes #work @alice" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Anomaly != nil {
		t.Errorf("unexpected anomaly: %v", res.Anomaly)
	}
}

func TestDecode_Gzip(t *testing.T) {
	payload := []byte{0x08, 0x01, 0x12, 0x03, 'a', 'b', 'c'}
	res := Decode(gzipped(t, payload), false)
	if res.Kind != KindStructured {
		t.Fatalf("kind = %v, want structured", res.Kind)
	}
	if !bytes.Equal(res.Structured, payload) {
		t.Errorf("structured = %x, want %x", res.Structured, payload)
	}
	if res.Anomaly != nil {
		t.Errorf("unexpected anomaly: %v", res.Anomaly)
	}
}

func TestDecode_BadMagicFallsThrough(t *testing.T) {
	raw := []byte{0x0a, 0x05, 'h', 'e', 'l', 'l', 'o'}
	res := Decode(raw, false)
	if res.Kind != KindStructured {
		t.Fatalf("kind = %v, want structured", res.Kind)
	}
	if !bytes.Equal(res.Structured, raw) {
		t.Errorf("raw bytes not passed through")
	}
	if res.Anomaly == nil {
		t.Error("expected recorded anomaly for non-gzip payload")
	}
}

func TestDecode_TruncatedStream(t *testing.T) {
	full := gzipped(t, bytes.Repeat([]byte("othala "), 100))
	truncated := full[:len(full)/2]
	res := Decode(truncated, false)
	if res.Kind != KindStructured {
		t.Fatalf("kind = %v, want structured", res.Kind)
	}
	if !bytes.Equal(res.Structured, truncated) {
		t.Error("truncated raw bytes not passed through")
	}
	if res.Anomaly == nil {
		t.Error("expected recorded anomaly for truncated stream")
	}
}

func TestDecode_CorruptChecksum(t *testing.T) {
	data := gzipped(t, []byte("checksummed content"))
	data[len(data)-1] ^= 0xff
	res := Decode(data, false)
	if res.Anomaly == nil {
		t.Error("expected recorded anomaly for checksum mismatch")
	}
	if !bytes.Equal(res.Structured, data) {
		t.Error("corrupt raw bytes not passed through")
	}
}

func TestIsGzip(t *testing.T) {
	if IsGzip([]byte{0x1f, 0x8b}) {
		t.Error("two bytes alone should not qualify")
	}
	if !IsGzip([]byte{0x1f, 0x8b, 0x08}) {
		t.Error("gzip magic not recognized")
	}
	if IsGzip([]byte("plain")) {
		t.Error("plain text misdetected as gzip")
	}
}
