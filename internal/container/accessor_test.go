package container

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestReadU32OutOfRange(t *testing.T) {
	a := NewAccessor([]byte{0, 0, 0, 1})
	if got := a.ReadU32(1); got != 0 {
		t.Errorf("ReadU32 out of range = %d, want 0", got)
	}
}

func TestReadU32InRange(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, 0xDEADBEEF)
	a := NewAccessor(buf)
	if got := a.ReadU32(0); got != 0xDEADBEEF {
		t.Errorf("ReadU32 = %#x, want 0xDEADBEEF", got)
	}
}

func TestReadBytesOutOfRange(t *testing.T) {
	a := NewAccessor([]byte{1, 2, 3})
	if got := a.ReadBytes(0, 10); got != nil {
		t.Errorf("ReadBytes beyond buffer = %v, want nil", got)
	}
	if got := a.ReadBytes(-1, 2); got != nil {
		t.Errorf("ReadBytes with negative offset = %v, want nil", got)
	}
}

func TestReadFourCC(t *testing.T) {
	a := NewAccessor([]byte("ssgp"))
	if got := a.ReadFourCC(0); got != "ssgp" {
		t.Errorf("ReadFourCC = %q, want %q", got, "ssgp")
	}
	if got := a.ReadFourCC(1); got != "" {
		t.Errorf("ReadFourCC out of range = %q, want empty", got)
	}
}

func TestReadTimestamp(t *testing.T) {
	ts := "20260731120000Z\x00"
	a := NewAccessor([]byte(ts))
	if got := a.ReadTimestamp(0); got != ts {
		t.Errorf("ReadTimestamp = %q, want %q", got, ts)
	}
}

func TestReadLVRoundsUpPadding(t *testing.T) {
	buf := make([]byte, 4+8) // length field + 8 bytes of padded storage
	binary.BigEndian.PutUint32(buf[0:4], 5)
	copy(buf[4:], []byte("hello\x00\x00\x00"))

	a := NewAccessor(buf)
	got := a.ReadLV(0)
	if !bytes.Equal(got, []byte("hello\x00\x00\x00")) {
		t.Errorf("ReadLV = %q, want %q (padded, not trimmed)", got, "hello\x00\x00\x00")
	}
}

func TestReadLVOverrunsBuffer(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, 1000)
	a := NewAccessor(buf)
	if got := a.ReadLV(0); got != nil {
		t.Errorf("ReadLV with an out-of-range padded length = %v, want nil", got)
	}
}

func TestReadLVZeroLength(t *testing.T) {
	buf := make([]byte, 4)
	a := NewAccessor(buf)
	got := a.ReadLV(0)
	if len(got) != 0 {
		t.Errorf("ReadLV(length=0) = %v, want empty", got)
	}
}

func TestMaskOffsetClearsLowBit(t *testing.T) {
	if got := MaskOffset(0x39); got != 0x38 {
		t.Errorf("MaskOffset(0x39) = %#x, want 0x38", got)
	}
	if got := MaskOffset(0x38); got != 0x38 {
		t.Errorf("MaskOffset(0x38) = %#x, want 0x38 (already clear)", got)
	}
	if got := MaskOffset(1); got != 0 {
		t.Errorf("MaskOffset(1) = %#x, want 0", got)
	}
}
