package protocol

import "testing"

func TestCRC16(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected uint16
	}{
		{[]byte{}, 0xFFFF},
		{[]byte("123456789"), 0x6F91},
		{[]byte{5, MessageDest}, 0x9E81},
		{[]byte{7, 0x10, 0x02, 0x01}, 0xF3AC},
	}

	for i, tc := range testCases {
		if got := CRC16(tc.data); got != tc.expected {
			t.Errorf("case %d: CRC16(%v) = 0x%04X, want 0x%04X", i, tc.data, got, tc.expected)
		}
	}
}

func TestCRC16Different(t *testing.T) {
	data1 := []byte{0x01, 0x02, 0x03}
	data2 := []byte{0x01, 0x02, 0x04}

	if crc1, crc2 := CRC16(data1), CRC16(data2); crc1 == crc2 {
		t.Errorf("CRC16 collision: both inputs produced %04X", crc1)
	}
}

func TestAppendCRC(t *testing.T) {
	out := &ScratchOutput{}
	appendCRC(out, []byte("123456789"))
	got := out.Result()
	if len(got) != 2 || got[0] != 0x6F || got[1] != 0x91 {
		t.Errorf("appendCRC wrote %x, want 6f91", got)
	}
}
