package wire

import "testing"

func TestAlertCodecRoundTrip(t *testing.T) {
	for _, a := range []AlertCode{EndSession, MoreFilesSameStep, NextStep} {
		got, err := DecodeAlert(EncodeAlert(a))
		if err != nil {
			t.Fatalf("decode %v: %v", a, err)
		}
		if got != a {
			t.Fatalf("roundtrip mismatch: got %v want %v", got, a)
		}
	}
}

func TestDecodeAlertRejectsUnknownByte(t *testing.T) {
	if _, err := DecodeAlert([]byte{'7'}); err == nil {
		t.Fatal("expected ProtocolViolation for alert byte '7'")
	}
}

func TestDecodeAlertRejectsWrongLength(t *testing.T) {
	if _, err := DecodeAlert([]byte{'0', '1'}); err == nil {
		t.Fatal("expected ProtocolViolation for 2-byte alert frame")
	}
	if _, err := DecodeAlert(nil); err == nil {
		t.Fatal("expected ProtocolViolation for empty alert frame")
	}
}

func TestFilenameCodecRoundTrip(t *testing.T) {
	name := "delta_r_xgc_o.bin"
	got, err := DecodeFilename(EncodeFilename(name))
	if err != nil {
		t.Fatalf("decode filename: %v", err)
	}
	if got != name {
		t.Fatalf("got %q want %q", got, name)
	}
}

func TestDecodeBodyFrameDistinguishesEOF(t *testing.T) {
	if f := DecodeBodyFrame(nil); f.Kind != KindFileEnd {
		t.Fatalf("expected KindFileEnd for empty body, got %v", f.Kind)
	}
	if f := DecodeBodyFrame([]byte{1, 2, 3}); f.Kind != KindData {
		t.Fatalf("expected KindData for non-empty body, got %v", f.Kind)
	}
}

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	msgs := [][]byte{[]byte("hello"), {}, []byte("world")}
	for _, m := range msgs {
		if err := a.Send(m); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for _, want := range msgs {
		got, err := b.Recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if string(got) != string(want) {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestPipeCloseUnblocksRecv(t *testing.T) {
	a, b := NewPipe()
	a.Close()
	if _, err := b.Recv(); err != ErrPipeClosed {
		t.Fatalf("expected ErrPipeClosed, got %v", err)
	}
}
