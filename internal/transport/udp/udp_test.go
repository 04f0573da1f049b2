package udp

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	buf := make([]byte, 65536)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return buf[:n]
}

func TestPacketLayout(t *testing.T) {
	p := EncodePacket(nil, 7, 1234, []float32{0.5, 1, 42})
	if len(p) != headerSize+3*4 {
		t.Fatalf("packet length = %d", len(p))
	}
	seq, ts, values, err := DecodePacket(p)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if seq != 7 || ts != 1234 || len(values) != 3 || values[2] != 42 {
		t.Errorf("decoded %d %d %v", seq, ts, values)
	}
	if _, _, _, err := DecodePacket(p[:len(p)-1]); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestSenderJSON(t *testing.T) {
	conn := listen(t)
	s, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer s.Close()

	if err := s.Send(map[string]string{"chord": "Cm7"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(read(t, conn), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["chord"] != "Cm7" {
		t.Errorf("got %v", got)
	}

	_ = s.Close()
	if err := s.Send("late"); err == nil {
		t.Error("expected error after Close")
	}
}

func TestPublisherSendsFrames(t *testing.T) {
	conn := listen(t)
	s, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer s.Close()

	src := FrameFunc(func(dst []float32) []float32 {
		return append(dst[:0], 10, 20, 30, 40)
	})
	pub, err := NewPublisher(5*time.Millisecond, s, src)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	pub.Start()
	pub.Start() // no-op while running

	first, _, values, err := DecodePacket(read(t, conn))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(values) != 4 || values[3] != 40 {
		t.Errorf("values = %v", values)
	}
	second, _, _, _ := DecodePacket(read(t, conn))
	if second <= first {
		t.Errorf("sequence not increasing: %d then %d", first, second)
	}

	if err := pub.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNewPublisherValidation(t *testing.T) {
	if _, err := NewPublisher(time.Millisecond, nil, FrameFunc(nil)); err == nil {
		t.Error("expected error for nil sender")
	}
}
