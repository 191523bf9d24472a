package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPTransportSendReceive(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewTCPTransport(clientConn)
	server := NewTCPTransport(serverConn)

	ctx := context.Background()
	want := []byte("hello frame")

	errCh := make(chan error, 1)
	go func() { errCh <- client.Send(ctx, want) }()

	got := make([]byte, len(want))
	if err := server.ReceiveExact(ctx, got); err != nil {
		t.Fatalf("ReceiveExact: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTCPTransportCancellationUnblocksReceive(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := NewTCPTransport(serverConn)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		errCh <- server.ReceiveExact(ctx, buf)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != ErrCancelled {
			t.Fatalf("err = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveExact did not unblock after cancellation")
	}
}

func TestTCPTransportCloseIsIdempotent(t *testing.T) {
	_, serverConn := net.Pipe()
	tr := NewTCPTransport(serverConn)

	if err := tr.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := tr.Send(context.Background(), []byte("x")); err != ErrClosed {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}
}
