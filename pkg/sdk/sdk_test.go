package sdk_test

import (
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
	"github.com/cognivault-dev/cognivault-ledger/internal/server"
	"github.com/cognivault-dev/cognivault-ledger/pkg/schema"
	"github.com/cognivault-dev/cognivault-ledger/pkg/sdk"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	store := ledger.NewMemLedger(nil, nil, nil)
	router := server.NewRouter(store, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go router.HandleConnection(conn)
		}
	}()

	return fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
}

func TestClient_Integration(t *testing.T) {
	addr := startTestServer(t)

	os.Setenv("COGNIVAULT_DISABLE_TLS", "true")
	defer os.Unsetenv("COGNIVAULT_DISABLE_TLS")

	client, err := sdk.Connect(addr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if !client.IsAvailable() {
		t.Error("Expected the store to report available")
	}

	// Raw storage surface
	if err := client.SetData("k1", []byte("v1")); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	val, err := client.GetData("k1")
	if err != nil || string(val) != "v1" {
		t.Errorf("GetData failed: %s, %v", val, err)
	}

	keys, err := client.Keys()
	if err != nil || len(keys) != 1 || keys[0] != "k1" {
		t.Errorf("Keys failed: %v, %v", keys, err)
	}

	// Record convention over the remote transport
	rs := sdk.NewRecordStore(client)
	r, err := rs.Submit("0xabc", schema.CategoryMemory, 42)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	records, err := rs.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != r.ID {
		t.Errorf("List mismatch: %v", records)
	}

	if _, err := rs.Activate(r.ID); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	got, err := rs.Get(r.ID)
	if err != nil || got.Status != schema.StatusActive {
		t.Errorf("Expected active status, got %v, %v", got, err)
	}
}

func TestClient_EmptyValueRoundTrip(t *testing.T) {
	addr := startTestServer(t)

	os.Setenv("COGNIVAULT_DISABLE_TLS", "true")
	defer os.Unsetenv("COGNIVAULT_DISABLE_TLS")

	client, err := sdk.Connect(addr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	// Empty values are legal on the storage surface and must survive
	// the wire framing without stalling the connection.
	if err := client.SetData("empty", []byte{}); err != nil {
		t.Fatalf("SetData with empty value failed: %v", err)
	}
	val, err := client.GetData("empty")
	if err != nil {
		t.Fatalf("GetData of empty value failed: %v", err)
	}
	if len(val) != 0 {
		t.Errorf("Expected zero bytes, got %q", val)
	}

	// CAS against the empty current value, and back to empty.
	if err := client.CompareAndSwapData("empty", []byte{}, []byte("v1")); err != nil {
		t.Fatalf("CAS over empty value failed: %v", err)
	}
	if err := client.CompareAndSwapData("empty", []byte("v1"), []byte{}); err != nil {
		t.Fatalf("CAS to empty value failed: %v", err)
	}
	val, err = client.GetData("empty")
	if err != nil || len(val) != 0 {
		t.Errorf("Expected zero bytes after swap, got %q, %v", val, err)
	}

	// The connection is still healthy.
	if err := client.Ping(); err != nil {
		t.Errorf("Ping after empty-value traffic failed: %v", err)
	}
}

func TestClient_MissingKeySentinel(t *testing.T) {
	addr := startTestServer(t)

	os.Setenv("COGNIVAULT_DISABLE_TLS", "true")
	defer os.Unsetenv("COGNIVAULT_DISABLE_TLS")

	client, err := sdk.Connect(addr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	_, err = client.GetData("missing")
	if err != sdk.ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound over the wire, got %v", err)
	}
}

func TestClient_ReconnectDoesNotPanic(t *testing.T) {
	store := ledger.NewMemLedger(nil, nil, nil)
	router := server.NewRouter(store, nil)

	listener, _ := net.Listen("tcp", "127.0.0.1:0")
	addr := listener.Addr().String()

	go func() {
		conn, _ := listener.Accept()
		if conn != nil {
			go router.HandleConnection(conn)
		}
	}()

	os.Setenv("COGNIVAULT_DISABLE_TLS", "true")
	defer os.Unsetenv("COGNIVAULT_DISABLE_TLS")
	client, _ := sdk.Connect(addr)

	// No more connections can be accepted after this.
	listener.Close()

	// The already-accepted connection may serve one command; after that
	// the client retries and fails. Neither path should panic.
	client.SetData("k1", []byte("v1"))
	client.GetData("k1")
}

func TestNew_EmbeddedFallback(t *testing.T) {
	os.Unsetenv("COGNIVAULT_LEDGER_ADDR")

	store, err := sdk.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !store.IsAvailable() {
		t.Error("Embedded store should be available")
	}
	if err := store.SetData("k", []byte("v")); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	val, err := store.GetData("k")
	if err != nil || string(val) != "v" {
		t.Errorf("GetData failed: %s, %v", val, err)
	}
}
