// Package sdk is the client library for the Cognivault ledger. It speaks
// the daemon's TCP line protocol (TLS by default) or runs the ledger
// engine embedded in-process, and layers the training-record persistence
// convention on top of the raw storage surface.
package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// Client is a remote client for the ledger daemon. It implements ChainStore.
type Client struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // protects the connection
}

// Connect establishes a TLS connection to a remote ledger daemon.
// If COGNIVAULT_DISABLE_TLS is "true", it falls back to plain TCP.
func Connect(addr string) (*Client, error) {
	c := &Client{addr: addr}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if os.Getenv("COGNIVAULT_DISABLE_TLS") == "true" {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // self-signed certs for internal traffic
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// sendAndReceive issues one command line and reads one response line,
// reconnecting with backoff on transport failures. Protocol-level ERR
// responses are returned immediately without retrying.
func (c *Client) sendAndReceive(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error

	for i := 0; i < 3; i++ {
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		_, err = fmt.Fprint(c.conn, cmd+"\n")
		if err == nil {
			var resp string
			resp, err = c.reader.ReadString('\n')
			if err == nil {
				resp = strings.TrimSpace(resp)
				if strings.HasPrefix(resp, "ERR") {
					return "", mapProtocolError(strings.TrimPrefix(resp, "ERR "))
				}
				return resp, nil
			}
		}

		fmt.Fprintf(os.Stderr, "[Cognivault SDK] Attempt %d failed: %v. Reconnecting...\n", i+1, err)

		if closeErr := c.reconnect(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "[Cognivault SDK] Reconnect attempt failed: %v\n", closeErr)
		}

		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after 3 attempts. last error: %v", err)
}

// mapProtocolError turns wire-level ERR text back into the shared
// sentinels where possible.
func mapProtocolError(msg string) error {
	switch {
	case strings.Contains(msg, ErrKeyNotFound.Error()):
		return ErrKeyNotFound
	case strings.Contains(msg, ErrCASMismatch.Error()):
		return ErrCASMismatch
	default:
		return fmt.Errorf("%s", msg)
	}
}

// IsAvailable probes the daemon's storage surface. Transport failures
// count as unavailable.
func (c *Client) IsAvailable() bool {
	resp, err := c.sendAndReceive("AVAILABLE")
	if err != nil {
		return false
	}
	return strings.TrimPrefix(resp, "OK ") == "true"
}

// encodeValue frames value bytes for the wire. Base64 of zero bytes is
// the empty string and would vanish from the daemon's token framing, so
// empty values travel as "-".
func encodeValue(v []byte) string {
	if len(v) == 0 {
		return "-"
	}
	return base64.StdEncoding.EncodeToString(v)
}

// decodeValue parses a wire value token; "-" means zero bytes.
func decodeValue(tok string) ([]byte, error) {
	if tok == "-" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(tok)
}

func (c *Client) GetData(key string) ([]byte, error) {
	resp, err := c.sendAndReceive("GET " + key)
	if err != nil {
		return nil, err
	}
	return decodeValue(strings.TrimPrefix(resp, "OK "))
}

func (c *Client) SetData(key string, value []byte) error {
	_, err := c.sendAndReceive(fmt.Sprintf("SET %s %s", key, encodeValue(value)))
	return err
}

func (c *Client) CompareAndSwapData(key string, old, new []byte) error {
	// The old operand distinguishes absent ("-") from empty ("_");
	// the new value uses the shared empty framing.
	oldEnc := "-"
	switch {
	case old == nil:
	case len(old) == 0:
		oldEnc = "_"
	default:
		oldEnc = base64.StdEncoding.EncodeToString(old)
	}
	_, err := c.sendAndReceive(fmt.Sprintf("CAS %s %s %s", key, oldEnc, encodeValue(new)))
	return err
}

func (c *Client) Keys() ([]string, error) {
	resp, err := c.sendAndReceive("KEYS")
	if err != nil {
		return nil, err
	}
	var list []string
	err = json.Unmarshal([]byte(strings.TrimPrefix(resp, "OK ")), &list)
	return list, err
}

// Ping checks round-trip liveness of the connection.
func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING")
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected ping response %q", resp)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}
