// Package server exposes the ledger over a TCP line protocol.
//
// Commands:
//
//	AVAILABLE                      -> OK true|false
//	GET <key>                      -> OK <base64>
//	SET <key> <base64>             -> OK
//	CAS <key> <old-base64|-|_> <new> -> OK
//	KEYS                           -> OK <json array>
//	PING                           -> PONG
//	QUIT                           -> closes the connection
//
// Values travel base64-encoded so arbitrary bytes survive the line
// framing. Base64 of zero bytes is the empty string, which would vanish
// from the token stream, so empty values are framed as "-" in both
// directions. CAS's old operand distinguishes "-" (key must be absent)
// from "_" (current value must be empty).
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
)

// encodeValue frames value bytes for the wire; zero bytes become "-".
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

type Router struct {
	store ledger.ChainLedger
	cert  *tls.Certificate
	log   *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

func NewRouter(s ledger.ChainLedger, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{store: s, log: log}
}

// SetCertificate enables TLS on the listener.
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Listen starts accepting connections on the given port and blocks until
// the listener is closed.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	r.log.Info("tcp listener accepting", zap.String("addr", listener.Addr().String()))

	semaphore := make(chan struct{}, 100) // connection cap

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.listener == nil
			r.mu.Unlock()
			if closed {
				return nil
			}
			continue
		}

		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.HandleConnection(c)
		}(conn)
	}
}

// Stop closes the listener. In-flight connections finish on their own.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener != nil {
		r.listener.Close()
		r.listener = nil
	}
}

// HandleConnection serves one client until QUIT, error, or idle timeout.
func (r *Router) HandleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) < 1 {
			continue
		}

		switch strings.ToUpper(parts[0]) {
		case "AVAILABLE":
			fmt.Fprintf(conn, "OK %t\n", r.store.IsAvailable())

		case "GET":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR missing argument")
				continue
			}
			val, err := r.store.GetData(parts[1])
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK", encodeValue(val))
			}

		case "SET":
			if len(parts) < 3 {
				fmt.Fprintln(conn, "ERR missing argument")
				continue
			}
			val, err := decodeValue(parts[2])
			if err != nil {
				fmt.Fprintln(conn, "ERR invalid base64 value")
				continue
			}
			if err := r.store.SetData(parts[1], val); err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "CAS":
			if len(parts) < 4 {
				fmt.Fprintln(conn, "ERR missing argument")
				continue
			}
			var old []byte
			switch parts[2] {
			case "-":
				// key must be absent
			case "_":
				old = []byte{}
			default:
				old, err = base64.StdEncoding.DecodeString(parts[2])
				if err != nil {
					fmt.Fprintln(conn, "ERR invalid base64 old value")
					continue
				}
			}
			val, err := decodeValue(parts[3])
			if err != nil {
				fmt.Fprintln(conn, "ERR invalid base64 value")
				continue
			}
			if err := r.store.CompareAndSwapData(parts[1], old, val); err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "KEYS":
			keys, err := r.store.Keys()
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
				continue
			}
			if keys == nil {
				keys = []string{}
			}
			res, err := json.Marshal(keys)
			if err != nil {
				fmt.Fprintln(conn, "ERR internal error")
			} else {
				fmt.Fprintln(conn, "OK", string(res))
			}

		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return
		}
	}
}
