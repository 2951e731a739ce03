// Package fhe models the homomorphic score pipeline the ledger exposes:
// encrypted score submission, asynchronous decryption requests, the
// decrypted-value callback, and a running average. The actual homomorphic
// runtime is external; this coprocessor stands in for its gateway using
// AES-GCM, so the pipeline shape (opaque handles, async callbacks) is real
// even though the cryptography is not FHE.
package fhe

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cognivault-dev/cognivault-ledger/internal/vault"
	"github.com/cognivault-dev/cognivault-ledger/pkg/schema"
)

// DecryptedCallback receives the plaintext score once a decryption
// request completes.
type DecryptedCallback func(requestID, owner string, score int)

type cipherEntry struct {
	owner      string
	ciphertext string
}

// Coprocessor holds submitted ciphertexts and serves decryption requests.
type Coprocessor struct {
	mu        sync.Mutex
	key       []byte
	scores    map[string]cipherEntry // handle -> submission
	callbacks []DecryptedCallback
	sum       int
	count     int
	wg        sync.WaitGroup
	log       *zap.Logger
}

// NewCoprocessor initializes the pipeline with the gateway key.
func NewCoprocessor(gatewayKey []byte, log *zap.Logger) (*Coprocessor, error) {
	if len(gatewayKey) != vault.KeySize {
		return nil, fmt.Errorf("gateway key must be %d bytes, got %d", vault.KeySize, len(gatewayKey))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coprocessor{
		key:    gatewayKey,
		scores: make(map[string]cipherEntry),
		log:    log,
	}, nil
}

// EncryptScore seals a plaintext score for submission. In the real system
// the client's FHE library produces the ciphertext; tests and the CLI use
// this helper instead.
func (c *Coprocessor) EncryptScore(score int) (string, error) {
	if err := schema.ValidateScore(score); err != nil {
		return "", err
	}
	return vault.Encrypt(strconv.Itoa(score), c.key)
}

// SubmitScore stores an encrypted score and returns its opaque handle.
// The ciphertext is not inspected at submission time.
func (c *Coprocessor) SubmitScore(owner, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", fmt.Errorf("empty ciphertext")
	}
	handle := uuid.NewString()

	c.mu.Lock()
	c.scores[handle] = cipherEntry{owner: owner, ciphertext: ciphertext}
	c.mu.Unlock()

	c.log.Info("encrypted score submitted",
		zap.String("handle", handle),
		zap.String("owner", owner))
	return handle, nil
}

// OnDecrypted registers a callback fired for every successful decryption.
func (c *Coprocessor) OnDecrypted(fn DecryptedCallback) {
	c.mu.Lock()
	c.callbacks = append(c.callbacks, fn)
	c.mu.Unlock()
}

// RequestDecryption queues an asynchronous decryption of the ciphertext
// behind handle and returns the request id immediately. The decrypted
// value arrives through the registered callbacks. Undecryptable or
// out-of-range ciphertexts are logged and dropped without poisoning the
// running average.
func (c *Coprocessor) RequestDecryption(handle string) (string, error) {
	c.mu.Lock()
	entry, ok := c.scores[handle]
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown score handle %s", handle)
	}

	requestID := uuid.NewString()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.decrypt(requestID, entry)
	}()
	return requestID, nil
}

func (c *Coprocessor) decrypt(requestID string, entry cipherEntry) {
	plaintext, err := vault.Decrypt(entry.ciphertext, c.key)
	if err != nil {
		c.log.Warn("decryption request failed",
			zap.String("request", requestID),
			zap.Error(err))
		return
	}

	score, err := strconv.Atoi(plaintext)
	if err != nil {
		c.log.Warn("decrypted payload is not a score",
			zap.String("request", requestID))
		return
	}
	if err := schema.ValidateScore(score); err != nil {
		c.log.Warn("decrypted score out of range",
			zap.String("request", requestID),
			zap.Int("score", score))
		return
	}

	c.mu.Lock()
	c.sum += score
	c.count++
	callbacks := make([]DecryptedCallback, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(requestID, entry.owner, score)
	}
}

// Average returns the running average over all decrypted scores and
// whether any score has been decrypted yet.
func (c *Coprocessor) Average() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return 0, false
	}
	return float64(c.sum) / float64(c.count), true
}

// Wait blocks until all in-flight decryption requests complete.
func (c *Coprocessor) Wait() {
	c.wg.Wait()
}
