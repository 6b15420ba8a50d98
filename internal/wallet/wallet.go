// Package wallet tracks the connected wallet and answers token balance
// queries for it.
package wallet

import (
	"errors"
	"strings"
	"sync"
	"time"

	"storyai/internal/logging"

	"github.com/google/uuid"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrAlreadyConnected = errors.New("wallet already connected")
	ErrNotConnected     = errors.New("wallet not connected")
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidAddress reports whether addr looks like a base58 Solana public key.
func ValidAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	for _, r := range addr {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

// Shorten renders an address as its first and last four characters.
func Shorten(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

// Connection describes a connected wallet.
type Connection struct {
	Address     string
	Token       string // auth session token
	ConnectedAt time.Time
}

// Wallet is the connection state for one terminal session.
type Wallet struct {
	mu   sync.RWMutex
	conn *Connection
	now  func() time.Time
}

// New returns a disconnected wallet.
func New() *Wallet {
	return &Wallet{now: time.Now}
}

// Connect attaches address and issues a fresh auth token.
func (w *Wallet) Connect(address string) (Connection, error) {
	address = strings.TrimSpace(address)
	if !ValidAddress(address) {
		return Connection{}, ErrInvalidAddress
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return *w.conn, ErrAlreadyConnected
	}
	w.conn = &Connection{Address: address, Token: uuid.NewString(), ConnectedAt: w.now()}
	logging.Wallet("wallet %s connected", Shorten(address))
	return *w.conn, nil
}

// Disconnect drops the connection and its auth token. It reports whether a
// wallet was connected.
func (w *Wallet) Disconnect() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return false
	}
	logging.Wallet("wallet %s disconnected", Shorten(w.conn.Address))
	w.conn = nil
	return true
}

// Connection returns the current connection, if any.
func (w *Wallet) Connection() (Connection, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return Connection{}, false
	}
	return *w.conn, true
}

// Connected reports whether a wallet is attached.
func (w *Wallet) Connected() bool {
	_, ok := w.Connection()
	return ok
}

// Address returns the connected address or "".
func (w *Wallet) Address() string {
	c, _ := w.Connection()
	return c.Address
}

// Authenticated reports whether the connection carries an auth token.
func (w *Wallet) Authenticated() bool {
	c, ok := w.Connection()
	return ok && c.Token != ""
}
