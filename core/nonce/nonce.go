// Package nonce issues and checks short-lived form tokens bound to an action and a user.
//
// A nonce is "<tick in base32>-<signature>", where tick counts half-lifetimes since
// 2001-01-01 UTC. A nonce is accepted during the tick it was made in and the next one,
// so its real lifetime is between half and the full configured lifetime.
package nonce

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	salt    = []byte("certify.core.nonce")
	NowFunc = time.Now // mockable

	ErrInvalid = errors.New("invalid nonce")
	ErrExpired = errors.New("nonce expired")

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)
	ref = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type Generator struct {
	key      [32]byte
	lifetime time.Duration
}

func NewGenerator(secretKey string, lifetime time.Duration) *Generator {
	if lifetime < 2*time.Second {
		lifetime = 24 * time.Hour
	}
	return &Generator{
		key:      sha256.Sum256(append(append([]byte{}, salt...), secretKey...)),
		lifetime: lifetime,
	}
}

// Make returns a nonce for the action performed by userID.
func (g *Generator) Make(action, userID string) string {
	return g.makeWithTick(action, userID, g.tick(NowFunc()))
}

// Verify checks the nonce was made by Make for the same action and user, and is still fresh.
func (g *Generator) Verify(nonce, action, userID string) error {
	if nonce == "" {
		return ErrInvalid
	}
	parts := strings.SplitN(nonce, "-", 2)
	if len(parts) < 2 {
		return ErrInvalid
	}
	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return ErrInvalid
	}
	tick, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return ErrInvalid
	}

	// check that nonce has not been tampered with
	expected := g.makeWithTick(action, userID, tick)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(nonce)) == 0 {
		return ErrInvalid
	}

	age := g.tick(NowFunc()) - tick
	if age < 0 || age > 1 {
		return ErrExpired
	}
	return nil
}

func (g *Generator) tick(t time.Time) int64 {
	return int64(t.Sub(ref) / (g.lifetime / 2))
}

func (g *Generator) makeWithTick(action, userID string, tick int64) string {
	tsB32 := b32.EncodeToString([]byte(strconv.FormatInt(tick, 10)))
	return fmt.Sprintf("%s-%s", tsB32, g.sign(hashValue(action, userID, tick)))
}

func (g *Generator) sign(val []byte) string {
	h := hmac.New(sha256.New, g.key[:])
	_, _ = h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashValue(action, userID string, tick int64) []byte {
	var val bytes.Buffer
	val.WriteString(action)
	val.WriteByte('|')
	val.WriteString(userID)
	val.WriteByte('|')
	val.WriteString(strconv.FormatInt(tick, 10))
	return val.Bytes()
}
