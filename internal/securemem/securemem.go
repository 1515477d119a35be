// Package securemem keeps provider credentials in memguard-protected memory
// so API keys never sit in ordinary heap strings longer than a request needs.
package securemem

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// String is a secret held in a locked, guarded buffer.
type String struct {
	buf *memguard.LockedBuffer
}

// NewString moves plaintext into guarded memory.
func NewString(plaintext string) *String {
	if plaintext == "" {
		return &String{}
	}
	return &String{buf: memguard.NewBufferFromBytes([]byte(plaintext))}
}

func (s *String) live() bool {
	return s != nil && s.buf != nil && s.buf.IsAlive()
}

// String returns a plaintext copy. The copy lives in regular memory.
func (s *String) String() string {
	if !s.live() {
		return ""
	}
	return string(s.buf.Bytes())
}

func (s *String) IsEmpty() bool {
	return !s.live() || s.buf.Size() == 0
}

// Equal compares against plaintext in constant time.
func (s *String) Equal(other string) bool {
	if !s.live() {
		return other == ""
	}
	return subtle.ConstantTimeCompare(s.buf.Bytes(), []byte(other)) == 1
}

// Redacted returns a display-safe form such as "sk-…3f9a".
func (s *String) Redacted() string {
	if s.IsEmpty() {
		return ""
	}
	b := s.buf.Bytes()
	if len(b) <= 8 {
		return "****"
	}
	return string(b[:3]) + "…" + string(b[len(b)-4:])
}

// Destroy wipes the buffer. Safe to call more than once.
func (s *String) Destroy() {
	if s.live() {
		s.buf.Destroy()
	}
	if s != nil {
		s.buf = nil
	}
}

// Purge wipes every guarded buffer in the process. Call on shutdown.
func Purge() {
	memguard.Purge()
}
