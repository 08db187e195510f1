package paypro

import (
	"crypto/md5" //nolint:gosec // processor-mandated digest
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"strings"
)

// sandboxHash is MD5("1"), the fixed HASH value the sandbox sends
const sandboxHash = "c4ca4238a0b923820dcc509a6f75849b"

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // processor-mandated digest
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func equalToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// ExpectedHash returns the HASH value the processor must send for orderID
func (g *Gateway) ExpectedHash(orderID string) string {
	if g.cfg.TestMode {
		return sandboxHash
	}
	return md5Hex(orderID + g.cfg.IPNSecretKey)
}

// VerifyHash checks the HASH field. In test mode only the sandbox
// constant is accepted, whatever the other fields contain.
func (g *Gateway) VerifyHash(ev *Event) bool {
	if ev.Hash == "" {
		return false
	}
	return equalToken(ev.Hash, g.ExpectedHash(ev.OrderID))
}

// ExpectedSignature returns the SIGNATURE value the processor must send
func (g *Gateway) ExpectedSignature(ev *Event) string {
	testFlag := "0"
	if g.cfg.TestMode {
		testFlag = "1"
	}
	return sha256Hex(ev.OrderID + ev.OrderStatus + ev.OrderTotalAmount + ev.CustomerEmail +
		g.cfg.ValidationKey + testFlag + ev.TypeName)
}

// VerifySignature checks the SIGNATURE field
func (g *Gateway) VerifySignature(ev *Event) bool {
	if ev.Signature == "" {
		return false
	}
	return equalToken(ev.Signature, g.ExpectedSignature(ev))
}

// normalizeIP strips an IPv6-mapped-IPv4 prefix and surrounding space
func normalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if strings.HasPrefix(strings.ToLower(ip), "::ffff:") {
		ip = ip[len("::ffff:"):]
	}
	return ip
}

// VerifyIP checks the caller against the processor allowlist. Test mode
// accepts any caller.
func (g *Gateway) VerifyIP(remoteIP string) bool {
	if g.cfg.TestMode {
		return true
	}

	ip := net.ParseIP(normalizeIP(remoteIP))
	if ip == nil {
		return false
	}
	for _, allowed := range g.cfg.AllowedIPs {
		if a := net.ParseIP(allowed); a != nil && a.Equal(ip) {
			return true
		}
	}
	return false
}

// Verify runs every authenticity check. The event may only be acted on
// when it returns nil.
func (g *Gateway) Verify(ev *Event, remoteIP string) error {
	if !g.VerifyIP(remoteIP) {
		return ErrIPNotAllowed
	}
	if !g.VerifyHash(ev) {
		return ErrHashMismatch
	}
	if !g.VerifySignature(ev) {
		return ErrSignatureMismatch
	}
	return nil
}
