package paypro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func prodGateway() *Gateway {
	return NewGateway(Config{
		IPNSecretKey:  "ipn-secret",
		ValidationKey: "validation-key",
		AllowedIPs:    []string{"198.51.100.10", "198.51.100.20"},
	})
}

func sandboxGateway() *Gateway {
	return NewGateway(Config{
		IPNSecretKey:  "ipn-secret",
		ValidationKey: "validation-key",
		TestMode:      true,
	})
}

func signedEvent(g *Gateway) *Event {
	ev := &Event{
		TypeID:           IPNOrderCharged,
		TypeName:         "OrderCharged",
		OrderID:          "ORD-1",
		OrderStatus:      "Processed",
		OrderTotalAmount: "50.00",
		CustomerEmail:    "owner@salon.test",
	}
	ev.Hash = g.ExpectedHash(ev.OrderID)
	ev.Signature = g.ExpectedSignature(ev)
	return ev
}

func TestVerifyHash_Production(t *testing.T) {
	g := prodGateway()

	ev := &Event{OrderID: "ORD-1", Hash: md5Hex("ORD-1" + "ipn-secret")}
	assert.True(t, g.VerifyHash(ev))

	mutated := *ev
	mutated.OrderID = "ORD-2"
	assert.False(t, g.VerifyHash(&mutated))

	// the sandbox constant is not valid in production
	assert.False(t, g.VerifyHash(&Event{OrderID: "ORD-1", Hash: sandboxHash}))
	assert.False(t, g.VerifyHash(&Event{OrderID: "ORD-1"}))
}

func TestVerifyHash_SingleCharMutations(t *testing.T) {
	g := prodGateway()
	orderID := "123456"
	hash := md5Hex(orderID + "ipn-secret")

	for i := range orderID {
		b := []byte(orderID)
		b[i] = 'x'
		assert.False(t, g.VerifyHash(&Event{OrderID: string(b), Hash: hash}), "mutation at %d", i)
	}
}

func TestVerifyHash_Sandbox(t *testing.T) {
	g := sandboxGateway()

	assert.Equal(t, "c4ca4238a0b923820dcc509a6f75849b", md5Hex("1"))
	assert.True(t, g.VerifyHash(&Event{OrderID: "anything", Hash: sandboxHash}))
	assert.True(t, g.VerifyHash(&Event{OrderID: "", Hash: sandboxHash}))
	assert.False(t, g.VerifyHash(&Event{OrderID: "ORD-1", Hash: md5Hex("ORD-1" + "ipn-secret")}))
}

func TestVerifySignature_AnyFieldChangeFails(t *testing.T) {
	g := prodGateway()
	base := signedEvent(g)
	assert.True(t, g.VerifySignature(base))

	mutations := map[string]func(e *Event){
		"order id":     func(e *Event) { e.OrderID = "ORD-9" },
		"order status": func(e *Event) { e.OrderStatus = "Refunded" },
		"amount":       func(e *Event) { e.OrderTotalAmount = "0.01" },
		"email":        func(e *Event) { e.CustomerEmail = "evil@attacker.test" },
		"type name":    func(e *Event) { e.TypeName = "SubscriptionRenewed" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ev := *base
			mutate(&ev)
			assert.False(t, g.VerifySignature(&ev))
		})
	}
}

func TestVerifySignature_TestModeFlagIsSigned(t *testing.T) {
	ev := signedEvent(prodGateway())
	assert.False(t, sandboxGateway().VerifySignature(ev))
}

func TestVerifyIP(t *testing.T) {
	g := prodGateway()

	assert.True(t, g.VerifyIP("198.51.100.10"))
	assert.True(t, g.VerifyIP("198.51.100.20"))
	assert.True(t, g.VerifyIP("::ffff:198.51.100.10"))
	assert.True(t, g.VerifyIP("::FFFF:198.51.100.20"))
	assert.False(t, g.VerifyIP("203.0.113.5"))
	assert.False(t, g.VerifyIP("::ffff:203.0.113.5"))
	assert.False(t, g.VerifyIP(""))
	assert.False(t, g.VerifyIP("not-an-ip"))

	sb := sandboxGateway()
	assert.True(t, sb.VerifyIP("203.0.113.5"))
	assert.True(t, sb.VerifyIP(""))
}

func TestVerifyIP_DefaultAllowlist(t *testing.T) {
	g := NewGateway(Config{})
	for _, ip := range DefaultAllowedIPs {
		assert.True(t, g.VerifyIP(ip))
		assert.True(t, g.VerifyIP("::ffff:"+ip))
	}
}

func TestVerify(t *testing.T) {
	g := prodGateway()
	ev := signedEvent(g)

	assert.NoError(t, g.Verify(ev, "198.51.100.10"))
	assert.ErrorIs(t, g.Verify(ev, "203.0.113.5"), ErrIPNotAllowed)

	badHash := *ev
	badHash.Hash = sandboxHash
	assert.ErrorIs(t, g.Verify(&badHash, "198.51.100.10"), ErrHashMismatch)

	badSig := *ev
	badSig.Signature = "deadbeef"
	assert.ErrorIs(t, g.Verify(&badSig, "198.51.100.10"), ErrSignatureMismatch)
}
