package idempotency

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReference(t *testing.T) {
	g := NewGeneratorWithClock(func() time.Time { return time.Unix(1700000000, 0) })

	pattern := regexp.MustCompile(`^TXN_1700000000_\d{4}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, g.GenerateReference())
	}
}

func TestGenerateKeyIsOrderIndependent(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateKey(ScopePayment, map[string]interface{}{"tenant": "t1", "amount": "120.00"})
	b := g.GenerateKey(ScopePayment, map[string]interface{}{"amount": "120.00", "tenant": "t1"})
	c := g.GenerateKey(ScopePayment, map[string]interface{}{"amount": "120.01", "tenant": "t1"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^payment-[0-9a-f]{32}$`, a)
}

func TestDeliveryKey(t *testing.T) {
	g := NewGenerator()

	assert.Equal(t, g.DeliveryKey([]byte(`{"event":"charge.success"}`)), g.DeliveryKey([]byte(`{"event":"charge.success"}`)))
	assert.NotEqual(t, g.DeliveryKey([]byte(`{"event":"charge.success"}`)), g.DeliveryKey([]byte(`{"event":"charge.success"} `)))
}
