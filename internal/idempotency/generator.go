package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopeWebhookDelivery keys inbound gateway webhook deliveries
	ScopeWebhookDelivery Scope = "webhook_delivery"

	// Payment
	ScopePayment Scope = "payment"
)

// ReferencePrefix starts every payment reference we hand to the gateway
const ReferencePrefix = "TXN"

// Generator generates idempotency keys and payment references
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorWithClock is NewGenerator with a fixed time source
func NewGeneratorWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// GenerateReference returns a payment reference of the form
// TXN_<unix seconds>_<4 digits>. Uniqueness is enforced by storage; callers
// regenerate on conflict.
func (g *Generator) GenerateReference() string {
	return fmt.Sprintf("%s_%d_%04d", ReferencePrefix, g.now().Unix(), rand.IntN(10000))
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	// Sort params for consistent hashing
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Build hash input
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	// Generate SHA-256 hash
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:16]))
}

// DeliveryKey identifies a webhook body by its digest
func (g *Generator) DeliveryKey(body []byte) string {
	digest := sha256.Sum256(body)
	return g.GenerateKey(ScopeWebhookDelivery, map[string]interface{}{
		"digest": hex.EncodeToString(digest[:]),
	})
}
