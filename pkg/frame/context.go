package frame

import (
	"github.com/google/uuid"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
)

// InvocationContext is the externally owned value describing who invoked a
// capability and under what policy. Many frames in a session share one
// context allocation; frames hold a pointer and never mutate the value. The
// content hash covers the context's canonical digest rather than its address,
// so frame identity is stable across processes.
type InvocationContext struct {
	ContextID     string         `json:"context_id"`
	AgentIdentity string         `json:"agent_identity"`
	TenantID      string         `json:"tenant_id"`
	PolicyContext map[string]any `json:"policy_context,omitempty"`
	QoSHints      map[string]any `json:"qos_hints,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// NewInvocationContext builds a context with a generated context id.
func NewInvocationContext(agentIdentity, tenantID string) *InvocationContext {
	return &InvocationContext{
		ContextID:     uuid.NewString(),
		AgentIdentity: agentIdentity,
		TenantID:      tenantID,
	}
}

// Digest returns the canonical hash of the context value.
func (c *InvocationContext) Digest() (string, error) {
	return canonical.Hash(c)
}
