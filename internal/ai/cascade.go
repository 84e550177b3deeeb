package ai

import (
	"context"
	"log"
	"strings"
)

// SourceFallback is reported as the provider name when the deterministic
// keyword responder produced the reply.
const SourceFallback = "fallback"

// Cascade drives providers in priority order for a single request. Attempts
// are stateless; no result is cached across requests.
type Cascade struct {
	registry  *Registry
	order     []string
	primaries []string
	fallback  string
}

// NewCascade builds a cascade over registered providers. order is the
// credential-filtered default priority, primaries the (at most two) cloud
// providers that cross-fall to each other, fallback the provider of last
// resort before the keyword responder.
func NewCascade(registry *Registry, order, primaries []string, fallback string) *Cascade {
	if len(primaries) > 2 {
		primaries = primaries[:2]
	}
	return &Cascade{
		registry:  registry,
		order:     order,
		primaries: primaries,
		fallback:  fallback,
	}
}

// Generate runs the cascade and always returns a non-empty reply together
// with the name of the provider that produced it.
func (c *Cascade) Generate(ctx context.Context, userMessage string, messages []Message, preferred string) (string, string) {
	for _, name := range c.attempts(preferred) {
		p, err := c.registry.Get(ctx, name)
		if err != nil {
			continue
		}
		reply, err := p.Chat(ctx, messages)
		if err != nil {
			log.Printf("cascade: provider=%s failed: %v", name, err)
			continue
		}
		if strings.TrimSpace(reply) != "" {
			return reply, name
		}
	}
	return FallbackReply(userMessage), SourceFallback
}

// attempts computes the bounded attempt sequence: the selected head, at most
// one cross-hop to the sibling primary, then the configured fallback
// provider. Duplicates and unregistered names are dropped.
func (c *Cascade) attempts(preferred string) []string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))

	head := ""
	if preferred != "" && c.registry.Has(preferred) {
		head = preferred
	} else if len(c.order) > 0 {
		head = c.order[0]
	}

	var seq []string
	add := func(name string) {
		if name == "" || !c.registry.Has(name) {
			return
		}
		for _, s := range seq {
			if s == name {
				return
			}
		}
		seq = append(seq, name)
	}

	add(head)
	if len(c.primaries) == 2 {
		switch head {
		case c.primaries[0]:
			add(c.primaries[1])
		case c.primaries[1]:
			add(c.primaries[0])
		}
	}
	add(c.fallback)
	return seq
}
