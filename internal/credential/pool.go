// Package credential tracks a finite set of API tokens and their remaining
// use counts.
package credential

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrNoCredentialAvailable is returned when every credential has been used up.
var ErrNoCredentialAvailable = eris.New("no credential with remaining uses available")

// Credential is an opaque token and the number of uses it has left.
type Credential struct {
	Token     string
	Remaining int
}

// Pool hands out credentials with remaining uses and records consumption.
// A credential whose count reaches zero is removed, never kept at zero.
type Pool struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

// NewPool builds a pool from a token → remaining-use mapping. Tokens with a
// count of zero or less are dropped. Selection order is lexical by token so
// runs are reproducible.
func NewPool(tokens map[string]int) *Pool {
	p := &Pool{counts: make(map[string]int, len(tokens))}
	for tok, n := range tokens {
		if tok == "" || n <= 0 {
			continue
		}
		p.counts[tok] = n
		p.order = append(p.order, tok)
	}
	sort.Strings(p.order)
	return p
}

// Acquire returns the first credential with uses left. It never blocks.
func (p *Pool) Acquire() (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, tok := range p.order {
		if n := p.counts[tok]; n > 0 {
			return Credential{Token: tok, Remaining: n}, nil
		}
	}
	return Credential{}, ErrNoCredentialAvailable
}

// Consume records one use of token. Unknown tokens are ignored.
func (p *Pool) Consume(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.counts[token]
	if !ok {
		return
	}
	if n > 1 {
		p.counts[token] = n - 1
		return
	}
	delete(p.counts, token)
	for i, tok := range p.order {
		if tok == token {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Remaining reports the uses left for token, or 0 if it is not in the pool.
func (p *Pool) Remaining(token string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[token]
}

// Len returns the number of credentials that still have uses left.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.counts)
}

// Total returns the sum of remaining uses across all credentials.
func (p *Pool) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.counts {
		total += n
	}
	return total
}
