package services

import (
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// IdentityCache holds the identity of the signed-in user as last confirmed
// by the backend.
type IdentityCache struct {
	mu       sync.RWMutex
	identity *models.Identity
}

func NewIdentityCache() *IdentityCache {
	return &IdentityCache{}
}

func (c *IdentityCache) Get() (models.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return models.Identity{}, false
	}
	return *c.identity, true
}

func (c *IdentityCache) Set(id models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = &id
}

func (c *IdentityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = nil
}
