package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
)

type user struct {
	name   string
	frozen bool
}

// Directory is an in-process trading.Directory.
type Directory struct {
	mu    sync.RWMutex
	users map[string]user
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]user)}
}

func (d *Directory) Add(id, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = user{name: name}
}

func (d *Directory) SetFrozen(id string, frozen bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		u.frozen = frozen
		d.users[id] = u
	}
}

func (d *Directory) Identify(_ context.Context, id string) (trading.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return trading.Identity{}, fmt.Errorf("%w: user %s", trading.ErrNotFound, id)
	}
	if u.frozen {
		return trading.Identity{}, fmt.Errorf("%w: account %s is frozen", trading.ErrUnauthorized, id)
	}
	return trading.Identity{ID: id, Name: u.name}, nil
}

// Catalog is an in-process trading.Catalog that keeps insertion order.
type Catalog struct {
	mu    sync.RWMutex
	items []trading.Item
}

func NewCatalog(items ...trading.Item) *Catalog {
	return &Catalog{items: items}
}

func (c *Catalog) Add(item trading.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *Catalog) ItemExists(_ context.Context, id string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) Items(_ context.Context) ([]trading.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]trading.Item, len(c.items))
	copy(out, c.items)
	return out, nil
}
