package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
)

const allItemsKey = "\x00all"

type ItemSource interface {
	Get(ctx context.Context, id string) (*trading.Item, error)
	List(ctx context.Context) ([]trading.Item, error)
}

// itemSearchSource implements fuzzy.Source over item names and ids.
type itemSearchSource []trading.Item

func (s itemSearchSource) Len() int { return len(s) }

func (s itemSearchSource) String(i int) string {
	return strings.ToLower(s[i].Name + " " + s[i].ID)
}

type cachedList struct {
	items    []trading.Item
	loadedAt time.Time
}

// CatalogService fronts the item table with an LRU cache. Misses are not
// cached so that newly added items show up at once. The full list expires
// after listTTL, and is dropped early when a lookup finds an item it lacks.
type CatalogService struct {
	items   ItemSource
	cache   *lru.Cache
	listTTL time.Duration
	now     func() time.Time
}

func NewCatalogService(items ItemSource, cacheSize int, listTTL time.Duration) *CatalogService {
	cache, _ := lru.New(cacheSize)
	return &CatalogService{items: items, cache: cache, listTTL: listTTL, now: time.Now}
}

func (s *CatalogService) Get(ctx context.Context, id string) (trading.Item, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.(trading.Item), nil
	}

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return trading.Item{}, err
	}
	if list, ok := s.cachedList(); ok && !containsItem(list.items, id) {
		s.cache.Remove(allItemsKey)
	}
	s.cache.Add(id, *item)
	return *item, nil
}

func (s *CatalogService) ItemExists(ctx context.Context, id string) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		if errors.Is(err, trading.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *CatalogService) Items(ctx context.Context) ([]trading.Item, error) {
	if list, ok := s.cachedList(); ok {
		if s.listTTL <= 0 || s.now().Sub(list.loadedAt) < s.listTTL {
			return cloneItems(list.items), nil
		}
		s.cache.Remove(allItemsKey)
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	s.cache.Add(allItemsKey, cachedList{items: cloneItems(items), loadedAt: s.now()})
	for _, it := range items {
		s.cache.Add(it.ID, it)
	}
	return items, nil
}

// Resolve accepts an item id or a display name, ignoring case.
func (s *CatalogService) Resolve(ctx context.Context, input string) (trading.Item, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return trading.Item{}, fmt.Errorf("%w: empty item name", trading.ErrInvalidInput)
	}

	if item, err := s.Get(ctx, strings.ToLower(input)); err == nil {
		return item, nil
	} else if !errors.Is(err, trading.ErrNotFound) {
		return trading.Item{}, err
	}

	items, err := s.Items(ctx)
	if err != nil {
		return trading.Item{}, err
	}
	for _, it := range items {
		if strings.EqualFold(it.Name, input) {
			return it, nil
		}
	}
	return trading.Item{}, fmt.Errorf("%w: no biscuit called %q", trading.ErrNotFound, input)
}

// Search ranks catalog items against query. An empty query returns the
// first limit items in catalog order.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]trading.Item, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var out []trading.Item
	if query == "" {
		out = items
	} else {
		matches := fuzzy.FindFrom(query, itemSearchSource(items))
		out = make([]trading.Item, len(matches))
		for i, m := range matches {
			out[i] = items[m.Index]
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *CatalogService) Invalidate() {
	s.cache.Purge()
}

func (s *CatalogService) cachedList() (cachedList, bool) {
	cached, ok := s.cache.Peek(allItemsKey)
	if !ok {
		return cachedList{}, false
	}
	return cached.(cachedList), true
}

func containsItem(items []trading.Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func cloneItems(items []trading.Item) []trading.Item {
	out := make([]trading.Item, len(items))
	copy(out, items)
	return out
}
