package rule

// Store exposes rule table retrieval for services and HTTP handlers.
type Store interface {
	List() []Bot
	FindByID(id string) (Bot, bool)
}

// MemoryStore implements Store with an in-memory slice loaded once at startup.
type MemoryStore struct {
	items []Bot
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied bots.
func NewMemoryStore(items []Bot) *MemoryStore {
	return &MemoryStore{items: append([]Bot(nil), items...)}
}

// List returns the configured bots in declaration order.
func (s *MemoryStore) List() []Bot {
	return append([]Bot(nil), s.items...)
}

// FindByID looks up a bot by identifier.
func (s *MemoryStore) FindByID(id string) (Bot, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Bot{}, false
}
