package memory

import (
	"sync"

	"spendwise/internal/core"
	"spendwise/internal/store"
)

type Store struct {
	mu     sync.Mutex
	cats   []core.Category
	items  []core.Transaction
	lastID int64
	// highest category id ever handed out, so deleted ids stay orphaned
	lastCategoryID int64
}

// New returns a store seeded with cats, or with the default categories when cats is empty.
func New(cats []core.Category) *Store {
	if len(cats) == 0 {
		cats = core.DefaultCategories()
	}
	s := &Store{cats: dedupeCategories(cats)}
	s.lastCategoryID = s.maxCategoryID()
	return s
}

// NextID returns a fresh transaction id, never reused within the store.
func (s *Store) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID
}

// Append adds transactions to the end of the ledger in the given order.
func (s *Store) Append(txs ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if tx.ID > s.lastID {
			s.lastID = tx.ID
		}
		s.items = append(s.items, tx)
	}
}

// ReassignCategory sets the category of the transaction with the given id. A nil
// categoryID clears it. Unknown ids are ignored.
func (s *Store) ReassignCategory(id int64, categoryID *int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if categoryID == nil {
			s.items[i].CategoryID = nil
		} else {
			s.items[i].CategoryID = core.Int64Ptr(*categoryID)
		}
		return true
	}
	return false
}

// AddCategory appends a category with the next id. Ids of deleted categories are
// never handed out again.
func (s *Store) AddCategory(name, color string) (core.Category, error) {
	name, color, err := core.NormalizeCategory(name, color)
	if err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCategoryID = max(s.lastCategoryID, s.maxCategoryID()) + 1
	c := core.Category{ID: s.lastCategoryID, Name: name, Color: color}
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) UpdateCategory(id int64, name, color string) (core.Category, bool, error) {
	name, color, err := core.NormalizeCategory(name, color)
	if err != nil {
		return core.Category{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == id {
			s.cats[i].Name = name
			s.cats[i].Color = color
			return s.cats[i], true, nil
		}
	}
	return core.Category{}, false, nil
}

func (s *Store) DeleteCategory(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == id {
			s.cats = append(s.cats[:i], s.cats[i+1:]...)
			return true
		}
	}
	return false
}

// Category looks up a category by id.
func (s *Store) Category(id int64) (core.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...)
}

func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTransactions(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Snapshot() store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Snapshot{
		Transactions: copyTransactions(s.items),
		Categories:   append([]core.Category(nil), s.cats...),
	}
}

// caller holds s.mu
func (s *Store) maxCategoryID() int64 {
	var max int64
	for _, c := range s.cats {
		if c.ID > max {
			max = c.ID
		}
	}
	return max
}

func copyTransactions(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, tx := range in {
		if tx.CategoryID != nil {
			tx.CategoryID = core.Int64Ptr(*tx.CategoryID)
		}
		out[i] = tx
	}
	return out
}

// dedupeCategories drops categories with a repeated id or an empty name, keeping the
// first occurrence and the input order.
func dedupeCategories(in []core.Category) []core.Category {
	seen := map[int64]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		name, color, err := core.NormalizeCategory(c.Name, c.Color)
		if err != nil || c.ID == core.UncategorizedID {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, core.Category{ID: c.ID, Name: name, Color: color})
	}
	return out
}

var _ store.Ledger = (*Store)(nil)
