package chathistory

import (
	"sort"
	"sync"

	"github.com/quailyquaily/blazerai/llm"
)

type StoreOptions struct {
	// MaxTurns keeps only the newest turns per chat. Zero means unbounded.
	MaxTurns int
}

// Store holds per-chat turn history in memory. Histories are created lazily
// and never deleted for the lifetime of the process.
type Store struct {
	mu       sync.Mutex
	items    map[int64][]llm.Turn
	maxTurns int
}

func NewStore(opts StoreOptions) *Store {
	maxTurns := opts.MaxTurns
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Store{
		items:    make(map[int64][]llm.Turn),
		maxTurns: maxTurns,
	}
}

// GetOrCreate returns a copy of the chat history, registering an empty one
// if the chat is new.
func (s *Store) GetOrCreate(chatID int64) []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[chatID]
	if !ok {
		s.items[chatID] = []llm.Turn{}
		return []llm.Turn{}
	}
	return llm.CloneTurns(cur)
}

func (s *Store) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[chatID] = []llm.Turn{}
}

func (s *Store) Append(chatID int64, turns ...llm.Turn) {
	if len(turns) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := append(s.items[chatID], turns...)
	if s.maxTurns > 0 && len(cur) > s.maxTurns {
		cur = llm.CloneTurns(cur[len(cur)-s.maxTurns:])
	}
	s.items[chatID] = cur
}

func (s *Store) Len(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[chatID])
}

// Conversations lists known chat ids in ascending order.
func (s *Store) Conversations() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) MaxTurns() int {
	return s.maxTurns
}
