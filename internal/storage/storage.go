package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"

	"github.com/hailam/bitchess/internal/board"
	"github.com/hailam/bitchess/internal/engine"
)

// ErrNotFound is returned when nothing is stored for a position.
var ErrNotFound = errors.New("storage: not found")

// Key prefixes
const (
	prefixAnalysis = 'a'
	prefixPerft    = 'p'
)

const defaultCacheItems = 1 << 16

// Analysis is the stored outcome of a completed search.
type Analysis struct {
	FEN      string        `json:"fen"`
	Move     string        `json:"move"`
	Score    int           `json:"score"`
	Depth    int           `json:"depth"`
	PV       []string      `json:"pv"`
	Nodes    uint64        `json:"nodes"`
	Elapsed  time.Duration `json:"elapsed"`
	Searched time.Time     `json:"searched"`
}

// PerftResult is a stored perft count.
type PerftResult struct {
	FEN     string        `json:"fen"`
	Depth   int           `json:"depth"`
	Nodes   uint64        `json:"nodes"`
	Elapsed time.Duration `json:"elapsed"`
}

// Options configures Open.
type Options struct {
	Dir        string // database directory, ignored when InMemory
	InMemory   bool
	CacheItems int64 // analysis entries kept in memory, 0 = default
	Logger     zerolog.Logger
}

// Store keeps analysis and perft results in badger, with a ristretto cache
// in front of analysis lookups. It implements engine.Store.
type Store struct {
	db    *badger.DB
	cache *ristretto.Cache[uint64, Analysis]
	log   zerolog.Logger
}

var _ engine.Store = (*Store)(nil)

// Open opens or creates the database described by opts.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{opts.Logger})
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", opts.Dir, err)
	}

	items := opts.CacheItems
	if items <= 0 {
		items = defaultCacheItems
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, Analysis]{
		NumCounters:        items * 10,
		MaxCost:            items,
		BufferItems:        64,
		IgnoreInternalCost: true,
		Metrics:            true,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cache: %w", err)
	}

	opts.Logger.Debug().Str("dir", opts.Dir).Bool("in_memory", opts.InMemory).Int64("cache_items", items).Msg("storage opened")
	return &Store{db: db, cache: cache, log: opts.Logger}, nil
}

// OpenDefault opens the database in the platform data directory.
func OpenDefault(log zerolog.Logger) (*Store, error) {
	dir, err := GetDatabaseDir()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return Open(Options{Dir: dir, Logger: log})
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if m := s.cache.Metrics; m != nil {
		s.log.Debug().Uint64("hits", m.Hits()).Uint64("misses", m.Misses()).Float64("ratio", m.Ratio()).Msg("analysis cache")
	}
	s.cache.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	s.log.Debug().Msg("storage closed")
	return nil
}

// positionKey identifies a position by its FEN without the move counters,
// so transpositions reached at different move numbers share an entry.
func positionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func analysisKey(hash uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixAnalysis
	binary.BigEndian.PutUint64(key[1:], hash)
	return key
}

func perftKey(hash uint64, depth int) []byte {
	key := make([]byte, 10)
	key[0] = prefixPerft
	binary.BigEndian.PutUint64(key[1:9], hash)
	key[9] = byte(depth)
	return key
}

// SaveAnalysis stores a, unless a deeper analysis of the same position is
// already stored.
func (s *Store) SaveAnalysis(a Analysis) error {
	a.FEN = positionKey(a.FEN)
	hash := xxhash.Sum64String(a.FEN)
	key := analysisKey(hash)

	err := s.db.Update(func(txn *badger.Txn) error {
		var old Analysis
		err := getJSON(txn, key, &old)
		switch {
		case err == nil && old.FEN == a.FEN && old.Depth > a.Depth:
			a = old
			return nil
		case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("storage: save analysis: %w", err)
	}
	s.cache.Set(hash, a, 1)
	s.cache.Wait()
	return nil
}

// LoadAnalysis returns the analysis stored for fen.
func (s *Store) LoadAnalysis(fen string) (Analysis, error) {
	pk := positionKey(fen)
	hash := xxhash.Sum64String(pk)
	if a, ok := s.cache.Get(hash); ok && a.FEN == pk {
		return a, nil
	}

	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, analysisKey(hash), &a)
	})
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && a.FEN != pk) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, fmt.Errorf("storage: load analysis: %w", err)
	}
	s.cache.Set(hash, a, 1)
	return a, nil
}

// CountAnalyses returns the number of stored analyses.
func (s *Store) CountAnalyses() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixAnalysis}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// SavePerft stores a perft count.
func (s *Store) SavePerft(r PerftResult) error {
	r.FEN = positionKey(r.FEN)
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	key := perftKey(xxhash.Sum64String(r.FEN), r.Depth)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("storage: save perft: %w", err)
	}
	return nil
}

// LoadPerft returns the perft count stored for fen at depth.
func (s *Store) LoadPerft(fen string, depth int) (PerftResult, error) {
	pk := positionKey(fen)
	var r PerftResult
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, perftKey(xxhash.Sum64String(pk), depth), &r)
	})
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && r.FEN != pk) {
		return PerftResult{}, ErrNotFound
	}
	if err != nil {
		return PerftResult{}, fmt.Errorf("storage: load perft: %w", err)
	}
	return r, nil
}

// BestMove returns the stored best move for pos if it is legal there.
func (s *Store) BestMove(pos *board.Position) (board.Move, bool) {
	a, err := s.LoadAnalysis(pos.FEN())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Msg("loading analysis")
		}
		return board.NoMove, false
	}
	m, err := board.ParseMove(a.Move, pos)
	if err != nil {
		return board.NoMove, false
	}
	return m, true
}

// SaveSearch stores a finished search of pos.
func (s *Store) SaveSearch(pos *board.Position, res engine.Result) error {
	if res.Move == board.NoMove {
		return nil
	}
	pv := make([]string, len(res.PV))
	for i, m := range res.PV {
		pv[i] = m.String()
	}
	return s.SaveAnalysis(Analysis{
		FEN:      pos.FEN(),
		Move:     res.Move.String(),
		Score:    res.Score,
		Depth:    res.Depth,
		PV:       pv,
		Nodes:    res.Stats.Nodes,
		Elapsed:  res.Stats.Elapsed,
		Searched: time.Now(),
	})
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
