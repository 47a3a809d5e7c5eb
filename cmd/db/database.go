package db

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"skabillium/memo/deque"
	"skabillium/memo/slab"
)

var logger = loggo.GetLogger("memo.db")

const (
	ErrWrongType     = errors.ConstError("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrBadPattern    = errors.ConstError("ERR invalid pattern")
	ErrInvalidExpire = errors.ConstError("ERR invalid expire time in 'expire' command")
)

// MaxExpireSeconds is the longest time to live a key can be given.
const MaxExpireSeconds = math.MaxInt64 / 1_000_000_000

// DefaultNodeCapacity is how many list and queue items the shared node
// slab holds before it first grows.
const DefaultNodeCapacity = 1024

// Database is the keyspace. Every list and queue in it keeps its nodes
// in one shared slab, so all access goes through a single mutex.
type Database struct {
	mu      sync.Mutex
	clock   clock.Clock
	stores  map[string]*DataStore
	expires map[string]time.Time
	nodes   *slab.Slab[deque.Node[string]]
}

// Stats describes the keyspace and the node slab.
type Stats struct {
	Keys         int
	Expires      int
	Nodes        int
	FreeNodes    int
	NodeCapacity int
}

func NewDatabase(clk clock.Clock) *Database {
	return NewDatabaseWithCapacity(clk, DefaultNodeCapacity)
}

// NewDatabaseWithCapacity returns a Database whose node slab starts with
// room for nodeCapacity list and queue items.
func NewDatabaseWithCapacity(clk clock.Clock, nodeCapacity int) *Database {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Database{
		clock:   clk,
		stores:  make(map[string]*DataStore),
		expires: make(map[string]time.Time),
		nodes:   slab.New[deque.Node[string]](nodeCapacity),
	}
}

func (d *Database) FlushAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	logger.Debugf("flushing %d keys, %d nodes", len(d.stores), d.nodes.Len())
	d.stores = make(map[string]*DataStore)
	d.expires = make(map[string]time.Time)
	d.nodes.Reset()
}

// Keys returns the sorted keys matching a glob pattern.
func (d *Database) Keys(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, ErrBadPattern
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.stores))
	for k := range d.stores {
		if d.expired(k) {
			continue
		}
		if g.Match(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Database) DbSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stores)
}

func (d *Database) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Keys:         len(d.stores),
		Expires:      len(d.expires),
		Nodes:        d.nodes.Len(),
		FreeNodes:    d.nodes.Free(),
		NodeCapacity: d.nodes.Cap(),
	}
}

// Type returns the kind of value under key, or "none".
func (d *Database) Type(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	store, found := d.lookup(key)
	if !found {
		return "none"
	}
	return store.Kind.String()
}

func (d *Database) Get(key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	store, found := d.lookup(key)
	if !found {
		return "", false, nil
	}
	if store.Kind != KindValue {
		return "", true, ErrWrongType
	}
	return store.Value, true, nil
}

// Set stores value under key, replacing whatever was there. A positive
// ttl makes the key expire; otherwise any previous expiry is dropped.
func (d *Database) Set(key string, value string, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.remove(key)
	d.stores[key] = newValueStore(value)
	if ttl > 0 {
		d.expires[key] = d.clock.Now().Add(ttl)
	}
}

// Del removes keys and returns how many existed.
func (d *Database) Del(keys ...string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	deleted := 0
	for _, k := range keys {
		if _, found := d.lookup(k); found {
			d.remove(k)
			deleted++
		}
	}
	return deleted
}

// Expire sets a time to live on key. It reports whether the key exists.
// A non-positive number of seconds deletes the key.
func (d *Database) Expire(key string, seconds int) (bool, error) {
	if int64(seconds) > MaxExpireSeconds {
		return false, ErrInvalidExpire
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, found := d.lookup(key); !found {
		return false, nil
	}
	if seconds <= 0 {
		d.remove(key)
		return true, nil
	}
	d.expires[key] = d.clock.Now().Add(time.Duration(seconds) * time.Second)
	return true, nil
}

// TTL returns the seconds left before key expires, -1 if it never does
// and -2 if it does not exist.
func (d *Database) TTL(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, found := d.lookup(key); !found {
		return -2
	}
	at, found := d.expires[key]
	if !found {
		return -1
	}
	left := at.Sub(d.clock.Now())
	return int((left.Milliseconds() + 500) / 1000)
}

// Cleanup evicts expired keys, at most limit of them when limit is
// positive, and returns how many went.
func (d *Database) Cleanup(limit int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	evicted := 0
	now := d.clock.Now()
	for k, at := range d.expires {
		if limit > 0 && evicted >= limit {
			break
		}
		if !now.Before(at) {
			d.remove(k)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debugf("evicted %d expired keys", evicted)
	}
	return evicted
}

func (d *Database) QAdd(key string, priority int, values ...string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, err := d.queue(key, true)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		q.Enqueue(d.nodes, v, priority)
	}
	return q.Length, nil
}

func (d *Database) QPop(key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, err := d.queue(key, false)
	if err != nil || q == nil {
		return "", false, err
	}
	v, ok := q.Dequeue(d.nodes)
	if q.Length == 0 {
		d.remove(key)
	}
	return v, ok, nil
}

func (d *Database) QPeek(key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, err := d.queue(key, false)
	if err != nil || q == nil {
		return "", false, err
	}
	v, ok := q.Peek(d.nodes)
	return v, ok, nil
}

func (d *Database) QLen(key string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, err := d.queue(key, false)
	if err != nil || q == nil {
		return 0, err
	}
	return q.Length, nil
}

// LPush prepends values to the list under key, creating it if needed,
// and returns the new length.
func (d *Database) LPush(key string, values ...string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, true)
	if err != nil {
		return 0, err
	}
	return l.Prepend(d.nodes, values...), nil
}

// RPush appends values to the list under key, creating it if needed,
// and returns the new length.
func (d *Database) RPush(key string, values ...string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, true)
	if err != nil {
		return 0, err
	}
	return l.Append(d.nodes, values...), nil
}

func (d *Database) LPop(key string) (string, bool, error) {
	return d.pop(key, true)
}

func (d *Database) RPop(key string) (string, bool, error) {
	return d.pop(key, false)
}

func (d *Database) pop(key string, head bool) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, false)
	if err != nil || l == nil {
		return "", false, err
	}

	var (
		v  string
		ok bool
	)
	if head {
		v, ok = l.PopHead(d.nodes)
	} else {
		v, ok = l.PopTail(d.nodes)
	}
	if l.Len() == 0 {
		d.remove(key)
	}
	return v, ok, nil
}

func (d *Database) LLen(key string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, false)
	if err != nil || l == nil {
		return 0, err
	}
	return l.Len(), nil
}

func (d *Database) LRange(key string, start, stop int) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, false)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return []string{}, nil
	}
	return l.Range(d.nodes, start, stop), nil
}

func (d *Database) LIndex(key string, index int) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, false)
	if err != nil || l == nil {
		return "", false, err
	}
	v, ok := l.Index(d.nodes, index)
	return v, ok, nil
}

// LInsert puts value before or after pivot. It returns the new length,
// -1 when pivot is missing and 0 when the key is.
func (d *Database) LInsert(key string, before bool, pivot, value string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, false)
	if err != nil || l == nil {
		return 0, err
	}
	return l.Insert(d.nodes, before, pivot, value), nil
}

func (d *Database) LRem(key string, count int, value string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, err := d.list(key, false)
	if err != nil || l == nil {
		return 0, err
	}
	removed := l.Remove(d.nodes, count, value)
	if l.Len() == 0 {
		d.remove(key)
	}
	return removed, nil
}

func (d *Database) SAdd(key string, members ...string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.set(key, true)
	if err != nil {
		return 0, err
	}
	return s.Add(members...), nil
}

func (d *Database) SRem(key string, members ...string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.set(key, false)
	if err != nil || s == nil {
		return 0, err
	}
	removed := s.Delete(members...)
	if s.Size() == 0 {
		d.remove(key)
	}
	return removed, nil
}

func (d *Database) SMembers(key string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.set(key, false)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []string{}, nil
	}
	return s.Items(), nil
}

func (d *Database) SIsMember(key, member string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.set(key, false)
	if err != nil || s == nil {
		return false, err
	}
	return s.Has(member), nil
}

func (d *Database) SCard(key string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.set(key, false)
	if err != nil || s == nil {
		return 0, err
	}
	return s.Size(), nil
}

// SInter returns the sorted members common to every set in keys. A
// missing key is an empty set.
func (d *Database) SInter(keys ...string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var acc *Set
	for _, k := range keys {
		s, err := d.set(k, false)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return []string{}, nil
		}
		if acc == nil {
			acc = NewSet()
			acc.Add(s.Items()...)
			continue
		}
		acc = setOf(acc.Intersect(s))
	}
	if acc == nil {
		return []string{}, nil
	}
	return acc.Items(), nil
}

func setOf(items []string) *Set {
	s := NewSet()
	s.Add(items...)
	return s
}

// lookup returns the store under key, evicting it first if it has
// expired. The caller holds d.mu.
func (d *Database) lookup(key string) (*DataStore, bool) {
	store, found := d.stores[key]
	if !found {
		return nil, false
	}
	if d.expired(key) {
		logger.Tracef("key %q expired on access", key)
		d.remove(key)
		return nil, false
	}
	return store, true
}

func (d *Database) expired(key string) bool {
	at, found := d.expires[key]
	return found && !d.clock.Now().Before(at)
}

// remove deletes key, handing its list or queue nodes back to the slab.
func (d *Database) remove(key string) {
	store, found := d.stores[key]
	if !found {
		return
	}
	switch store.Kind {
	case KindList:
		store.List.Clear(d.nodes)
	case KindQueue:
		store.Queue.Clear(d.nodes)
	}
	delete(d.stores, key)
	delete(d.expires, key)
}

func (d *Database) list(key string, create bool) (*List, error) {
	store, found := d.lookup(key)
	if !found {
		if !create {
			return nil, nil
		}
		store = newListStore()
		d.stores[key] = store
	}
	l, ok := store.asList()
	if !ok {
		return nil, ErrWrongType
	}
	return l, nil
}

func (d *Database) queue(key string, create bool) (*PriorityQueue, error) {
	store, found := d.lookup(key)
	if !found {
		if !create {
			return nil, nil
		}
		store = newQueueStore()
		d.stores[key] = store
	}
	q, ok := store.asQueue()
	if !ok {
		return nil, ErrWrongType
	}
	return q, nil
}

func (d *Database) set(key string, create bool) (*Set, error) {
	store, found := d.lookup(key)
	if !found {
		if !create {
			return nil, nil
		}
		store = newSetStore()
		d.stores[key] = store
	}
	s, ok := store.asSet()
	if !ok {
		return nil, ErrWrongType
	}
	return s, nil
}
