package db

// StoreKind tells which of the DataStore fields is in use.
type StoreKind byte

const (
	KindValue StoreKind = iota
	KindQueue
	KindList
	KindSet
)

// String returns the name TYPE reports for the kind.
func (k StoreKind) String() string {
	switch k {
	case KindValue:
		return "string"
	case KindQueue:
		return "queue"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	}
	return "unknown"
}

// DataStore is the value held under a key.
type DataStore struct {
	Kind  StoreKind
	Value string
	Queue *PriorityQueue
	List  *List
	Set   *Set
}

func newValueStore(value string) *DataStore {
	return &DataStore{Kind: KindValue, Value: value}
}

func newQueueStore() *DataStore {
	return &DataStore{Kind: KindQueue, Queue: NewPriorityQueue()}
}

func newListStore() *DataStore {
	return &DataStore{Kind: KindList, List: NewList()}
}

func newSetStore() *DataStore {
	return &DataStore{Kind: KindSet, Set: NewSet()}
}

func (s *DataStore) asQueue() (*PriorityQueue, bool) {
	return s.Queue, s.Kind == KindQueue
}

func (s *DataStore) asList() (*List, bool) {
	return s.List, s.Kind == KindList
}

func (s *DataStore) asSet() (*Set, bool) {
	return s.Set, s.Kind == KindSet
}
