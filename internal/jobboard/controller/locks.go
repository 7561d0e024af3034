package controller

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 256

// keyLocks serializes mutations per entity key within the process. Keys hash onto a
// fixed set of mutexes, so unrelated keys may share a stripe.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{}
}

// lock acquires the stripe for key and returns its release function.
func (l *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func jobKey(id string) string { return "job:" + id }

func applicationKey(id string) string { return "application:" + id }

// resumesKey guards the resume set and primary flag of one candidate.
func resumesKey(candidateID string) string { return "resumes:" + candidateID }
