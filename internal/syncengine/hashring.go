package syncengine

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

const ringReplicas = 100

// boundedHashRing assigns accounts to workers by consistent hashing, capped
// so no worker is handed more than loadFactor times the even share. This
// keeps a single worker joining or leaving the ring from reshuffling most
// account assignments, while still preventing one worker from absorbing a
// disproportionate share when the ring is lopsided.
type boundedHashRing struct {
	loadFactor float64
}

func newBoundedHashRing(loadFactor float64) *boundedHashRing {
	if loadFactor <= 1.0 {
		loadFactor = 1.1
	}
	return &boundedHashRing{loadFactor: loadFactor}
}

type ringPoint struct {
	hash     uint64
	workerID string
}

// Assign maps each accountID to one of workers, honoring the bounded-load
// cap: no worker receives more than
// floor(len(accountIDs) * loadFactor / len(workers)) + 1 accounts, with
// loadFactor truncated to two decimals.
func (h *boundedHashRing) Assign(workers []string, accountIDs []string) map[string]string {
	assignment := make(map[string]string, len(accountIDs))
	if len(workers) == 0 {
		return assignment
	}

	capacity := (len(accountIDs) * int(h.loadFactor*100) / 100) / len(workers)
	if capacity < 1 {
		capacity = 1
	}
	// Allow a small excess above the floor so the cap isn't overly strict
	// for small N.
	capacity++

	points := make([]ringPoint, 0, len(workers)*ringReplicas)
	for _, w := range workers {
		for i := 0; i < ringReplicas; i++ {
			points = append(points, ringPoint{hash: hashKey(w, i), workerID: w})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].hash < points[j].hash })

	load := make(map[string]int, len(workers))

	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)

	for _, accountID := range ids {
		h0 := hashKey(accountID, 0)
		idx := sort.Search(len(points), func(i int) bool { return points[i].hash >= h0 })

		assigned := ""
		for attempt := 0; attempt < len(points); attempt++ {
			p := points[(idx+attempt)%len(points)]
			if load[p.workerID] < capacity {
				assigned = p.workerID
				break
			}
		}
		if assigned == "" {
			assigned = points[idx%len(points)].workerID
		}

		load[assigned]++
		assignment[accountID] = assigned
	}

	return assignment
}

func hashKey(key string, replica int) uint64 {
	h := sha256.New()
	h.Write([]byte(key))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(replica))
	h.Write(buf[:])
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
