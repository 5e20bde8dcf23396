package frontier

import (
	"container/list"
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// exactSetCap bounds the secondary exact-match set. Once full, the
// oldest fingerprint is evicted and dedup falls back to the bloom
// filter alone for bloom-positives missing from the exact set, an
// acceptable imprecision at the upper bound.
const exactSetCap = 200_000

// dedupStore is a disk-backed bloom filter (for constant memory
// footprint across very large crawls, per the teacher's visited.go)
// fronted by a bounded exact set that confirms bloom-positives so a
// false positive never causes a silent loss of a real URL.
type dedupStore struct {
	mu   sync.Mutex
	bloomFilter *bloom.BloomFilter
	file *os.File
	mmap mmap.MMap
	path string

	exact     map[string]*list.Element
	exactLRU  *list.List // front = most recently seen
	count     uint64
	syncEvery uint64
	lastErr   error
}

// newDedupStore creates a dedup store sized for ~10^6 fingerprints at
// ~1% false-positive rate.
func newDedupStore() (*dedupStore, error) {
	filter := bloom.NewWithEstimates(1_000_000, 0.01)

	tmpFile, err := os.CreateTemp(os.TempDir(), "weave-frontier-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmpFile.Name()

	size := filter.Cap()
	if err := tmpFile.Truncate(int64(size)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &dedupStore{
		bloomFilter: filter,
		file:        tmpFile,
		mmap:        mapped,
		path:        path,
		exact:       make(map[string]*list.Element),
		exactLRU:    list.New(),
		syncEvery:   1000,
	}, nil
}

// seenBefore reports whether fingerprint has already been recorded.
// On a bloom-positive it confirms against the exact set, matching
// markSeen; once the exact set is full and evicting, the bloom
// filter's answer is trusted alone (documented imprecision at scale).
func (d *dedupStore) seenBefore(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.bloomFilter.TestString(fingerprint) {
		return false
	}
	_, ok := d.exact[fingerprint]
	return ok || d.exactLRU.Len() >= exactSetCap
}

// markSeen records fingerprint as seen. Returns true if it was new.
func (d *dedupStore) markSeen(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bloomFilter.TestString(fingerprint) {
		if _, ok := d.exact[fingerprint]; ok {
			d.touchLocked(fingerprint)
			return false
		}
		if d.exactLRU.Len() >= exactSetCap {
			// The exact set is full and evicting: trust the bloom
			// filter alone.
			return false
		}
		// Bloom-positive, exact-set-negative while the exact set still
		// holds every fingerprint: a false positive, so admit rather
		// than lose a real URL.
	}

	d.bloomFilter.AddString(fingerprint)
	d.insertExactLocked(fingerprint)
	d.count++
	if d.count >= d.syncEvery {
		if err := d.syncLocked(); err != nil {
			d.lastErr = err
		}
	}
	return true
}

func (d *dedupStore) touchLocked(fingerprint string) {
	if el, ok := d.exact[fingerprint]; ok {
		d.exactLRU.MoveToFront(el)
	}
}

func (d *dedupStore) insertExactLocked(fingerprint string) {
	el := d.exactLRU.PushFront(fingerprint)
	d.exact[fingerprint] = el
	if d.exactLRU.Len() > exactSetCap {
		oldest := d.exactLRU.Back()
		if oldest != nil {
			d.exactLRU.Remove(oldest)
			delete(d.exact, oldest.Value.(string))
		}
	}
}

func (d *dedupStore) syncLocked() error {
	data, err := d.bloomFilter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) <= len(d.mmap) {
		copy(d.mmap, data)
	}
	if err := d.mmap.Flush(); err != nil {
		return fmt.Errorf("flush mmap: %w", err)
	}
	d.count = 0
	return nil
}

// close syncs any pending data and releases the backing file.
func (d *dedupStore) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.lastErr != nil {
		errs = append(errs, d.lastErr)
	}
	if d.mmap != nil {
		if d.count > 0 {
			if err := d.syncLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := d.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		d.mmap = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		d.file = nil
	}
	if d.path != "" {
		if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		d.path = ""
	}
	if len(errs) > 0 {
		return fmt.Errorf("close dedup store: %w", errors.Join(errs...))
	}
	return nil
}
