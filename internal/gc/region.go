// Package gc implements the runtime's mark-and-sweep collector.
//
// A region owns a doubly-linked list of pages. Reachability is conservative:
// starting from root-counted pages and registered stack pointers, every
// 8-byte-aligned word of a marked page's payload is treated as a candidate
// reference. Candidate words are resolved through the region's page index,
// so arbitrary bit patterns are safe: a word is never dereferenced unless
// it names a payload the region owns.
package gc

import (
	"os"
	"sync"
	"time"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/constants"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
	"github.com/ehrlich-b/go-eyot/internal/logging"
)

// Finalizer runs once for a page at sweep, before its payload is freed.
// It is called under the region lock and must not re-enter the region.
type Finalizer func(ptr uintptr)

// Stats is a snapshot of a region's allocation accounting
type Stats struct {
	BytesAllocated int
	PagesAllocated int
}

// page is one allocation unit. The header lives on the Go heap; only the
// payload is raw memory.
type page struct {
	prev, next *page
	fin        Finalizer
	base       uintptr
	size       int
	rootCount  int
	marked     bool
}

// Region is an independent collector arena with its own page list and lock
type Region struct {
	mu    sync.Mutex
	head  *page
	index map[uintptr]*page
	stats Stats

	// stack-pointer roots; nil entries are free slots
	stackRoots []*uintptr

	observer interfaces.Observer
	audit    bool
}

// New creates an empty region
func New() *Region {
	return &Region{
		index:      make(map[uintptr]*page),
		stackRoots: make([]*uintptr, constants.InitialStackRootCapacity),
		audit:      os.Getenv(constants.EnvDebug) == "y",
	}
}

// SetObserver installs a metrics observer. Pass nil to disable.
func (r *Region) SetObserver(o interfaces.Observer) {
	r.mu.Lock()
	r.observer = o
	r.mu.Unlock()
}

// Stats returns the current allocation counters
func (r *Region) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Alloc returns a zero-filled payload of the given size, tracked by the
// region. The page is prepended to the list.
func (r *Region) Alloc(size int, fin Finalizer) uintptr {
	base := alloc.Alloc(size)

	p := &page{
		fin:  fin,
		base: base,
		size: size,
	}

	r.mu.Lock()
	r.check("pre-alloc")

	if r.head != nil {
		r.head.prev = p
		p.next = r.head
	}
	r.head = p
	r.index[base] = p

	r.stats.PagesAllocated++
	r.stats.BytesAllocated += size
	if r.observer != nil {
		r.observer.ObserveAlloc(uint64(size))
	}

	r.check("alloc")
	r.mu.Unlock()

	return base
}

// Realloc grows or shrinks a payload in place in the list, preserving old
// contents up to the smaller size and zero-filling any growth. A zero ptr
// is treated as a grow from nothing.
func (r *Region) Realloc(ptr uintptr, newSize int) uintptr {
	if ptr == 0 {
		return r.Alloc(newSize, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.index[ptr]
	if !ok {
		fault.Panicf("gc.realloc", fault.CodeNotFound, "realloc of unowned pointer %#x", ptr)
	}
	if p.size == newSize {
		return ptr
	}

	r.stats.BytesAllocated += newSize - p.size

	delete(r.index, p.base)
	p.base = alloc.Realloc(p.base, newSize)
	p.size = newSize
	r.index[p.base] = p

	r.check("realloc")
	return p.base
}

// RememberRootObject increments the root count of the page owning ptr.
// Pages with a nonzero root count are unconditionally reachable.
func (r *Region) RememberRootObject(ptr uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.index[ptr]
	if !ok {
		fault.Panicf("gc.remember", fault.CodeNotFound, "remember of unowned pointer %#x", ptr)
	}
	p.rootCount++
}

// ForgetRootObject decrements the root count of the page owning ptr
func (r *Region) ForgetRootObject(ptr uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.index[ptr]
	if !ok {
		fault.Panicf("gc.forget", fault.CodeNotFound, "forget of unowned pointer %#x", ptr)
	}
	p.rootCount--
}

// RememberRootPointer registers a pointer-to-pointer. At collect time the
// pointee is read and, if it names a page payload, that page is a root.
func (r *Region) RememberRootPointer(pp *uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, slot := range r.stackRoots {
		if slot == nil {
			r.stackRoots[i] = pp
			return
		}
	}
	r.stackRoots = append(r.stackRoots, pp)
}

// ForgetRootPointer removes a previously registered pointer-to-pointer.
// Entries are matched by identity; an unknown pointer is fatal.
func (r *Region) ForgetRootPointer(pp *uintptr) {
	r.mu.Lock()

	for i, slot := range r.stackRoots {
		if slot == pp {
			r.stackRoots[i] = nil
			r.mu.Unlock()
			return
		}
	}

	r.mu.Unlock()
	fault.Panic("gc.forget", fault.CodeNotFound, "the pointer is not found in the stack list")
}

// owns resolves an arbitrary word to the page whose payload it names, or
// nil. Safe on any bit pattern.
func (r *Region) owns(word uintptr) *page {
	return r.index[word]
}

// markPage recursively marks a page and every page reachable from the
// 8-byte-aligned words of its payload
func (r *Region) markPage(p *page) {
	if p.marked {
		return
	}
	p.marked = true

	if p.base%constants.PointerAlignment != 0 {
		fault.Panicf("gc.mark", fault.CodeInvariant, "badly aligned page payload %#x", p.base)
	}

	for offset := 0; offset <= p.size-constants.PointerAlignment; offset += constants.PointerAlignment {
		word := alloc.Word(p.base + uintptr(offset))
		if ref := r.owns(word); ref != nil {
			r.markPage(ref)
		}
	}
}

// freePage finalises, unlinks and releases one page. Called locked.
func (r *Region) freePage(p *page) {
	if p.fin != nil {
		p.fin(p.base)
	}

	r.stats.PagesAllocated--
	r.stats.BytesAllocated -= p.size
	if r.observer != nil {
		r.observer.ObserveFree(uint64(p.size))
	}

	if p.prev != nil {
		p.prev.next = p.next
	} else {
		r.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}

	delete(r.index, p.base)
	r.check("free")

	alloc.Free(p.base)
}

// Collect runs a full mark and sweep. Every unreachable page is finalised
// then freed exactly once.
func (r *Region) Collect() {
	start := time.Now()
	r.mu.Lock()

	// unmark all pages
	for p := r.head; p != nil; p = p.next {
		p.marked = false
	}

	// mark all roots
	for p := r.head; p != nil; p = p.next {
		if p.rootCount > 0 {
			r.markPage(p)
		}
	}

	// mark all stack roots
	for _, pp := range r.stackRoots {
		if pp == nil {
			continue
		}
		if ref := r.owns(*pp); ref != nil {
			r.markPage(ref)
		}
	}

	// sweep unmarked pages
	var freed uint64
	p := r.head
	for p != nil {
		this := p
		p = p.next
		if !this.marked {
			r.freePage(this)
			freed++
		}
	}

	obs := r.observer
	r.mu.Unlock()

	if obs != nil {
		obs.ObserveCollect(freed, uint64(time.Since(start).Nanoseconds()))
	}
}

// Free runs a final collection and releases the region. Pages still live
// at that point leak intentionally; the caller is expected to have
// forgotten all roots first.
func (r *Region) Free() {
	r.Collect()

	r.mu.Lock()
	if r.stats.PagesAllocated > 0 {
		logging.Debug("region freed with live pages",
			"pages", r.stats.PagesAllocated, "bytes", r.stats.BytesAllocated)
	}
	r.stackRoots = nil
	r.mu.Unlock()
}

// Bytes returns the payload view of a page by its address
func (r *Region) Bytes(ptr uintptr) []byte {
	r.mu.Lock()
	p, ok := r.index[ptr]
	r.mu.Unlock()
	if !ok {
		fault.Panicf("gc.bytes", fault.CodeNotFound, "unowned pointer %#x", ptr)
	}
	return alloc.Bytes(p.base, p.size)
}

// Owns reports whether ptr names a payload this region tracks
func (r *Region) Owns(ptr uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owns(ptr) != nil
}

// check audits list consistency when EyotDebug=y. Called locked.
func (r *Region) check(label string) {
	if !r.audit {
		return
	}

	var prev *page
	for p := r.head; p != nil; p = p.next {
		if p.prev != prev {
			r.logPages(label)
			fault.Panic("gc", fault.CodeInvariant, "inconsistent gc")
		}
		prev = p
	}
}

// logPages dumps the list for debugging a failed audit. Called locked.
func (r *Region) logPages(label string) {
	logging.Error("gc audit failed", "label", label)
	for p := r.head; p != nil; p = p.next {
		var prevBase uintptr
		if p.prev != nil {
			prevBase = p.prev.base
		}
		logging.Error(" - page", "base", p.base, "size", p.size,
			"follows", prevBase, "marked", p.marked)
	}
}
