package crawler

// Entry is one frontier item.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is the BFS queue plus the visited set. It is owned by a single
// worker and is not safe for concurrent use.
type Frontier struct {
	queue   []Entry
	pending map[string]bool
	visited map[string]bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		pending: make(map[string]bool),
		visited: make(map[string]bool),
	}
}

// Push normalizes rawURL and enqueues it at depth unless it is invalid,
// already visited or already queued.
func (f *Frontier) Push(rawURL string, depth int) bool {
	u := NormalizeURL(rawURL)
	if u == "" || f.visited[u] || f.pending[u] {
		return false
	}
	f.pending[u] = true
	f.queue = append(f.queue, Entry{URL: u, Depth: depth})
	return true
}

// Pop removes and returns the oldest entry.
func (f *Frontier) Pop() (Entry, bool) {
	if len(f.queue) == 0 {
		return Entry{}, false
	}
	e := f.queue[0]
	f.queue[0] = Entry{}
	f.queue = f.queue[1:]
	delete(f.pending, e.URL)
	return e, true
}

// Visit marks u as processed.
func (f *Frontier) Visit(u string) {
	f.visited[u] = true
}

// Visited reports whether u has been processed.
func (f *Frontier) Visited(u string) bool {
	return f.visited[u]
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the size of the visited set.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}
