package queue

import (
	"github.com/Sriram-PR/sitemap-scraper/pkg/models"
)

// compactThreshold is the number of consumed slots after which the backing slice is reclaimed
const compactThreshold = 1024

// URLQueue is the crawl frontier's FIFO of pending work items.
// It is owned by a single frontier and is not safe for concurrent use.
type URLQueue struct {
	items []models.WorkItem
	head  int // Index of the next item to pop
}

// NewURLQueue creates a queue seeded with the given items, in order
func NewURLQueue(seed ...models.WorkItem) *URLQueue {
	q := &URLQueue{items: make([]models.WorkItem, 0, len(seed))}
	q.items = append(q.items, seed...)
	return q
}

// Push appends an item at the tail
func (q *URLQueue) Push(item models.WorkItem) {
	q.items = append(q.items, item)
}

// Pop removes and returns the head item, or false when the queue is empty
func (q *URLQueue) Pop() (models.WorkItem, bool) {
	if q.head >= len(q.items) {
		return models.WorkItem{}, false
	}
	item := q.items[q.head]
	q.items[q.head] = models.WorkItem{}
	q.head++

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head >= compactThreshold && q.head*2 >= len(q.items) {
		remaining := make([]models.WorkItem, len(q.items)-q.head, cap(q.items)-q.head)
		copy(remaining, q.items[q.head:])
		q.items = remaining
		q.head = 0
	}
	return item, true
}

// Len returns the number of pending items
func (q *URLQueue) Len() int {
	return len(q.items) - q.head
}

// Pending returns the URLs still queued, head first
func (q *URLQueue) Pending() []string {
	urls := make([]string, 0, q.Len())
	for _, item := range q.items[q.head:] {
		urls = append(urls, item.URL)
	}
	return urls
}
