// Package cache holds the in-memory working set of tasks, keyed per user and
// refreshed from the task store on a poll interval. It is the only
// externally-sourced state the matrix engine reads.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
)

// Cache is a keyed, in-memory collection of task records. All accessors
// return deep copies; callers never share memory with the cache.
type Cache struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[string]*models.Task
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{users: make(map[uuid.UUID]map[string]*models.Task)}
}

// List returns copies of all cached tasks for the user, in stable id order.
func (c *Cache) List(userID uuid.UUID) []*models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tasks := c.users[userID]
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of one cached task, or nil if unknown.
func (c *Cache) Get(userID uuid.UUID, taskID string) *models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.users[userID][taskID]; ok {
		return t.Clone()
	}
	return nil
}

// Known reports whether the user has ever been loaded into the cache.
func (c *Cache) Known(userID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.users[userID]
	return ok
}

// Users returns the ids of all users with cached tasks.
func (c *Cache) Users() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(c.users))
	for id := range c.users {
		out = append(out, id)
	}
	return out
}

// SetAll replaces the user's entire task set with a fresh snapshot from the
// store. Tasks absent from the snapshot leave the cache; the engine only
// reacts to absence, it never deletes.
func (c *Cache) SetAll(userID uuid.UUID, tasks []*models.Task) {
	next := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		if t != nil {
			next[t.ID] = t.Clone()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID] = next
}

// Replace swaps a single task entry with the given record, used when the
// store has returned an authoritative updated task.
func (c *Cache) Replace(userID uuid.UUID, task *models.Task) {
	if task == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks, ok := c.users[userID]
	if !ok {
		tasks = make(map[string]*models.Task)
		c.users[userID] = tasks
	}
	tasks[task.ID] = task.Clone()
}

// ApplyOverride optimistically sets a manual override on the cached task.
// Reports whether the task was present.
func (c *Cache) ApplyOverride(userID uuid.UUID, taskID string, q models.Quadrant, reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.users[userID][taskID]
	if !ok {
		return false
	}
	task.Override = &models.Override{
		Quadrant:     q,
		Reason:       reason,
		OverriddenAt: time.Now().UTC(),
	}
	return true
}

// ApplyOrder optimistically assigns manual order by position in orderedIDs to
// every listed task that currently belongs to quadrant q. Ids that are not
// cached, or whose task sits in a different bucket, are skipped. Returns the
// number of tasks updated.
func (c *Cache) ApplyOrder(userID uuid.UUID, q models.Quadrant, orderedIDs []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	applied := 0
	for i, id := range orderedIDs {
		task, ok := c.users[userID][id]
		if !ok || task.Bucket() != q {
			continue
		}
		order := i
		task.ManualOrder = &order
		applied++
	}
	return applied
}
