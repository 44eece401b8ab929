package services

import "sync"

// Notifications buffers operator messages between housekeeping flushes. Two
// audiences: admins get everything, watchers only the confirmed-claims
// channel. The buffer is shared by the poll worker and the housekeeping
// loop, hence the lock.
type Notifications struct {
	mu       sync.Mutex
	admins   []string
	watchers []string
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (n *Notifications) AddToAdmins(msg string) {
	n.mu.Lock()
	n.admins = append(n.admins, msg)
	n.mu.Unlock()
}

func (n *Notifications) AddToWatchers(msg string) {
	n.mu.Lock()
	n.watchers = append(n.watchers, msg)
	n.mu.Unlock()
}

func (n *Notifications) AddToAll(msg string) {
	n.mu.Lock()
	n.admins = append(n.admins, msg)
	n.watchers = append(n.watchers, msg)
	n.mu.Unlock()
}

// Drain returns the pending batches and clears the buffer.
func (n *Notifications) Drain() (admins, watchers []string) {
	n.mu.Lock()
	admins, watchers = n.admins, n.watchers
	n.admins, n.watchers = nil, nil
	n.mu.Unlock()
	return admins, watchers
}
