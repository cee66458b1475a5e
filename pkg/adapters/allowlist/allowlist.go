// Package allowlist implements ports.Authorizer with a static user list and
// a registry of connection owners.
package allowlist

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/scribe/pkg/domain"
)

// Wildcard in the user list authorizes everyone.
const Wildcard = "*"

// Allowlist authorizes actors listed by username or numeric ID, and the owner
// of the connection a message arrived through. It fails closed: with no
// users and no owner, nobody is authorized.
type Allowlist struct {
	mu        sync.RWMutex
	ids       map[string]struct{}
	usernames map[string]struct{}
	anyone    bool
	owners    map[string]string // connection ID -> owner ID
}

// New creates an Allowlist from identifiers such as "@alice", "alice" or "12345".
func New(users ...string) *Allowlist {
	a := &Allowlist{
		ids:       make(map[string]struct{}),
		usernames: make(map[string]struct{}),
		owners:    make(map[string]string),
	}
	for _, u := range users {
		a.Add(u)
	}
	return a
}

// normalize splits an identifier into a numeric ID or a lowercase username.
func normalize(identifier string) (id, username string) {
	s := strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if s == "" {
		return "", ""
	}
	if isDigits(s) {
		return s, ""
	}
	return "", strings.ToLower(s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add allows an identifier. It reports false if it was already present or empty.
func (a *Allowlist) Add(identifier string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.TrimSpace(identifier) == Wildcard {
		added := !a.anyone
		a.anyone = true
		return added
	}
	id, username := normalize(identifier)
	switch {
	case id != "":
		if _, ok := a.ids[id]; ok {
			return false
		}
		a.ids[id] = struct{}{}
	case username != "":
		if _, ok := a.usernames[username]; ok {
			return false
		}
		a.usernames[username] = struct{}{}
	default:
		return false
	}
	return true
}

// Remove revokes an identifier. It reports whether it was present.
func (a *Allowlist) Remove(identifier string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.TrimSpace(identifier) == Wildcard {
		removed := a.anyone
		a.anyone = false
		return removed
	}
	id, username := normalize(identifier)
	if id != "" {
		if _, ok := a.ids[id]; ok {
			delete(a.ids, id)
			return true
		}
	}
	if username != "" {
		if _, ok := a.usernames[username]; ok {
			delete(a.usernames, username)
			return true
		}
	}
	return false
}

// Users lists the allowed identifiers as "@username" and "ID:123", sorted.
func (a *Allowlist) Users() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.ids)+len(a.usernames)+1)
	if a.anyone {
		out = append(out, Wildcard)
	}
	for u := range a.usernames {
		out = append(out, "@"+u)
	}
	for id := range a.ids {
		out = append(out, "ID:"+id)
	}
	sort.Strings(out)
	return out
}

// SetOwner records the owner of a connection, replacing any previous owner.
func (a *Allowlist) SetOwner(connectionID, ownerID string) {
	if connectionID == "" || ownerID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owners[connectionID] = ownerID
}

// RemoveOwner forgets the owner of a connection.
func (a *Allowlist) RemoveOwner(connectionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.owners, connectionID)
}

// Owner returns the recorded owner of a connection.
func (a *Allowlist) Owner(connectionID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	owner, ok := a.owners[connectionID]
	return owner, ok
}

// IsAuthorized implements ports.Authorizer.
func (a *Allowlist) IsAuthorized(ctx context.Context, connectionID string, actor domain.Actor) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.anyone {
		return true, nil
	}
	if connectionID != "" && actor.ID != "" && a.owners[connectionID] == actor.ID {
		return true, nil
	}
	if actor.ID != "" {
		if _, ok := a.ids[actor.ID]; ok {
			return true, nil
		}
	}
	if actor.Username != "" {
		if _, ok := a.usernames[strings.ToLower(strings.TrimPrefix(actor.Username, "@"))]; ok {
			return true, nil
		}
	}
	return false, nil
}
