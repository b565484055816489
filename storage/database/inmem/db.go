// Package inmemdb keeps every table in memory. It backs the tests and the API when no database is configured.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
)

// DB guards all tables with a single lock, so cascading deletes see a consistent state.
type DB struct {
	sync.RWMutex

	users       map[string]*user.User
	elements    map[string]*element.Element
	memberships map[string]*element.Membership
	concerns    map[string]*element.Concern
	categories  map[string]*event.Category
	events      map[string]*event.Event
	commitments map[string]*event.Commitment
	notes       map[string]*event.Note
	collections map[string]*event.Collection
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[string]*user.User),
		elements:    make(map[string]*element.Element),
		memberships: make(map[string]*element.Membership),
		concerns:    make(map[string]*element.Concern),
		categories:  make(map[string]*event.Category),
		events:      make(map[string]*event.Event),
		commitments: make(map[string]*event.Commitment),
		notes:       make(map[string]*event.Note),
		collections: make(map[string]*event.Collection),
	}
	return db, nil
}

func newID() string { return uuid.New().String() }

func stringIn(s string, list []string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
