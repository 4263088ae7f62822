// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package feed delivers realtime change notifications for the posters
// table. Every committed insert, update, and delete is published as an
// Event; subscribers receive events in publish order and use them to keep
// local catalog mirrors consistent without polling.
package feed

import (
	"encoding/json"
	"fmt"

	"posterpress/internal/models"
)

// Op identifies the kind of table change an Event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a single change to the posters table. Insert and update events
// carry the full row; delete events carry only the row ID.
type Event struct {
	Op     Op             `json:"op"`
	Poster *models.Poster `json:"poster,omitempty"`
	ID     int64          `json:"id"`
}

// Insert builds an insert event for a newly created poster.
func Insert(p *models.Poster) Event { return Event{Op: OpInsert, Poster: p, ID: p.ID} }

// Update builds an update event carrying the poster's new state.
func Update(p *models.Poster) Event { return Event{Op: OpUpdate, Poster: p, ID: p.ID} }

// Delete builds a delete event for a removed poster.
func Delete(id int64) Event { return Event{Op: OpDelete, ID: id} }

// Validate checks the event's internal consistency before it is applied
// or published. Insert/update must carry a poster; delete must not need one.
func (e Event) Validate() error {
	switch e.Op {
	case OpInsert, OpUpdate:
		if e.Poster == nil {
			return fmt.Errorf("%s event without poster payload", e.Op)
		}
		return nil
	case OpDelete:
		if e.ID == 0 {
			return fmt.Errorf("delete event without id")
		}
		return nil
	default:
		return fmt.Errorf("unknown event op %q", e.Op)
	}
}

// Marshal encodes the event as its wire (JSON) form.
func (e Event) Marshal() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Unmarshal decodes an event from its wire form and validates it.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
