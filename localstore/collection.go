package localstore

import (
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

type Collection struct {
	store *Store
	name  string
}

// Document wraps a stored record with its identifier. Data returns a copy of
// the field mapping, so callers can mutate it freely.
type Document struct {
	ID     string
	fields record
}

func (d Document) Data() map[string]any {
	data := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		data[k] = v
	}
	return data
}

// Get returns every record of the collection in insertion order.
func (c *Collection) Get() []Document {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	docs := make([]Document, 0, len(c.store.collections[c.name]))
	for _, rec := range c.store.collections[c.name] {
		docs = append(docs, wrap(rec))
	}
	return docs
}

// Add appends a new record under a fresh identifier and returns it.
func (c *Collection) Add(fields map[string]any) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "localstore.new_id")
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	c.store.collections[c.name] = append(c.store.collections[c.name], newRecord(id.String(), fields))
	err = c.store.persist()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Doc returns a handle to the record with the given identifier, whether or
// not it exists yet.
func (c *Collection) Doc(id string) *DocRef {
	return &DocRef{coll: c, id: id}
}

// Where starts a filter chain over the collection.
func (c *Collection) Where(field string, op Operator, value any) *Query {
	return &Query{coll: c, filters: []Filter{{field, op, value}}}
}

type DocRef struct {
	coll *Collection
	id   string
}

func (d *DocRef) ID() string {
	return d.id
}

// Get reports existence through the flag; a missing record is not an error.
func (d *DocRef) Get() (Document, bool) {
	s := d.coll.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.collections[d.coll.name] {
		if recordID(rec) == d.id {
			return wrap(rec), true
		}
	}
	return Document{}, false
}

// Set upserts the record: replaced in place if present, appended if absent.
// The identifier always stays the one the handle was opened with.
func (d *DocRef) Set(fields map[string]any) error {
	s := d.coll.store
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.collections[d.coll.name]
	for i, rec := range recs {
		if recordID(rec) == d.id {
			recs[i] = newRecord(d.id, fields)
			return s.persist()
		}
	}
	s.collections[d.coll.name] = append(recs, newRecord(d.id, fields))
	return s.persist()
}

// Update shallow-merges into an existing record. Updating a missing record
// is a no-op, it does not create one.
func (d *DocRef) Update(fields map[string]any) error {
	s := d.coll.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.collections[d.coll.name] {
		if recordID(rec) != d.id {
			continue
		}
		for k, v := range fields {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
		return s.persist()
	}
	return nil
}

// Delete removes the record, a no-op if absent.
func (d *DocRef) Delete() error {
	s := d.coll.store
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.collections[d.coll.name]
	for i, rec := range recs {
		if recordID(rec) == d.id {
			s.collections[d.coll.name] = append(recs[:i], recs[i+1:]...)
			return s.persist()
		}
	}
	return nil
}

func newRecord(id string, fields map[string]any) record {
	rec := make(record, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec["id"] = id
	return rec
}

func recordID(rec record) string {
	id, _ := rec["id"].(string)
	return id
}

// wrap copies the field mapping while the store lock is held: a Document
// must stay readable after the lock is released, even while an Update
// mutates the underlying record.
func wrap(rec record) Document {
	fields := make(record, len(rec))
	for k, v := range rec {
		fields[k] = v
	}
	return Document{ID: recordID(rec), fields: fields}
}
