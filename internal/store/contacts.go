package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/reachgate/internal/segment"
)

// ImportResult summarises a contact import
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ListFilter pages through contacts
type ListFilter struct {
	Limit  int
	Offset int
}

// UpsertContacts stores contacts, matching existing records by phone number.
// New contacts get a generated id and a creation time when missing.
func (s *Store) UpsertContacts(ctx context.Context, contacts []*segment.Contact) (*ImportResult, error) {
	result := &ImportResult{}
	now := time.Now().UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketContacts)
		phones := tx.Bucket(bucketPhones)

		for i, c := range contacts {
			if c == nil {
				continue
			}
			phone := normalizePhone(c.Phone)
			if phone == "" {
				return fmt.Errorf("%w: contact %d has no phone", ErrInvalidContact, i)
			}

			existingID := phones.Get([]byte(phone))
			switch {
			case existingID != nil:
				c.ID = string(existingID)
				if prev := bucket.Get(existingID); prev != nil && c.CreatedAt.IsZero() {
					var old segment.Contact
					if err := json.Unmarshal(prev, &old); err == nil {
						c.CreatedAt = old.CreatedAt
					}
				}
				result.Updated++
			default:
				if c.ID == "" {
					c.ID = uuid.New().String()
				}
				result.Created++
			}
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}

			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to marshal contact: %w", err)
			}
			if err := bucket.Put([]byte(c.ID), data); err != nil {
				return fmt.Errorf("failed to store contact: %w", err)
			}
			if err := phones.Put([]byte(phone), []byte(c.ID)); err != nil {
				return fmt.Errorf("failed to index contact phone: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetContact retrieves a contact by id
func (s *Store) GetContact(ctx context.Context, id string) (*segment.Contact, error) {
	var c *segment.Contact
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketContacts).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		c = &segment.Contact{}
		return json.Unmarshal(data, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContacts returns contacts in id order
func (s *Store) ListContacts(ctx context.Context, filter ListFilter) ([]*segment.Contact, error) {
	var contacts []*segment.Contact

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketContacts).Cursor()

		skipped := 0
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if skipped < filter.Offset {
				skipped++
				continue
			}

			var contact segment.Contact
			if err := json.Unmarshal(v, &contact); err != nil {
				continue
			}
			contacts = append(contacts, &contact)

			if filter.Limit > 0 && len(contacts) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return contacts, err
}

// CountSegment counts the contacts matching rules
func (s *Store) CountSegment(ctx context.Context, rules []segment.Rule) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	count := 0
	err := s.eachContact(func(c *segment.Contact) {
		if segment.Match(rules, c) {
			count++
		}
	})
	return count, err
}

// CountSaved counts the audience of a stored segment
func (s *Store) CountSaved(ctx context.Context, id string) (int, error) {
	seg, err := s.GetSegment(ctx, id)
	if err != nil {
		return 0, err
	}
	if seg.Type == segment.TypeDynamic {
		return s.CountSegment(ctx, seg.Rules)
	}

	var contacts []*segment.Contact
	err = s.eachContact(func(c *segment.Contact) {
		contacts = append(contacts, c)
	})
	if err != nil {
		return 0, err
	}
	return seg.CountLocal(contacts), nil
}

func (s *Store) eachContact(fn func(c *segment.Contact)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketContacts).ForEach(func(k, v []byte) error {
			var c segment.Contact
			if err := json.Unmarshal(v, &c); err != nil {
				return nil
			}
			fn(&c)
			return nil
		})
	})
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
