package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/reachgate/internal/segment"
)

// CreateSegment validates and stores a new segment
func (s *Store) CreateSegment(ctx context.Context, p *segment.Payload) (*segment.Segment, error) {
	seg := p.Segment()
	if err := seg.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seg.ID = uuid.New().String()
	seg.CreatedAt = now
	seg.UpdatedAt = now

	if err := s.putSegment(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// UpdateSegment replaces the definition of an existing segment
func (s *Store) UpdateSegment(ctx context.Context, id string, p *segment.Payload) (*segment.Segment, error) {
	seg := p.Segment()
	if err := seg.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.GetSegment(ctx, id)
	if err != nil {
		return nil, err
	}

	seg.ID = id
	seg.CreatedAt = existing.CreatedAt
	seg.UpdatedAt = time.Now().UTC()

	if err := s.putSegment(seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// GetSegment retrieves a segment by id
func (s *Store) GetSegment(ctx context.Context, id string) (*segment.Segment, error) {
	var seg *segment.Segment
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSegments).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		seg = &segment.Segment{}
		return json.Unmarshal(data, seg)
	})
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// ListSegments returns all segments in id order
func (s *Store) ListSegments(ctx context.Context) ([]*segment.Segment, error) {
	segments := []*segment.Segment{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSegments).ForEach(func(k, v []byte) error {
			var seg segment.Segment
			if err := json.Unmarshal(v, &seg); err != nil {
				return nil
			}
			segments = append(segments, &seg)
			return nil
		})
	})
	return segments, err
}

// DeleteSegment removes a segment
func (s *Store) DeleteSegment(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSegments)
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *Store) putSegment(seg *segment.Segment) error {
	data, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("failed to marshal segment: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSegments).Put([]byte(seg.ID), data)
	})
}
