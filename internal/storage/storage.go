// Package storage persists the ocean cache and user profiles as JSON
// documents addressed by slash-separated paths.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"oceanbot/internal/model"
)

const (
	PathLastFetched = "oceans/last_fetched"
	PathFetchState  = "oceans/fetch_state"
	PathOceans      = "oceans/list"
	userPrefix      = "users/"
)

// DocumentStore is a path-keyed document store. Documents are opaque JSON.
// Get reports ok=false when nothing is stored at path.
type DocumentStore interface {
	Get(ctx context.Context, path string) (doc []byte, ok bool, err error)
	Put(ctx context.Context, path string, doc []byte) error
	Close() error
}

// Store reads and writes whole documents; there are no partial updates.
type Store struct {
	docs DocumentStore
}

func New(docs DocumentStore) *Store {
	return &Store{docs: docs}
}

func (s *Store) Close() error {
	return s.docs.Close()
}

// UserPath returns the document path of a user profile.
func UserPath(id int64) string {
	return userPrefix + strconv.FormatInt(id, 10)
}

func (s *Store) get(ctx context.Context, path string, out any) (bool, error) {
	doc, ok, err := s.docs.Get(ctx, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (s *Store) put(ctx context.Context, path string, value any) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := s.docs.Put(ctx, path, doc); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LastFetched returns the unix time of the last successful refresh, or 0.
func (s *Store) LastFetched(ctx context.Context) (int64, error) {
	var ts int64
	if _, err := s.get(ctx, PathLastFetched, &ts); err != nil {
		return 0, err
	}
	return ts, nil
}

func (s *Store) SetLastFetched(ctx context.Context, ts int64) error {
	return s.put(ctx, PathLastFetched, ts)
}

func (s *Store) FetchState(ctx context.Context) (model.FetchState, error) {
	var state model.FetchState
	if _, err := s.get(ctx, PathFetchState, &state); err != nil {
		return model.FetchState{}, err
	}
	return state, nil
}

func (s *Store) SetFetchState(ctx context.Context, state model.FetchState) error {
	return s.put(ctx, PathFetchState, state)
}

// Oceans returns the cached list, empty when none was stored yet.
func (s *Store) Oceans(ctx context.Context) ([]model.OceanInfo, error) {
	var infos []model.OceanInfo
	if _, err := s.get(ctx, PathOceans, &infos); err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []model.OceanInfo{}
	}
	return infos, nil
}

// SetOceans overwrites the cached list.
func (s *Store) SetOceans(ctx context.Context, infos []model.OceanInfo) error {
	if infos == nil {
		infos = []model.OceanInfo{}
	}
	return s.put(ctx, PathOceans, infos)
}

// User returns the profile for id, creating and persisting an empty one on
// first access.
func (s *Store) User(ctx context.Context, id int64) (model.UserProfile, error) {
	var user model.UserProfile
	ok, err := s.get(ctx, UserPath(id), &user)
	if err != nil {
		return model.UserProfile{}, err
	}
	if ok {
		return user, nil
	}
	user = model.UserProfile{ID: id}
	if err := s.SaveUser(ctx, user); err != nil {
		return model.UserProfile{}, err
	}
	return user, nil
}

func (s *Store) SaveUser(ctx context.Context, user model.UserProfile) error {
	return s.put(ctx, UserPath(user.ID), user)
}
