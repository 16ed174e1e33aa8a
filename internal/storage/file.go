package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
)

// File keeps each digest as a JSON document under
// <base>/digests/<subscriber>/ and reads preferences from
// <base>/profiles/<subscriber>.json.
type File struct {
	basePath string
	mu       sync.RWMutex
	now      func() time.Time
}

func NewFile(basePath string) (*File, error) {
	for _, dir := range []string{"digests", "profiles"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &File{
		basePath: basePath,
		now:      time.Now,
	}, nil
}

func (s *File) subscriberDir(subscriberID string) string {
	return filepath.Join(s.basePath, "digests", url.PathEscape(subscriberID))
}

func (s *File) profilePath(subscriberID string) string {
	return filepath.Join(s.basePath, "profiles", url.PathEscape(subscriberID)+".json")
}

// Append writes the digest atomically (temp file + rename).
func (s *File) Append(ctx context.Context, d *models.Digest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("refusing to store digest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.subscriberDir(d.SubscriberID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create subscriber directory: %w", err)
	}

	stamp(d, s.now())

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal digest: %w", err)
	}

	// Zero-padded nanoseconds keep lexical order equal to creation order.
	filename := fmt.Sprintf("%020d_%s.json", d.CreatedAt.UnixNano(), d.ID)
	tmp, err := os.CreateTemp(dir, ".digest-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write digest file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close digest file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, filename)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to commit digest file: %w", err)
	}

	return d.ID, nil
}

// files returns the subscriber's digest files, newest first.
func (s *File) files(subscriberID string) ([]string, error) {
	entries, err := os.ReadDir(s.subscriberDir(subscriberID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading digest directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

func (s *File) read(subscriberID, name string) (*models.Digest, error) {
	data, err := os.ReadFile(filepath.Join(s.subscriberDir(subscriberID), name))
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", name, err)
	}
	var d models.Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("error unmarshaling digest %s: %w", name, err)
	}
	return &d, nil
}

func (s *File) LatestDigest(ctx context.Context, subscriberID string) (*models.Digest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.files(subscriberID)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return s.read(subscriberID, files[0])
}

func (s *File) ListDigests(ctx context.Context, subscriberID string, since time.Time) ([]*models.Digest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.files(subscriberID)
	if err != nil {
		return nil, err
	}

	digests := make([]*models.Digest, 0, len(files))
	for _, name := range files {
		d, err := s.read(subscriberID, name)
		if err != nil {
			return nil, err
		}
		if d.CreatedAt.Before(since) {
			break
		}
		digests = append(digests, d)
	}
	return digests, nil
}

// ListSubscribers returns every subscriber with a profile file.
func (s *File) ListSubscribers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.basePath, "profiles"))
	if err != nil {
		return nil, fmt.Errorf("error reading profiles directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		id, err := url.PathUnescape(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *File) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.profilePath(subscriberID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading profile: %w", err)
	}

	var p models.Preference
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("error unmarshaling profile: %w", err)
	}
	return &p, nil
}
