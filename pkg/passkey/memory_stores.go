// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package passkey

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

const (
	// DefaultUserCapacity bounds the in-memory user store.
	DefaultUserCapacity = 1000

	// DefaultUserIdleTTL is how long a user may sit unused before eviction.
	DefaultUserIdleTTL = 24 * time.Hour

	// DefaultChallengeTTL bounds the window in which an issued challenge can
	// be consumed.
	DefaultChallengeTTL = 2 * time.Minute
)

// MemoryUserStore is a bounded in-memory implementation of UserStore with
// approximate-LRU eviction and idle expiry. Eviction erases the user's devices
// with it, which is acceptable for development and demos only; production
// deployments should implement UserStore against durable storage.
type MemoryUserStore struct {
	mu       sync.Mutex
	users    map[string]*userEntry
	creds    map[string]string // hex credential ID -> username
	capacity int
	idleTTL  time.Duration
}

type userEntry struct {
	user       *User
	lastAccess time.Time
}

// NewMemoryUserStore creates an in-memory user store with default bounds.
func NewMemoryUserStore() *MemoryUserStore {
	return NewMemoryUserStoreWithOptions(DefaultUserCapacity, DefaultUserIdleTTL)
}

// NewMemoryUserStoreWithOptions creates an in-memory user store with the given
// capacity and idle TTL.
func NewMemoryUserStoreWithOptions(capacity int, idleTTL time.Duration) *MemoryUserStore {
	if capacity <= 0 {
		capacity = DefaultUserCapacity
	}
	if idleTTL <= 0 {
		idleTTL = DefaultUserIdleTTL
	}
	return &MemoryUserStore{
		users:    make(map[string]*userEntry),
		creds:    make(map[string]string),
		capacity: capacity,
		idleTTL:  idleTTL,
	}
}

// GetByUsername retrieves a user by username.
func (s *MemoryUserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveEntryLocked(username)
	if err != nil {
		return nil, err
	}
	entry.lastAccess = time.Now()
	return entry.user.Clone(), nil
}

// GetOrCreate retrieves a user, creating the account on first sight. The
// store mutex makes the lookup-then-create atomic.
func (s *MemoryUserStore) GetOrCreate(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, err := s.liveEntryLocked(username); err == nil {
		entry.lastAccess = time.Now()
		return entry.user.Clone(), nil
	}

	if len(s.users) >= s.capacity {
		s.evictOldestLocked()
	}

	user := NewUser(username)
	s.users[username] = &userEntry{
		user:       user,
		lastAccess: time.Now(),
	}
	return user.Clone(), nil
}

// AddDevice appends a registered device, enforcing credential ID uniqueness
// across all users.
func (s *MemoryUserStore) AddDevice(ctx context.Context, username string, device *Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveEntryLocked(username)
	if err != nil {
		return err
	}

	credKey := hex.EncodeToString(device.ID)
	if _, exists := s.creds[credKey]; exists {
		return ErrDuplicateCredential
	}

	stored := *device
	entry.user.Devices = append(entry.user.Devices, &stored)
	s.creds[credKey] = username
	entry.lastAccess = time.Now()
	return nil
}

// UpdateDeviceCounter persists the signature counter reported by a successful
// authentication.
func (s *MemoryUserStore) UpdateDeviceCounter(ctx context.Context, username string, credentialID []byte, signCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveEntryLocked(username)
	if err != nil {
		return err
	}

	device := entry.user.Device(credentialID)
	if device == nil {
		return ErrDeviceNotFound
	}

	device.SignCount = signCount
	device.LastUsedAt = time.Now().UTC()
	entry.lastAccess = time.Now()
	return nil
}

// Count returns the number of users in the store.
func (s *MemoryUserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Clear removes all users and their devices.
func (s *MemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*userEntry)
	s.creds = make(map[string]string)
}

// Cleanup evicts idle-expired users and returns the count removed.
func (s *MemoryUserStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for username, entry := range s.users {
		if now.Sub(entry.lastAccess) > s.idleTTL {
			s.removeLocked(username, entry)
			removed++
		}
	}
	return removed
}

// StartCleanup starts a background goroutine that periodically evicts expired
// users. Call the returned cancel function to stop it.
func (s *MemoryUserStore) StartCleanup(ctx context.Context, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()

	return cancel
}

// liveEntryLocked returns the entry for username, evicting it first if the
// idle TTL has lapsed. Callers must hold the mutex.
func (s *MemoryUserStore) liveEntryLocked(username string) (*userEntry, error) {
	entry, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if time.Since(entry.lastAccess) > s.idleTTL {
		s.removeLocked(username, entry)
		return nil, ErrUserNotFound
	}
	return entry, nil
}

func (s *MemoryUserStore) removeLocked(username string, entry *userEntry) {
	for _, d := range entry.user.Devices {
		delete(s.creds, hex.EncodeToString(d.ID))
	}
	delete(s.users, username)
}

// evictOldestLocked drops the least recently accessed user. Callers must hold
// the mutex.
func (s *MemoryUserStore) evictOldestLocked() {
	var oldestName string
	var oldest *userEntry
	for username, entry := range s.users {
		if oldest == nil || entry.lastAccess.Before(oldest.lastAccess) {
			oldestName = username
			oldest = entry
		}
	}
	if oldest != nil {
		s.removeLocked(oldestName, oldest)
	}
}

// MemoryChallengeStore is an in-memory implementation of ChallengeStore with
// a fixed TTL per entry.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]*challengeEntry
	ttl     time.Duration
}

type challengeEntry struct {
	data      *webauthn.SessionData
	purpose   Purpose
	createdAt time.Time
}

// NewMemoryChallengeStore creates an in-memory challenge store with the
// default TTL.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return NewMemoryChallengeStoreWithTTL(DefaultChallengeTTL)
}

// NewMemoryChallengeStoreWithTTL creates an in-memory challenge store with a
// custom TTL.
func NewMemoryChallengeStoreWithTTL(ttl time.Duration) *MemoryChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &MemoryChallengeStore{
		entries: make(map[string]*challengeEntry),
		ttl:     ttl,
	}
}

// Put stores the owner's challenge, overwriting any live predecessor.
func (s *MemoryChallengeStore) Put(ctx context.Context, userID []byte, data *webauthn.SessionData, purpose Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[hex.EncodeToString(userID)] = &challengeEntry{
		data:      data,
		purpose:   purpose,
		createdAt: time.Now(),
	}
	return nil
}

// TakeAndInvalidate atomically consumes the owner's challenge. The entry is
// deleted on every call that finds one, so a challenge is never observable
// twice even when the take fails on expiry or purpose mismatch.
func (s *MemoryChallengeStore) TakeAndInvalidate(ctx context.Context, userID []byte, purpose Purpose) (*webauthn.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(userID)
	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.entries, key)

	if time.Since(entry.createdAt) > s.ttl {
		return nil, ErrChallengeNotFound
	}
	if entry.purpose != purpose {
		return nil, ErrChallengeNotFound
	}
	return entry.data, nil
}

// Count returns the number of live challenges.
func (s *MemoryChallengeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes all challenges.
func (s *MemoryChallengeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*challengeEntry)
}

// Cleanup removes expired challenges and returns the count removed.
func (s *MemoryChallengeStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range s.entries {
		if now.Sub(entry.createdAt) > s.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartCleanup starts a background goroutine that periodically removes
// expired challenges. Call the returned cancel function to stop it.
func (s *MemoryChallengeStore) StartCleanup(ctx context.Context, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()

	return cancel
}
