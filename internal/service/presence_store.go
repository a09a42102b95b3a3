package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"support-chat/internal/domain"
)

// PresenceStore mantiene la lista de usuarios en línea por sala. Es estado
// transitorio: perderlo en un reinicio no afecta sesiones ni mensajes.
type PresenceStore interface {
	Add(sessionID string, identity domain.Identity) error
	Remove(sessionID, identityID string) error
	List(sessionID string) ([]domain.Identity, error)
}

type memoryPresenceStore struct {
	mu    sync.Mutex
	rooms map[string]map[string]domain.Identity
}

// NewMemoryPresenceStore es el respaldo cuando Redis no está configurado.
func NewMemoryPresenceStore() PresenceStore {
	return &memoryPresenceStore{
		rooms: make(map[string]map[string]domain.Identity),
	}
}

func (s *memoryPresenceStore) Add(sessionID string, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[sessionID]
	if !ok {
		room = make(map[string]domain.Identity)
		s.rooms[sessionID] = room
	}
	room[identity.ID] = identity
	return nil
}

func (s *memoryPresenceStore) Remove(sessionID, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[sessionID]; ok {
		delete(room, identityID)
		if len(room) == 0 {
			delete(s.rooms, sessionID)
		}
	}
	return nil
}

func (s *memoryPresenceStore) List(sessionID string) ([]domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.rooms[sessionID]
	users := make([]domain.Identity, 0, len(room))
	for _, identity := range room {
		users = append(users, identity)
	}
	return users, nil
}

type redisPresenceStore struct {
	client *redis.Client
	prefix string
	expiry time.Duration
}

// NewRedisPresenceStore guarda la presencia por sala en un hash de Redis,
// campo = id de usuario, valor = identidad en JSON.
func NewRedisPresenceStore(client *redis.Client) PresenceStore {
	if client == nil {
		return nil
	}
	return &redisPresenceStore{
		client: client,
		prefix: "chat:room:",
		expiry: 24 * time.Hour,
	}
}

func (s *redisPresenceStore) key(sessionID string) string {
	return s.prefix + sessionID + ":online"
}

func (s *redisPresenceStore) Add(sessionID string, identity domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key := s.key(sessionID)
	if err := s.client.HSet(ctx, key, identity.ID, data).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.expiry).Err()
}

func (s *redisPresenceStore) Remove(sessionID, identityID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.HDel(ctx, s.key(sessionID), identityID).Err()
}

func (s *redisPresenceStore) List(sessionID string) ([]domain.Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	result, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}

	users := make([]domain.Identity, 0, len(result))
	for _, data := range result {
		var identity domain.Identity
		if err := json.Unmarshal([]byte(data), &identity); err != nil {
			continue
		}
		users = append(users, identity)
	}
	return users, nil
}
