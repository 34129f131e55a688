package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrPartConflict is returned when a part number is redelivered with
	// content that differs from what was stored earlier.
	ErrPartConflict = errors.New("part already received with different content")

	// ErrSessionNotFound is returned when assembling a session that does
	// not exist (never created, or expired by TTL).
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrTotalPartsMismatch is returned when a fragment disagrees with the
	// session's recorded part count.
	ErrTotalPartsMismatch = errors.New("totalParts differs from the session's recorded value")
)

const keyPrefix = "intake:session:"

// Progress describes how far along a chunked submission is.
type Progress struct {
	Received int
	Total    int
}

// Store keeps chunked-intake sessions in Redis so every running instance
// observes the same state. Each session is one hash holding the part
// slots; expiry is Redis-native TTL set at creation.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// AddPart stores one fragment at its 1-based slot. The session is created
// lazily on the first fragment seen for the id, whatever its part number.
// Redelivering a slot with identical content is a no-op; differing content
// is a conflict. Metadata is captured from part 1 only.
func (s *Store) AddPart(ctx context.Context, sessionID string, partNumber, totalParts int, content string, metadata map[string]any) (*Progress, error) {
	if partNumber < 1 || partNumber > totalParts {
		return nil, fmt.Errorf("partNumber %d out of range 1..%d", partNumber, totalParts)
	}

	key := keyPrefix + sessionID

	created, err := s.client.HSetNX(ctx, key, "total_parts", totalParts).Result()
	if err != nil {
		return nil, err
	}
	if created {
		s.client.HSet(ctx, key, "created_at", time.Now().Format(time.RFC3339))
		s.client.Expire(ctx, key, s.ttl)
	} else {
		stored, err := s.client.HGet(ctx, key, "total_parts").Int()
		if err != nil {
			return nil, err
		}
		if stored != totalParts {
			return nil, ErrTotalPartsMismatch
		}
	}

	field := partField(partNumber)
	existing, err := s.client.HGet(ctx, key, field).Result()
	if err == nil {
		if existing != content {
			return nil, ErrPartConflict
		}
		// Identical redelivery: nothing to do.
	} else if err == redis.Nil {
		if err := s.client.HSet(ctx, key, field, content).Err(); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}

	if partNumber == 1 && metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		if err := s.client.HSetNX(ctx, key, "metadata", string(b)).Err(); err != nil {
			return nil, err
		}
	}

	received, err := s.countParts(ctx, key)
	if err != nil {
		return nil, err
	}

	return &Progress{Received: received, Total: totalParts}, nil
}

// Assemble concatenates the stored slots in index order, returns the
// document and the captured metadata, and destroys the session. Missing
// slots contribute nothing, which lets a caller complete a sparse session
// explicitly.
func (s *Store) Assemble(ctx context.Context, sessionID string) (string, map[string]any, error) {
	key := keyPrefix + sessionID

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return "", nil, err
	}
	if len(fields) == 0 {
		return "", nil, ErrSessionNotFound
	}

	totalParts, err := strconv.Atoi(fields["total_parts"])
	if err != nil {
		return "", nil, fmt.Errorf("corrupt session %s: %w", sessionID, err)
	}

	indexes := make([]int, 0, totalParts)
	for f := range fields {
		if n, ok := parsePartField(f); ok {
			indexes = append(indexes, n)
		}
	}
	sort.Ints(indexes)

	var sb strings.Builder
	for _, n := range indexes {
		sb.WriteString(fields[partField(n)])
	}

	var metadata map[string]any
	if raw, ok := fields["metadata"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return "", nil, fmt.Errorf("corrupt session metadata %s: %w", sessionID, err)
		}
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return "", nil, err
	}

	return sb.String(), metadata, nil
}

func (s *Store) countParts(ctx context.Context, key string) (int, error) {
	fields, err := s.client.HKeys(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, f := range fields {
		if _, ok := parsePartField(f); ok {
			count++
		}
	}
	return count, nil
}

func partField(n int) string {
	return "part:" + strconv.Itoa(n)
}

func parsePartField(f string) (int, bool) {
	rest, ok := strings.CutPrefix(f, "part:")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
