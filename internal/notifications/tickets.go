package notifications

import (
	"context"
	"errors"
	"strconv"

	"socialnet/internal/cache"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrTicketsUnavailable is returned when no Redis client is configured.
	ErrTicketsUnavailable = errors.New("websocket tickets require redis")
	// ErrInvalidTicket is returned for unknown, expired or already used tickets.
	ErrInvalidTicket = errors.New("invalid or expired websocket ticket")
)

// TicketStore issues short-lived single-use tickets that authenticate a
// websocket upgrade, since browsers cannot set headers on that request.
type TicketStore struct {
	rdb *redis.Client
}

// NewTicketStore returns a TicketStore backed by rdb, which may be nil.
func NewTicketStore(rdb *redis.Client) *TicketStore {
	return &TicketStore{rdb: rdb}
}

// Available reports whether tickets can be issued.
func (s *TicketStore) Available() bool {
	return s != nil && s.rdb != nil
}

// Issue stores a new ticket for userID, valid for cache.WSTicketTTL.
func (s *TicketStore) Issue(ctx context.Context, userID uint) (string, error) {
	if !s.Available() {
		return "", ErrTicketsUnavailable
	}
	ticket := uuid.NewString()
	if err := s.rdb.Set(ctx, cache.WSTicketKey(ticket), userID, cache.WSTicketTTL).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

// Redeem consumes ticket and returns the user it was issued to.
func (s *TicketStore) Redeem(ctx context.Context, ticket string) (uint, error) {
	if !s.Available() {
		return 0, ErrTicketsUnavailable
	}
	if ticket == "" {
		return 0, ErrInvalidTicket
	}
	raw, err := s.rdb.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidTicket
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidTicket
	}
	return uint(id), nil
}
