package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	PostKeyPrefix     = "post:%d"
	WSTicketKeyPrefix = "ws_ticket:%s"
	BlacklistPrefix   = "blacklist:%s"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	WSTicketTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistPrefix, jti)
}
