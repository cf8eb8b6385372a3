package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// JoinCodeClaimKey returns the reservation key for a session join code.
// The key is claimed with SET NX before the session row is inserted, so
// two concurrent hosts can never hand out the same code.
func (r *CacheKeyStruct) JoinCodeClaimKey(code string) string {
	return fmt.Sprintf("joincode:%s", strings.ToUpper(code))
}

// SessionPayloadKey returns the cache key for a session's participant
// payload (quiz questions stripped of correct answers).
func (r *CacheKeyStruct) SessionPayloadKey(sessionID string) string {
	return fmt.Sprintf("session:%s:payload", sessionID)
}

// SessionParticipantsKey returns the set key holding display names of
// participants that joined a session.
func (r *CacheKeyStruct) SessionParticipantsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:participants", sessionID)
}

// SessionEventsChannel returns the Redis PubSub channel name for a
// session's live monitor events.
func (r *CacheKeyStruct) SessionEventsChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:events", sessionID)
}

var CacheKey = NewCacheKeyStruct()
