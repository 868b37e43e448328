package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func TaskKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task:%s", taskID)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}

// ScoreKey addresses a memoized Result by text fingerprint and scorer name.
func ScoreKey(scorer, fingerprint string) string {
	return fmt.Sprintf("score:%s:%s", scorer, fingerprint)
}
