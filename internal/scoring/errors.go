package scoring

import "errors"

var (
	ErrProviderUnavailable = errors.New("scoring provider unavailable")
	ErrScoringTimeout      = errors.New("scoring timed out")
	ErrInvalidResponse     = errors.New("scoring provider returned invalid response")
)
