// Package moderation implements the moderation workflow of analysis records
// and the append-only report and feedback logs attached to them.
package moderation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/inocula/pkg/models"
)

var (
	ErrInvalidStatus     = errors.New("invalid moderation status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions lists the statuses reachable from each status. resolved is terminal.
var transitions = map[models.ModerationStatus][]models.ModerationStatus{
	models.StatusSubmitted: {models.StatusEscalated, models.StatusResolved},
	models.StatusEscalated: {models.StatusResolved},
}

// ParseStatus converts raw input into a ModerationStatus.
func ParseStatus(raw string) (models.ModerationStatus, error) {
	s := models.ModerationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q (must be one of submitted, escalated, resolved)", ErrInvalidStatus, raw)
	}
	return s, nil
}

// CanTransition reports whether a record in status from may move to status to.
func CanTransition(from, to models.ModerationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change.
func Transition(from, to models.ModerationStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
