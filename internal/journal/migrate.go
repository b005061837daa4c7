package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

// MigrateResult reports both sides of a completed task migration.
type MigrateResult struct {
	Source *EntryDetail `json:"source"`
	Target *EntryDetail `json:"target"`
}

// Migrate moves a task to another day: the source bullet is marked
// migrated and a fresh pending copy is appended to the target entry.
// Only pending and scheduled tasks can move; anything else fails with
// apperr.ErrInvalidTransition and no change.
//
// The two days commit one after the other. If the target commit fails,
// a compensating write restores the source, so either both days change
// or neither does. Hooks fire only once both commits are in.
func (s *Service) Migrate(_ context.Context, source models.Date, bulletID string, target models.Date) (*MigrateResult, error) {
	if source.Equal(target) {
		return nil, fmt.Errorf("journal: migrate %s: source and target are the same day: %w", source, apperr.ErrInvalidTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rawSource, err := s.store.Read(source)
	if err != nil {
		return nil, err
	}
	srcEntry := models.NewEntry(source, parser.Parse(rawSource).Bullets)

	b := srcEntry.Bullet(bulletID)
	if b == nil {
		return nil, fmt.Errorf("journal: migrate %s: bullet %q: %w", source, bulletID, apperr.ErrNotFound)
	}
	if b.Type != models.Task {
		return nil, fmt.Errorf("journal: migrate %s/%s: %s bullets do not migrate: %w", source, bulletID, b.Type, apperr.ErrInvalidTransition)
	}
	if b.TaskState != models.Pending && b.TaskState != models.Scheduled {
		return nil, fmt.Errorf("journal: migrate %s/%s: task is already %s: %w", source, bulletID, b.TaskState, apperr.ErrInvalidTransition)
	}
	content := b.Content

	b.TaskState = models.Migrated
	newSource := parser.Serialize(srcEntry)
	srcFinal := models.NewEntry(source, parser.Parse(newSource).Bullets)

	var targetBullets []models.Bullet
	rawTarget, err := s.store.Read(target)
	switch {
	case err == nil:
		targetBullets = parser.Parse(rawTarget).Bullets
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, err
	}
	targetBullets = append(targetBullets, models.Bullet{
		Type:      models.Task,
		Content:   content,
		TaskState: models.Pending,
	})
	newTarget := parser.Serialize(models.NewEntry(target, targetBullets))
	tgtFinal := models.NewEntry(target, parser.Parse(newTarget).Bullets)

	srcKind, err := s.commit(source, newSource, srcFinal)
	if err != nil {
		return nil, fmt.Errorf("journal: migrate %s -> %s: source commit: %w", source, target, err)
	}

	tgtKind, err := s.commit(target, newTarget, tgtFinal)
	if err != nil {
		// Put the source day back the way it was.
		origSource := models.NewEntry(source, parser.Parse(rawSource).Bullets)
		if _, rbErr := s.commit(source, rawSource, origSource); rbErr != nil {
			s.logger.Error("migration rollback failed, source and target disagree until next sync",
				slog.String("source", source.String()),
				slog.String("target", target.String()),
				slog.String("error", rbErr.Error()))
		}
		return nil, fmt.Errorf("journal: migrate %s -> %s: target commit: %w", source, target, err)
	}

	s.notify(srcKind, source, newSource, srcFinal)
	s.notify(tgtKind, target, newTarget, tgtFinal)

	srcDetail, err := s.buildDetail(source, newSource, srcFinal, nil)
	if err != nil {
		return nil, err
	}
	tgtDetail, err := s.buildDetail(target, newTarget, tgtFinal, nil)
	if err != nil {
		return nil, err
	}
	return &MigrateResult{Source: srcDetail, Target: tgtDetail}, nil
}
