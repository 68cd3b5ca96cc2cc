package service

import (
	"context"
	"fmt"
	"log"

	"edulearn/internal/cache"
	"edulearn/internal/repository"
)

// RosterService implements BatchRoster with a Redis cache in front of the
// platform's batch store. A cache failure falls through to the repository;
// only the repository is authoritative.
type RosterService struct {
	cache cache.RosterCache
	repo  repository.RosterRepo
}

// NewRosterService creates a new roster service.
func NewRosterService(rosterCache cache.RosterCache, repo repository.RosterRepo) *RosterService {
	return &RosterService{
		cache: rosterCache,
		repo:  repo,
	}
}

// EnrolledStudents resolves a batch to its enrolled student ids.
func (s *RosterService) EnrolledStudents(ctx context.Context, batchID string) ([]string, error) {
	ids, err := s.cache.Get(ctx, batchID)
	if err != nil {
		log.Printf("roster cache read failed for batch %s: %v", batchID, err)
	}
	if ids != nil {
		return ids, nil
	}

	ids, err = s.repo.EnrolledStudents(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch roster: %w", err)
	}

	if err := s.cache.Set(ctx, batchID, ids); err != nil {
		log.Printf("roster cache write failed for batch %s: %v", batchID, err)
	}
	return ids, nil
}
