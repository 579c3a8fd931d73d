package service

import (
	"context"
	"time"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"

	"github.com/google/uuid"
)

type VisitLogService struct {
	visitRepo repository.VisitLogRepository
}

func NewVisitLogService(visitRepo repository.VisitLogRepository) *VisitLogService {
	return &VisitLogService{visitRepo: visitRepo}
}

// ListVisitLogs returns the caller's own visit history; admins see all logs.
func (s *VisitLogService) ListVisitLogs(ctx context.Context, caller authz.Caller, limit, offset int) ([]models.VisitLog, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionList, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	if caller.Staff() {
		return s.visitRepo.List(ctx, limit, offset)
	}
	return s.visitRepo.ListByUser(ctx, caller.ID(), limit, offset)
}

func (s *VisitLogService) GetVisitLog(ctx context.Context, caller authz.Caller, id uint) (*models.VisitLog, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionRetrieve, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	log, err := s.visitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionRetrieve, log.UserID); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return log, nil
}

// CloseVisitLog stamps the end of a reading session. Only the reader who
// owns the log may close it; closing an already-closed log is a no-op.
func (s *VisitLogService) CloseVisitLog(ctx context.Context, caller authz.Caller, id uint) (*models.VisitLog, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionUpdate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	log, err := s.visitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if log.UserID != caller.ID() {
		return nil, authz.Err(authz.Forbidden)
	}

	if err := s.visitRepo.Close(ctx, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.visitRepo.GetByID(ctx, id)
}
