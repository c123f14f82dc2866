package service

import (
	"context"
	"time"

	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/pkg/pipeline"
)

// HealthCheck checks one dependency. A nil error means healthy.
type HealthCheck struct {
	Name string
	// Optional checks only degrade the overall status.
	Optional bool
	Check    func(ctx context.Context) error
}

type ISystemService interface {
	Status(ctx context.Context) dto.SystemStatusResponse
	Logs(query dto.SystemLogsQuery) ([]logger.LogEntry, error)
}

type systemService struct {
	tracker     *pipeline.SessionTracker
	checks      []HealthCheck
	logs        logger.ILogger
	instanceID  string
	environment string
	now         func() time.Time
}

func NewSystemService(tracker *pipeline.SessionTracker, checks []HealthCheck, logs logger.ILogger, instanceID, environment string) ISystemService {
	return &systemService{
		tracker:     tracker,
		checks:      checks,
		logs:        logs,
		instanceID:  instanceID,
		environment: environment,
		now:         time.Now,
	}
}

func (s *systemService) Status(ctx context.Context) dto.SystemStatusResponse {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	overall := "healthy"
	components := make([]dto.ComponentStatus, 0, len(s.checks))
	for _, hc := range s.checks {
		cs := dto.ComponentStatus{Name: hc.Name, Status: "up"}
		if err := hc.Check(ctx); err != nil {
			cs.Status = "down"
			cs.Details = err.Error()
			switch {
			case !hc.Optional:
				overall = "unhealthy"
			case overall == "healthy":
				overall = "degraded"
			}
		}
		components = append(components, cs)
	}

	return dto.SystemStatusResponse{
		Status:         overall,
		InstanceID:     s.instanceID,
		Environment:    s.environment,
		ActiveSessions: len(s.tracker.Active()),
		Components:     components,
		Timestamp:      s.now(),
	}
}

func (s *systemService) Logs(query dto.SystemLogsQuery) ([]logger.LogEntry, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	return s.logs.GetLogs(query.Level, limit, query.Offset)
}
