package service

import (
	"context"
	"encoding/json"

	"accounts/internal/entity"
	"accounts/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type clientIPKey struct{}

// WithClientIP attaches the caller's address so security events can record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) *string {
	ip, ok := ctx.Value(clientIPKey{}).(string)
	if !ok {
		return nil
	}
	return &ip
}

// SecurityAudit appends security events; a failed write never fails the
// operation that produced the event.
type SecurityAudit struct {
	logs   repository.SecurityLogRepository
	logger logrus.FieldLogger
}

func NewSecurityAudit(logs repository.SecurityLogRepository, logger logrus.FieldLogger) SecurityAudit {
	return SecurityAudit{logs: logs, logger: logger}
}

func (a SecurityAudit) record(ctx context.Context, userID *uuid.UUID, action entity.SecurityAction, metadata map[string]any) {
	if a.logs == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			a.warn(err, action)
			return
		}
		payload = datatypes.JSON(bytes)
	}

	log := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: clientIP(ctx),
		Action:    action,
		Metadata:  payload,
	}
	if err := a.logs.Log(ctx, log); err != nil {
		a.warn(err, action)
	}
}

func (a SecurityAudit) warn(err error, action entity.SecurityAction) {
	if a.logger == nil {
		return
	}
	a.logger.WithError(err).WithField("action", action).Warn("security log write failed")
}

func (a SecurityAudit) recent(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if a.logs == nil {
		return nil, nil
	}
	return a.logs.ListByUser(ctx, userID, limit)
}
