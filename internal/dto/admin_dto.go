package dto

import (
	"encoding/json"
	"time"

	"accounts/internal/entity"
)

type SecurityEventResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	IPAddress string          `json:"ipAddress,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func SecurityEventResponsesFromEntities(logs []entity.SecurityLog) []SecurityEventResponse {
	responses := make([]SecurityEventResponse, 0, len(logs))
	for _, log := range logs {
		response := SecurityEventResponse{
			ID:        log.ID.String(),
			Action:    string(log.Action),
			CreatedAt: log.CreatedAt,
		}
		if log.IPAddress != nil {
			response.IPAddress = *log.IPAddress
		}
		if len(log.Metadata) > 0 {
			response.Metadata = json.RawMessage(log.Metadata)
		}
		responses = append(responses, response)
	}
	return responses
}
