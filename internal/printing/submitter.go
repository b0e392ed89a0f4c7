// Package printing hands rendered badge jobs to the external print queue.
// The queue worker and the physical printer protocol are collaborators
// outside this service.
package printing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-registration/internal/logger"
)

// Job is the rendered description handed to the print worker.
type Job struct {
	RegistrationNumber string `json:"registration_number"`
	QRPNG              []byte `json:"qr_png"`
	VisitorName        string `json:"visitor_name"`
	Company            string `json:"company,omitempty"`
	Category           string `json:"category,omitempty"`
	ExhibitionName     string `json:"exhibition_name"`
}

// Submitter enqueues a job and reports its queue position.
type Submitter interface {
	Submit(ctx context.Context, job Job) (jobID string, position int64, err error)
}

// RedisSubmitter pushes jobs onto a redis list consumed by the print
// worker. RPUSH returns the new list length, which is the job's position.
type RedisSubmitter struct {
	Client *redis.Client
	Queue  string
	Logger *logger.Logger
}

func NewRedisSubmitter(client *redis.Client, queue string, log *logger.Logger) *RedisSubmitter {
	return &RedisSubmitter{Client: client, Queue: queue, Logger: log}
}

type queuedJob struct {
	JobID    string    `json:"job_id"`
	QueuedAt time.Time `json:"queued_at"`
	Job
}

func (s *RedisSubmitter) Submit(ctx context.Context, job Job) (string, int64, error) {
	jobID := uuid.NewString()
	payload, err := json.Marshal(queuedJob{
		JobID:    jobID,
		QueuedAt: time.Now(),
		Job:      job,
	})
	if err != nil {
		return "", 0, fmt.Errorf("print job encode: %w", err)
	}

	position, err := s.Client.RPush(ctx, s.Queue, payload).Result()
	if err != nil {
		return "", 0, fmt.Errorf("print job enqueue: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("PRINT", fmt.Sprintf("queued %s for %s at position %d", jobID, job.RegistrationNumber, position))
	}
	return jobID, position, nil
}
