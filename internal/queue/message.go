// Package queue moves resume analyses off the request path: the server
// publishes jobs to RabbitMQ and worker processes consume them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Job is the message published for one asynchronous analysis.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Owner      *uuid.UUID `json:"owner_id,omitempty"`
	Filename   string     `json:"filename"`
	StorageKey string     `json:"storage_key"`
	Options    JobOptions `json:"options"`
}

// JobOptions mirrors the synchronous analyze request.
type JobOptions struct {
	JobDescription string `json:"job_description,omitempty"`
	JobURL         string `json:"job_url,omitempty"`
	IncludeSTAR    bool   `json:"include_star,omitempty"`
	Save           bool   `json:"save,omitempty"`
	Company        string `json:"company,omitempty"`
	Position       string `json:"position,omitempty"`
	VersionName    string `json:"version_name,omitempty"`
}

// StatusUpdate is published on the status exchange as a job moves through
// its lifecycle. The routing key is "job.<id>".
type StatusUpdate struct {
	JobID     uuid.UUID `json:"job_id"`
	Status    string    `json:"status"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message,omitempty"`
	VersionID string    `json:"version_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Delivery is one consumed message.
type Delivery struct {
	Body []byte
	ack  func() error
	nack func(requeue bool) error
}

// NewDelivery wraps a body with acknowledgement callbacks.
func NewDelivery(body []byte, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Body: body, ack: ack, nack: nack}
}

// Ack acknowledges the message.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack rejects the message.
func (d Delivery) Nack(requeue bool) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}
