package contact

import (
	"errors"
	"time"
)

// Submission is a contact-form message logged before delivery so failed
// sends can be retried.
type Submission struct {
	ID        string
	To        string
	Subject   string
	Text      string
	HTML      string
	Timestamp time.Time
	Sent      bool
}

var (
	ErrValidation = errors.New("invalid request")
	ErrDelivery   = errors.New("failed to send email")
)
