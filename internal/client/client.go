package client

import "errors"

// Client is a billing client. Its id is the partition scheme invoices use.
type Client struct {
	ID           string
	Name         string
	ContactEmail string
	Address      string
	Phone        string
}

var (
	ErrNotFound   = errors.New("client not found")
	ErrExists     = errors.New("client already exists")
	ErrValidation = errors.New("invalid request")
)
