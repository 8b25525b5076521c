package domain

import (
	"errors"
	"strings"
	"time"
)

// TriplestoreConnection is a configured RDF store endpoint.
type TriplestoreConnection struct {
	ID             string
	Name           string
	QueryEndpoint  string
	UpdateEndpoint string
	Username       string
	Password       string
	IsDefault      bool
	CreatedBy      string
	CreatedAt      time.Time
}

func (c TriplestoreConnection) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("connection id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("connection name is required")
	}
	if strings.TrimSpace(c.QueryEndpoint) == "" {
		return errors.New("connection query endpoint is required")
	}
	return nil
}
