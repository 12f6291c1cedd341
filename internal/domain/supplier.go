package domain

import (
	"errors"
	"strings"
	"time"
)

// Supplier is an evaluated vendor. AccountID links the supplier's login
// identity once one exists; at most one account per supplier.
type Supplier struct {
	ID             string
	TaxID          string
	LegalName      string
	Email          string
	SecondaryEmail string
	AccountID      string
	Active         bool
	CreatedAt      time.Time
}

func (s Supplier) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("supplier id is required")
	}
	if strings.TrimSpace(s.TaxID) == "" {
		return errors.New("supplier tax id is required")
	}
	if strings.TrimSpace(s.LegalName) == "" {
		return errors.New("supplier legal name is required")
	}
	if strings.TrimSpace(s.Email) == "" {
		return errors.New("supplier email is required")
	}
	return nil
}

// SupplierAccount is a provisioned login identity. Only a SHA-256 digest of
// the temporary secret is stored; plaintext is handed off once and dropped.
type SupplierAccount struct {
	ID               string
	SupplierID       string
	Username         string
	Email            string
	SecretSHA256     string
	MustChangeSecret bool
	CreatedAt        time.Time
}

func (a SupplierAccount) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("account id is required")
	}
	if strings.TrimSpace(a.SupplierID) == "" {
		return errors.New("account supplier id is required")
	}
	if strings.TrimSpace(a.Username) == "" {
		return errors.New("account username is required")
	}
	if strings.TrimSpace(a.SecretSHA256) == "" {
		return errors.New("account secret digest is required")
	}
	return nil
}
