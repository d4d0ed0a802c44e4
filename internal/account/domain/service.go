package domain

import (
	"context"
	"errors"
)

type CreateAccountRequest struct {
	Name   string
	Status Status
	Email  string
	Phone  string
	Notes  string
}

type AddMemberRequest struct {
	AccountID string
	Name      string
	Grade     string
	School    string
	BirthYear *int
}

type GetAccountRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateAccountRequest) (Account, error)
	AddMember(context.Context, AddMemberRequest) (Member, error)
	GetByID(context.Context, GetAccountRequest) (Account, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
