package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateEnrollmentRequest struct {
	AccountID   string
	MemberID    string
	ServiceName string
	Status      Status
}

type Service interface {
	Create(context.Context, CreateEnrollmentRequest) (Enrollment, error)
	CountByAccounts(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidMember       = errors.New("invalid_member")
	ErrInvalidServiceName  = errors.New("invalid_service_name")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrMemberNotFound      = errors.New("member_not_found")
)
