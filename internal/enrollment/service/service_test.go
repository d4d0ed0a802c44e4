package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountrepo "github.com/smallbiznis/tutorly/internal/account/repository"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/enrollment/domain"
	"github.com/smallbiznis/tutorly/internal/enrollment/repository"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"github.com/smallbiznis/tutorly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateEnrollment(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	orgID := node.Generate()
	seed := testutil.NewSeeder(t, db, node, orgID)
	ctx := orgcontext.WithOrgID(context.Background(), orgID.Int64())

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
		Repo:        repository.Provide(),
		AccountRepo: accountrepo.Provide(),
	})

	owner := seed.Account("Owner", testutil.AccountOpts{})
	other := seed.Account("Other", testutil.AccountOpts{})
	kid := seed.Member(owner, "Kid")
	stranger := seed.Member(other, "Stranger")

	enrollment, err := svc.Create(ctx, domain.CreateEnrollmentRequest{
		AccountID:   owner.String(),
		MemberID:    kid.String(),
		ServiceName: "Algebra tutoring",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, enrollment.Status)
	require.NotNil(t, enrollment.MemberID)
	assert.Equal(t, kid, *enrollment.MemberID)

	_, err = svc.Create(ctx, domain.CreateEnrollmentRequest{
		AccountID:   owner.String(),
		MemberID:    stranger.String(),
		ServiceName: "Algebra tutoring",
	})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	_, err = svc.Create(ctx, domain.CreateEnrollmentRequest{AccountID: owner.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidServiceName)

	_, err = svc.Create(ctx, domain.CreateEnrollmentRequest{AccountID: "999", ServiceName: "Chess"})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	counts, err := svc.CountByAccounts(ctx, []snowflake.ID{owner, other})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[owner])
	assert.EqualValues(t, 0, counts[other])
}
