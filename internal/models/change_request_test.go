package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequestStatus(t *testing.T) {
	cases := map[string]RequestStatus{
		"Pending":     RequestStatusPending,
		"In Progress": RequestStatusInProgress,
		"IN_PROGRESS": RequestStatusInProgress,
		"approved":    RequestStatusApproved,
		"Accepted":    RequestStatusApproved,
		"Rejected":    RequestStatusRejected,
		"declined":    RequestStatusRejected,
		"":            RequestStatusPending,
		"weird":       RequestStatusPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseRequestStatus(raw), raw)
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	assert.True(t, RequestStatusApproved.Terminal())
	assert.True(t, RequestStatusRejected.Terminal())
	assert.False(t, RequestStatusPending.Terminal())
	assert.False(t, RequestStatusInProgress.Terminal())
}

func TestClaimsHelpers(t *testing.T) {
	claims := &JWTClaims{UserID: "u-1", Role: RoleEmployee}
	assert.Equal(t, "u-1", claims.Subject())
	claims.EmployeeID = "E1"
	assert.Equal(t, "E1", claims.Subject())
	assert.False(t, claims.IsReviewer())

	var none *JWTClaims
	assert.Equal(t, "", none.Subject())
	assert.False(t, none.IsReviewer())
}
