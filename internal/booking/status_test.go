package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextHappyPath(t *testing.T) {
	t.Parallel()

	steps := []struct {
		action Action
		actor  Role
		want   Status
	}{
		{ActionAccept, RolePerformer, StatusPendingVetting},
		{ActionApproveVetting, RoleAdmin, StatusDepositPending},
		{ActionSubmitDeposit, RoleClient, StatusPendingDepositCheck},
		{ActionVerifyDeposit, RoleAdmin, StatusConfirmed},
		{ActionComplete, RoleAdmin, StatusCompleted},
	}

	s := StatusPendingAcceptance
	for _, st := range steps {
		next, err := Next(s, st.action, st.actor)
		require.NoError(t, err, "%s from %s", st.action, s)
		assert.Equal(t, st.want, next)
		s = next
	}
	assert.True(t, s.Terminal())
}

func TestNextTable(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		from    Status
		action  Action
		actor   Role
		want    Status
		wantErr error
	}{
		{"performer declines", StatusPendingAcceptance, ActionDecline, RolePerformer, StatusRejected, nil},
		{"admin accepts on behalf", StatusPendingAcceptance, ActionAccept, RoleAdmin, StatusPendingVetting, nil},
		{"client cannot accept", StatusPendingAcceptance, ActionAccept, RoleClient, "", ErrNotAllowed},
		{"system auto-vets", StatusPendingVetting, ActionApproveVetting, RoleSystem, StatusDepositPending, nil},
		{"system cannot reject vetting", StatusPendingVetting, ActionRejectVetting, RoleSystem, "", ErrNotAllowed},
		{"admin rejects vetting", StatusPendingVetting, ActionRejectVetting, RoleAdmin, StatusRejected, nil},
		{"deposit before vetting", StatusPendingVetting, ActionSubmitDeposit, RoleClient, "", ErrInvalidTransition},
		{"admin rejects receipt", StatusPendingDepositCheck, ActionRejectDeposit, RoleAdmin, StatusDepositPending, nil},
		{"card payment from deposit pending", StatusDepositPending, ActionCardPayment, RoleSystem, StatusConfirmed, nil},
		{"card payment while receipt pending", StatusPendingDepositCheck, ActionCardPayment, RoleSystem, StatusConfirmed, nil},
		{"card payment by client", StatusDepositPending, ActionCardPayment, RoleClient, "", ErrNotAllowed},
		{"client cancels early", StatusPendingVetting, ActionCancel, RoleClient, StatusCancelled, nil},
		{"client cannot cancel confirmed", StatusConfirmed, ActionCancel, RoleClient, "", ErrNotAllowed},
		{"admin cancels confirmed", StatusConfirmed, ActionCancel, RoleAdmin, StatusCancelled, nil},
		{"cancel terminal", StatusRejected, ActionCancel, RoleAdmin, "", ErrInvalidTransition},
		{"expire acceptance", StatusPendingAcceptance, ActionExpire, RoleSystem, StatusCancelled, nil},
		{"expire deposit", StatusDepositPending, ActionExpire, RoleSystem, StatusCancelled, nil},
		{"expire vetting is invalid", StatusPendingVetting, ActionExpire, RoleSystem, "", ErrInvalidTransition},
		{"complete before confirm", StatusDepositPending, ActionComplete, RoleAdmin, "", ErrInvalidTransition},
		{"unknown action", StatusConfirmed, Action("teleport"), RoleAdmin, "", ErrUnknownAction},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Next(tc.from, tc.action, tc.actor)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTerminalStatusesHaveNoActions(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusCompleted, StatusRejected, StatusCancelled} {
		for _, r := range []Role{RoleClient, RolePerformer, RoleAdmin, RoleSystem} {
			assert.Empty(t, AllowedActions(s, r), "%s/%s", s, r)
		}
	}
}

func TestAllowedActions(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]Action{ActionAccept, ActionDecline},
		AllowedActions(StatusPendingAcceptance, RolePerformer))
	assert.Equal(t,
		[]Action{ActionSubmitDeposit, ActionCancel},
		AllowedActions(StatusDepositPending, RoleClient))
	assert.Equal(t,
		[]Action{ActionVerifyDeposit, ActionRejectDeposit, ActionCancel},
		AllowedActions(StatusPendingDepositCheck, RoleAdmin))
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusConfirmed.Valid())
	assert.False(t, Status("paid").Valid())
}

func TestRequiresReason(t *testing.T) {
	t.Parallel()

	assert.True(t, RequiresReason(ActionDecline))
	assert.True(t, RequiresReason(ActionRejectDeposit))
	assert.False(t, RequiresReason(ActionCancel))
}
