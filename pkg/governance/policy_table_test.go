package governance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

var (
	unassigned = Facts{}
	assigned   = Facts{HasWorker: true}
	delivered  = Facts{HasWorker: true, HasDeliverable: true}

	managerOnly         = []contracts.Role{contracts.RoleManager}
	managerAndWorker    = []contracts.Role{contracts.RoleManager, contracts.RoleWorker}
	managerAndEvaluator = []contracts.Role{contracts.RoleManager, contracts.RoleEvaluator}
	workerOnly          = []contracts.Role{contracts.RoleWorker}
)

func TestDefaultPolicyMatrix(t *testing.T) {
	table := MustDefaultPolicyTable()

	tests := []struct {
		fn     Function
		facts  Facts
		want   []contracts.Role
		locked bool
	}{
		{SetTaskDomain, unassigned, managerOnly, false},
		{SetTaskDomain, assigned, managerAndWorker, false},
		{SetTaskDomain, delivered, nil, true},
		{SetTaskSkill, unassigned, managerOnly, false},
		{SetTaskSkill, assigned, managerAndWorker, false},
		{SetTaskSkill, delivered, nil, true},
		{SetTaskBrief, delivered, nil, true},
		{SetTaskDueDate, assigned, managerAndWorker, false},
		{SetTaskWorker, unassigned, managerOnly, false},
		{SetTaskWorker, delivered, nil, true},
		{SetTaskEvaluator, assigned, managerAndWorker, false},
		{SetTaskPayout, unassigned, managerOnly, false},
		{SetTaskPayout, assigned, managerAndWorker, false},
		{SetTaskPayout, delivered, managerAndEvaluator, false},
		{SubmitTaskDeliverable, unassigned, workerOnly, false},
		{SubmitTaskDeliverable, assigned, workerOnly, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			got, err := table.Lookup(tt.fn, tt.facts)
			if tt.locked {
				assert.True(t, errors.Is(err, colonyerr.ErrTaskLocked))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupUnknownFunction(t *testing.T) {
	_, err := MustDefaultPolicyTable().Lookup("setTaskColour", unassigned)
	assert.True(t, errors.Is(err, colonyerr.ErrUnknownFunction))
}

func TestCustomRulesAreCanonicalised(t *testing.T) {
	table, err := NewPolicyTable([]Rule{
		{Function: SetTaskBrief, Signers: []contracts.Role{contracts.RoleEvaluator, contracts.RoleManager}},
	})
	require.NoError(t, err)

	got, err := table.Lookup(SetTaskBrief, delivered)
	require.NoError(t, err)
	assert.Equal(t, managerAndEvaluator, got)
	assert.Equal(t, []Function{SetTaskBrief}, table.Functions())
}

func TestNewPolicyTableRejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"missing function", Rule{Signers: managerOnly}},
		{"bad expression", Rule{Function: SetTaskSkill, When: "task.has_worker &&", Signers: managerOnly}},
		{"no signers", Rule{Function: SetTaskSkill, When: "true"}},
		{"unknown role", Rule{Function: SetTaskSkill, Signers: []contracts.Role{"AUDITOR"}}},
		{"duplicate role", Rule{Function: SetTaskSkill, Signers: []contracts.Role{contracts.RoleManager, contracts.RoleManager}}},
		{"non-bool predicate", Rule{Function: SetTaskSkill, When: "1 + 1", Signers: managerOnly}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicyTable([]Rule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestNoMatchingRule(t *testing.T) {
	table, err := NewPolicyTable([]Rule{
		{Function: SetTaskSkill, When: "!task.has_worker", Signers: managerOnly},
	})
	require.NoError(t, err)

	_, err = table.Lookup(SetTaskSkill, assigned)
	assert.True(t, errors.Is(err, colonyerr.ErrUnknownFunction))
}
