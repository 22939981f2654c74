package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/druksewa/marketplace/internal/core/domain"
)

func sessionFor(role domain.Role) *domain.Session {
	return &domain.Session{Token: "tkn", UserID: "u1", Role: role}
}

func TestAuthorize_DecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		required domain.Role
		session  *domain.Session
		want     Decision
	}{
		{
			name:     "no session on admin route goes to admin login",
			required: domain.RoleAdmin,
			want:     Decision{Outcome: Redirect, Target: AdminLoginPath, Reason: ReasonUnauthenticated},
		},
		{
			name:     "no session on customer route goes to sign in",
			required: domain.RoleCustomer,
			want:     Decision{Outcome: Redirect, Target: UserLoginPath, Reason: ReasonUnauthenticated},
		},
		{
			name:     "no session on public route still needs sign in",
			required: PublicRequirement,
			want:     Decision{Outcome: Redirect, Target: UserLoginPath, Reason: ReasonUnauthenticated},
		},
		{
			name:     "customer on admin route goes home",
			required: domain.RoleAdmin,
			session:  sessionFor(domain.RoleCustomer),
			want:     Decision{Outcome: Redirect, Target: CustomerHomePath, Reason: ReasonWrongRole},
		},
		{
			name:     "admin on customer route goes to admin home",
			required: domain.RoleCustomer,
			session:  sessionFor(domain.RoleAdmin),
			want:     Decision{Outcome: Redirect, Target: AdminHomePath, Reason: ReasonWrongRole},
		},
		{
			name:     "provider on admin route goes to provider home",
			required: domain.RoleAdmin,
			session:  sessionFor(domain.RoleProvider),
			want:     Decision{Outcome: Redirect, Target: ProviderHomePath, Reason: ReasonWrongRole},
		},
		{
			name:     "matching role is allowed",
			required: domain.RoleAdmin,
			session:  sessionFor(domain.RoleAdmin),
			want:     Decision{Outcome: Allow},
		},
		{
			name:     "any session on public route is allowed",
			required: PublicRequirement,
			session:  sessionFor(domain.RoleStaff),
			want:     Decision{Outcome: Allow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.required, tt.session))
		})
	}
}

func TestAuthorize_EmptyTokenCountsAsNoSession(t *testing.T) {
	d := Authorize(domain.RoleAdmin, &domain.Session{Role: domain.RoleAdmin})
	assert.False(t, d.Allowed())
	assert.Equal(t, AdminLoginPath, d.Target)
}
