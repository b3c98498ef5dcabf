package role_test

import (
	"context"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
	"github.com/veyra-chat/veyra/internal/role"
)

func TestRole(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Role Suite")
}

type mockRepo struct {
	roles       map[string]*role.Role
	assignments []role.Assignment
}

func newMockRepo() *mockRepo {
	return &mockRepo{roles: make(map[string]*role.Role)}
}

func (m *mockRepo) Create(_ context.Context, r *role.Role) error {
	cp := *r
	m.roles[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*role.Role, error) {
	if r, ok := m.roles[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepo) Update(_ context.Context, r *role.Role) error {
	cp := *r
	m.roles[r.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	delete(m.roles, id)
	return nil
}

func (m *mockRepo) ListByServer(_ context.Context, serverID string) ([]role.Role, error) {
	var out []role.Role
	for _, r := range m.roles {
		if r.ServerID == serverID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRepo) Assign(_ context.Context, a *role.Assignment) error {
	m.assignments = append(m.assignments, *a)
	return nil
}

func (m *mockRepo) Unassign(_ context.Context, roleID, userID string) error {
	kept := m.assignments[:0]
	for _, a := range m.assignments {
		if a.RoleID != roleID || a.UserID != userID {
			kept = append(kept, a)
		}
	}
	m.assignments = kept
	return nil
}

func (m *mockRepo) UnassignAll(_ context.Context, roleID string) error {
	kept := m.assignments[:0]
	for _, a := range m.assignments {
		if a.RoleID != roleID {
			kept = append(kept, a)
		}
	}
	m.assignments = kept
	return nil
}

func (m *mockRepo) RolesForUser(_ context.Context, serverID, userID string) ([]role.Role, error) {
	var out []role.Role
	for _, a := range m.assignments {
		if a.ServerID != serverID || a.UserID != userID {
			continue
		}
		if r, ok := m.roles[a.RoleID]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockMembers struct {
	members map[string]bool
}

func newMockMembers() *mockMembers {
	return &mockMembers{members: make(map[string]bool)}
}

func (m *mockMembers) join(serverID, userID string) {
	m.members[serverID+":"+userID] = true
}

func (m *mockMembers) IsMember(_ context.Context, serverID, userID string) (bool, error) {
	return m.members[serverID+":"+userID], nil
}

type mockHub struct {
	events []string
}

func (m *mockHub) BroadcastToServer(_ string, op string, _ any) {
	m.events = append(m.events, op)
}

type mockInvalidator struct {
	users   []string
	flushes int
}

func (m *mockInvalidator) InvalidateUser(userID string) { m.users = append(m.users, userID) }
func (m *mockInvalidator) InvalidateAll()               { m.flushes++ }

var _ = Describe("Role Service", func() {
	const (
		serverID = "srv-1"
		ownerID  = "user-owner"
		modID    = "user-mod"
		plainID  = "user-plain"
	)

	var (
		repo        *mockRepo
		members     *mockMembers
		hub         *mockHub
		invalidator *mockInvalidator
		service     *role.Service
		ctx         context.Context
		modRoleID   string
	)

	findByName := func(name string) *role.Role {
		for _, r := range repo.roles {
			if r.ServerID == serverID && r.Name == name {
				return r
			}
		}
		return nil
	}

	BeforeEach(func() {
		repo = newMockRepo()
		members = newMockMembers()
		members.join(serverID, ownerID)
		members.join(serverID, modID)
		members.join(serverID, plainID)
		hub = &mockHub{}
		invalidator = &mockInvalidator{}
		service = role.NewService(repo, members, hub, invalidator, slog.Default())
		ctx = context.Background()

		Expect(service.ProvisionNewServer(ctx, serverID, ownerID)).To(Succeed())

		mod, err := service.Create(ctx, serverID, ownerID, role.CreateRoleDTO{
			Name:     "moderator",
			Position: 10,
			Permissions: permissions.KickMembers | permissions.ManageRoles |
				permissions.ReadMessages | permissions.SendMessages,
		})
		Expect(err).NotTo(HaveOccurred())
		modRoleID = mod.ID
		Expect(service.Assign(ctx, serverID, ownerID, modRoleID, modID)).To(Succeed())
	})

	Describe("ProvisionNewServer", func() {
		It("creates the owner and default roles", func() {
			owner := findByName(role.OwnerRoleName)
			Expect(owner).NotTo(BeNil())
			Expect(owner.IsOwner).To(BeTrue())
			Expect(owner.Permissions).To(Equal(permissions.All))

			def := findByName(role.DefaultRoleName)
			Expect(def).NotTo(BeNil())
			Expect(def.IsDefault).To(BeTrue())
			Expect(def.Position).To(BeZero())
		})

		It("grants the default role implicitly to every member", func() {
			base, err := service.BasePermissions(ctx, serverID, plainID)
			Expect(err).NotTo(HaveOccurred())
			Expect(base.Has(permissions.SendMessages)).To(BeTrue())
			Expect(base.Has(permissions.ReadMessages)).To(BeTrue())
			Expect(base.Has(permissions.KickMembers)).To(BeFalse())
		})

		It("grants nothing to a user who is not a member", func() {
			roles, err := service.RolesForUser(ctx, serverID, "user-outsider")
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(BeEmpty())

			base, err := service.BasePermissions(ctx, serverID, "user-outsider")
			Expect(err).NotTo(HaveOccurred())
			Expect(base).To(BeZero())
		})

		It("withdraws the default role when membership ends", func() {
			members.members = make(map[string]bool)

			base, err := service.BasePermissions(ctx, serverID, plainID)
			Expect(err).NotTo(HaveOccurred())
			Expect(base).To(BeZero())
		})
	})

	Describe("EditableRoles", func() {
		It("lists only roles strictly below the actor, highest first", func() {
			_, err := service.Create(ctx, serverID, ownerID, role.CreateRoleDTO{
				Name: "helper", Position: 5, Permissions: permissions.SendMessages,
			})
			Expect(err).NotTo(HaveOccurred())
			senior, err := service.Create(ctx, serverID, ownerID, role.CreateRoleDTO{
				Name: "senior-mod", Position: 20, Permissions: permissions.KickMembers,
			})
			Expect(err).NotTo(HaveOccurred())

			editable, err := service.EditableRoles(ctx, serverID, modID)
			Expect(err).NotTo(HaveOccurred())
			Expect(editable).To(HaveLen(1))
			Expect(editable[0].Name).To(Equal("helper"))

			editable, err = service.EditableRoles(ctx, serverID, ownerID)
			Expect(err).NotTo(HaveOccurred())
			Expect(editable).To(HaveLen(3))
			Expect(editable[0].ID).To(Equal(senior.ID))
			Expect(editable[1].ID).To(Equal(modRoleID))
			Expect(editable[2].Name).To(Equal("helper"))
		})

		It("never offers the default or owner roles", func() {
			editable, err := service.EditableRoles(ctx, serverID, ownerID)
			Expect(err).NotTo(HaveOccurred())
			for _, r := range editable {
				Expect(r.IsDefault).To(BeFalse())
				Expect(r.IsOwner).To(BeFalse())
			}
		})
	})

	Describe("hierarchy", func() {
		It("refuses creating a role at or above the actor's highest", func() {
			_, err := service.Create(ctx, serverID, modID, role.CreateRoleDTO{
				Name: "usurper", Position: 10, Permissions: permissions.SendMessages,
			})
			Expect(err).To(Equal(internal.ErrRoleHierarchy))
		})

		It("lets the actor create roles strictly below their highest", func() {
			_, err := service.Create(ctx, serverID, modID, role.CreateRoleDTO{
				Name: "helper", Position: 5, Permissions: permissions.SendMessages,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses editing a role at the actor's own position", func() {
			newName := "renamed"
			_, err := service.Update(ctx, serverID, modID, modRoleID, role.UpdateRoleDTO{Name: &newName})
			Expect(err).To(Equal(internal.ErrRoleHierarchy))
		})

		It("reports the owner as outranking everyone", func() {
			ok, err := service.CanActOn(ctx, serverID, ownerID, modID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = service.CanActOn(ctx, serverID, modID, ownerID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("treats equal ranks as unactionable in both directions", func() {
			otherModID := "user-mod2"
			members.join(serverID, otherModID)
			Expect(service.Assign(ctx, serverID, ownerID, modRoleID, otherModID)).To(Succeed())

			ok, err := service.CanActOn(ctx, serverID, modID, otherModID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("permission escalation", func() {
		It("refuses granting bits the actor does not hold", func() {
			_, err := service.Create(ctx, serverID, modID, role.CreateRoleDTO{
				Name: "sneaky", Position: 5, Permissions: permissions.BanMembers,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).StatusCode).To(Equal(403))
		})

		It("lets an Admin holder grant anything", func() {
			adminRole, err := service.Create(ctx, serverID, ownerID, role.CreateRoleDTO{
				Name: "admin", Position: 20, Permissions: permissions.Admin,
			})
			Expect(err).NotTo(HaveOccurred())
			adminID := "user-admin"
			members.join(serverID, adminID)
			Expect(service.Assign(ctx, serverID, ownerID, adminRole.ID, adminID)).To(Succeed())

			_, err = service.Create(ctx, serverID, adminID, role.CreateRoleDTO{
				Name: "granted", Position: 5, Permissions: permissions.BanMembers | permissions.ManageChannels,
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("protected roles", func() {
		It("refuses deleting the default role", func() {
			def := findByName(role.DefaultRoleName)
			Expect(service.Delete(ctx, serverID, ownerID, def.ID)).To(Equal(internal.ErrProtectedRole))
		})

		It("refuses any edit to the owner role", func() {
			owner := findByName(role.OwnerRoleName)
			perms := permissions.SendMessages
			_, err := service.Update(ctx, serverID, ownerID, owner.ID, role.UpdateRoleDTO{Permissions: &perms})
			Expect(err).To(Equal(internal.ErrProtectedRole))
		})

		It("allows changing the default role's permissions but not its position", func() {
			def := findByName(role.DefaultRoleName)

			perms := permissions.ReadMessages
			_, err := service.Update(ctx, serverID, ownerID, def.ID, role.UpdateRoleDTO{Permissions: &perms})
			Expect(err).NotTo(HaveOccurred())

			pos := 50
			_, err = service.Update(ctx, serverID, ownerID, def.ID, role.UpdateRoleDTO{Position: &pos})
			Expect(err).To(Equal(internal.ErrProtectedRole))
		})

		It("refuses assigning the owner role", func() {
			owner := findByName(role.OwnerRoleName)
			Expect(service.Assign(ctx, serverID, ownerID, owner.ID, plainID)).To(Equal(internal.ErrProtectedRole))
		})
	})

	Describe("cache invalidation", func() {
		It("flushes everything when a role's bits change", func() {
			perms := permissions.ReadMessages
			def := findByName(role.DefaultRoleName)
			_, err := service.Update(ctx, serverID, ownerID, def.ID, role.UpdateRoleDTO{Permissions: &perms})
			Expect(err).NotTo(HaveOccurred())
			Expect(invalidator.flushes).To(BeNumerically(">", 0))
		})

		It("invalidates only the target on assignment changes", func() {
			Expect(service.Unassign(ctx, serverID, ownerID, modRoleID, modID)).To(Succeed())
			Expect(invalidator.users).To(ContainElement(modID))
			Expect(invalidator.flushes).To(BeZero())
		})
	})

	Describe("events", func() {
		It("announces lifecycle changes to the server", func() {
			Expect(hub.events).To(ContainElements("role_create", "role_assign"))

			helper, err := service.Create(ctx, serverID, ownerID, role.CreateRoleDTO{
				Name: "helper", Position: 5, Permissions: permissions.SendMessages,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Delete(ctx, serverID, ownerID, helper.ID)).To(Succeed())
			Expect(hub.events).To(ContainElement("role_delete"))
		})
	})
})
