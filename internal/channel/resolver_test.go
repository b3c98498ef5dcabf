package channel_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/channel"
	"github.com/veyra-chat/veyra/internal/permissions"
)

func TestChannel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Channel Suite")
}

type mockRoles struct {
	base    map[string]permissions.Permission
	roleIDs map[string][]string
	calls   int
}

func (m *mockRoles) BasePermissions(_ context.Context, _, userID string) (permissions.Permission, error) {
	m.calls++
	return m.base[userID], nil
}

func (m *mockRoles) RoleIDsForUser(_ context.Context, _, userID string) ([]string, error) {
	return m.roleIDs[userID], nil
}

type mockRepo struct {
	channels  map[string]*channel.Channel
	overrides map[string][]channel.Override
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		channels:  make(map[string]*channel.Channel),
		overrides: make(map[string][]channel.Override),
	}
}

func (m *mockRepo) Create(_ context.Context, ch *channel.Channel) error {
	cp := *ch
	m.channels[ch.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*channel.Channel, error) {
	if ch, ok := m.channels[id]; ok {
		cp := *ch
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepo) Update(_ context.Context, ch *channel.Channel) error {
	cp := *ch
	m.channels[ch.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	delete(m.channels, id)
	return nil
}

func (m *mockRepo) ListByServer(_ context.Context, serverID string) ([]channel.Channel, error) {
	var out []channel.Channel
	for _, ch := range m.channels {
		if ch.ServerID == serverID {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (m *mockRepo) UpsertOverride(_ context.Context, o *channel.Override) error {
	rows := m.overrides[o.ChannelID]
	for i := range rows {
		if rows[i].RoleID == o.RoleID {
			rows[i] = *o
			return nil
		}
	}
	m.overrides[o.ChannelID] = append(rows, *o)
	return nil
}

func (m *mockRepo) DeleteOverride(_ context.Context, channelID, roleID string) error {
	rows := m.overrides[channelID]
	kept := rows[:0]
	for _, row := range rows {
		if row.RoleID != roleID {
			kept = append(kept, row)
		}
	}
	m.overrides[channelID] = kept
	return nil
}

func (m *mockRepo) ListOverrides(_ context.Context, channelID string) ([]channel.Override, error) {
	return m.overrides[channelID], nil
}

func (m *mockRepo) DeleteOverridesForChannel(_ context.Context, channelID string) error {
	delete(m.overrides, channelID)
	return nil
}

var _ = Describe("Resolver", func() {
	const (
		serverID  = "srv-1"
		channelID = "chan-1"
		userID    = "user-1"
		roleID    = "role-1"
	)

	var (
		roles    *mockRoles
		repo     *mockRepo
		resolver *channel.Resolver
		ctx      context.Context
	)

	BeforeEach(func() {
		roles = &mockRoles{
			base:    map[string]permissions.Permission{userID: permissions.SendMessages | permissions.ConnectVoice},
			roleIDs: map[string][]string{userID: {roleID}},
		}
		repo = newMockRepo()
		repo.channels[channelID] = &channel.Channel{ID: channelID, ServerID: serverID, Name: "general", Type: channel.TypeText}
		resolver = channel.NewResolver(roles, repo, time.Minute, time.Minute)
		ctx = context.Background()
	})

	AfterEach(func() {
		resolver.Close()
	})

	It("applies deny before allow when narrowing to a channel", func() {
		repo.overrides[channelID] = []channel.Override{{
			ChannelID: channelID,
			RoleID:    roleID,
			Allow:     permissions.ManageMessages,
			Deny:      permissions.ConnectVoice,
		}}

		p, err := resolver.ChannelPermissions(ctx, serverID, channelID, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(permissions.SendMessages | permissions.ManageMessages))
	})

	It("passes the base through when no override matches the user's roles", func() {
		repo.overrides[channelID] = []channel.Override{{
			ChannelID: channelID,
			RoleID:    "someone-elses-role",
			Deny:      permissions.SendMessages,
		}}

		p, err := resolver.ChannelPermissions(ctx, serverID, channelID, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(permissions.SendMessages | permissions.ConnectVoice))
	})

	It("refuses a channel that belongs to a different server", func() {
		foreignChannel := "chan-foreign"
		repo.channels[foreignChannel] = &channel.Channel{
			ID: foreignChannel, ServerID: "srv-2", Name: "secret", Type: channel.TypeText,
		}

		_, err := resolver.ChannelPermissions(ctx, serverID, foreignChannel, userID)
		Expect(err).To(Equal(internal.ErrChannelNotFound))
	})

	It("serves repeated lookups from the cache", func() {
		_, err := resolver.ServerPermissions(ctx, serverID, userID)
		Expect(err).NotTo(HaveOccurred())
		_, err = resolver.ServerPermissions(ctx, serverID, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(roles.calls).To(Equal(1))
	})

	It("recomputes after the user's entries are invalidated", func() {
		_, err := resolver.ServerPermissions(ctx, serverID, userID)
		Expect(err).NotTo(HaveOccurred())

		roles.base[userID] = permissions.ReadMessages
		resolver.InvalidateUser(userID)

		p, err := resolver.ServerPermissions(ctx, serverID, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(permissions.ReadMessages))
	})

	It("recomputes a channel after its overrides are invalidated", func() {
		p, err := resolver.ChannelPermissions(ctx, serverID, channelID, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Has(permissions.SendMessages)).To(BeTrue())

		repo.overrides[channelID] = []channel.Override{{
			ChannelID: channelID,
			RoleID:    roleID,
			Deny:      permissions.SendMessages,
		}}
		resolver.InvalidateChannel(channelID)

		p, err = resolver.ChannelPermissions(ctx, serverID, channelID, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Has(permissions.SendMessages)).To(BeFalse())
	})

	It("leaves other users' entries alone on per-user invalidation", func() {
		otherID := "user-2"
		roles.base[otherID] = permissions.ReadMessages

		_, err := resolver.ServerPermissions(ctx, serverID, userID)
		Expect(err).NotTo(HaveOccurred())
		_, err = resolver.ServerPermissions(ctx, serverID, otherID)
		Expect(err).NotTo(HaveOccurred())
		callsBefore := roles.calls

		resolver.InvalidateUser(userID)

		_, err = resolver.ServerPermissions(ctx, serverID, otherID)
		Expect(err).NotTo(HaveOccurred())
		Expect(roles.calls).To(Equal(callsBefore))
	})
})

var _ = Describe("Override validation", func() {
	It("rejects overlapping allow and deny", func() {
		dto := channel.SetOverrideDTO{
			Allow: permissions.SendMessages,
			Deny:  permissions.SendMessages | permissions.Speak,
		}
		Expect(dto.Validate()).To(HaveOccurred())
	})

	It("rejects non-overridable bits", func() {
		dto := channel.SetOverrideDTO{Allow: permissions.BanMembers}
		Expect(dto.Validate()).To(HaveOccurred())

		dto = channel.SetOverrideDTO{Deny: permissions.Admin}
		Expect(dto.Validate()).To(HaveOccurred())
	})

	It("accepts a disjoint overridable pair", func() {
		dto := channel.SetOverrideDTO{
			Allow: permissions.ManageMessages,
			Deny:  permissions.Speak,
		}
		Expect(dto.Validate()).To(Succeed())
	})
})
