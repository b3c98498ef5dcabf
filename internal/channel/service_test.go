package channel_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/veyra-chat/veyra/internal/channel"
	"github.com/veyra-chat/veyra/internal/permissions"
)

type mockHub struct {
	events []string
}

func (m *mockHub) BroadcastToServer(_ string, op string, _ any) {
	m.events = append(m.events, op)
}

var _ = Describe("Channel Service", func() {
	const serverID = "srv-1"

	var (
		repo     *mockRepo
		hub      *mockHub
		service  *channel.Service
		resolver *channel.Resolver
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockRepo()
		hub = &mockHub{}
		roles := &mockRoles{
			base:    map[string]permissions.Permission{},
			roleIDs: map[string][]string{},
		}
		resolver = channel.NewResolver(roles, repo, time.Minute, time.Minute)
		service = channel.NewService(repo, hub, resolver, slog.Default())
		ctx = context.Background()
	})

	AfterEach(func() {
		resolver.Close()
	})

	It("stores the category a channel is created under", func() {
		ch, err := service.Create(ctx, serverID, channel.CreateChannelDTO{
			Name:     "announcements",
			Type:     channel.TypeText,
			Category: "Information",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ch.Category).To(Equal("Information"))

		stored, err := service.Get(ctx, serverID, ch.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Category).To(Equal("Information"))
	})

	It("moves a channel between categories on update", func() {
		ch, err := service.Create(ctx, serverID, channel.CreateChannelDTO{
			Name:     "general",
			Type:     channel.TypeText,
			Category: "Text Channels",
		})
		Expect(err).NotTo(HaveOccurred())

		archive := "Archive"
		updated, err := service.Update(ctx, serverID, ch.ID, channel.UpdateChannelDTO{Category: &archive})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Category).To(Equal("Archive"))
		Expect(hub.events).To(ContainElement("channel_update"))
	})

	It("leaves a channel ungrouped when no category is given", func() {
		ch, err := service.Create(ctx, serverID, channel.CreateChannelDTO{
			Name: "random",
			Type: channel.TypeText,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ch.Category).To(BeEmpty())
	})
})
