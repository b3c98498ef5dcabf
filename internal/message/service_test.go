package message_test

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/message"
	"github.com/veyra-chat/veyra/internal/permissions"
)

func TestMessage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Message Suite")
}

type mockRepo struct {
	messages map[string]*message.Message
}

func newMockRepo() *mockRepo {
	return &mockRepo{messages: make(map[string]*message.Message)}
}

func (m *mockRepo) Create(_ context.Context, msg *message.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*message.Message, error) {
	if msg, ok := m.messages[id]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepo) Update(_ context.Context, msg *message.Message) error {
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	delete(m.messages, id)
	return nil
}

func (m *mockRepo) ListByChannel(_ context.Context, channelID string, before time.Time, beforeID string, limit int) ([]message.Message, error) {
	var out []message.Message
	for _, msg := range m.messages {
		if msg.ChannelID != channelID {
			continue
		}
		older := msg.CreatedAt.Before(before)
		if beforeID != "" {
			older = older || (msg.CreatedAt.Equal(before) && msg.ID < beforeID)
		}
		if older {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockHub struct {
	events []string
}

func (m *mockHub) BroadcastToServer(_ string, op string, _ any) {
	m.events = append(m.events, op)
}

var _ = Describe("Message Service", func() {
	const (
		serverID  = "srv-1"
		channelID = "chan-1"
		authorID  = "user-author"
		otherID   = "user-other"
	)

	var (
		repo    *mockRepo
		hub     *mockHub
		service *message.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockRepo()
		hub = &mockHub{}
		service = message.NewService(repo, hub, slog.Default())
		ctx = context.Background()
	})

	send := func(content string) *message.Message {
		m, err := service.Create(ctx, serverID, channelID, authorID, message.CreateMessageDTO{Content: content})
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	Describe("Create", func() {
		It("stores the message and announces it", func() {
			m := send("hello")
			Expect(m.ID).NotTo(BeEmpty())
			Expect(hub.events).To(ContainElement("message_create"))
		})

		It("rejects blank content", func() {
			_, err := service.Create(ctx, serverID, channelID, authorID, message.CreateMessageDTO{Content: "   "})
			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).StatusCode).To(Equal(400))
		})
	})

	Describe("Update", func() {
		It("lets the author edit and stamps the edit time", func() {
			m := send("first")

			updated, err := service.Update(ctx, serverID, authorID, m.ID, message.UpdateMessageDTO{Content: "second"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Content).To(Equal("second"))
			Expect(updated.EditedAt).NotTo(BeNil())
		})

		It("refuses anyone but the author, moderators included", func() {
			m := send("first")

			_, err := service.Update(ctx, serverID, otherID, m.ID, message.UpdateMessageDTO{Content: "hijack"})
			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).StatusCode).To(Equal(403))
		})
	})

	Describe("Delete", func() {
		It("lets the author delete without any permission bits", func() {
			m := send("oops")
			Expect(service.Delete(ctx, serverID, authorID, 0, m.ID)).To(Succeed())
			Expect(repo.messages).To(BeEmpty())
		})

		It("lets a holder of ManageMessages delete someone else's message", func() {
			m := send("spam")
			Expect(service.Delete(ctx, serverID, otherID, permissions.ManageMessages, m.ID)).To(Succeed())
		})

		It("refuses a bystander without ManageMessages", func() {
			m := send("keep me")
			err := service.Delete(ctx, serverID, otherID, permissions.SendMessages, m.ID)
			Expect(err).To(Equal(internal.ErrInsufficientPermissions))
		})

		It("announces the deletion", func() {
			m := send("bye")
			Expect(service.Delete(ctx, serverID, authorID, 0, m.ID)).To(Succeed())
			Expect(hub.events).To(ContainElement("message_delete"))
		})
	})

	Describe("List", func() {
		It("pages newest first with a before cursor", func() {
			for i, content := range []string{"one", "two", "three"} {
				m := send(content)
				repo.messages[m.ID].CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
			}

			page, err := service.List(ctx, serverID, channelID, message.ListMessagesQuery{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(2))
			Expect(page[0].Content).To(Equal("three"))

			older, err := service.List(ctx, serverID, channelID, message.ListMessagesQuery{Before: page[1].ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(older).To(HaveLen(1))
			Expect(older[0].Content).To(Equal("one"))
		})

		It("does not skip messages that share the cursor's timestamp", func() {
			stamp := time.Now().Truncate(time.Second)
			for _, content := range []string{"a", "b", "c"} {
				m := send(content)
				repo.messages[m.ID].CreatedAt = stamp
			}

			page, err := service.List(ctx, serverID, channelID, message.ListMessagesQuery{Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(1))

			seen := map[string]bool{page[0].Content: true}
			cursor := page[0].ID
			for i := 0; i < 2; i++ {
				page, err = service.List(ctx, serverID, channelID, message.ListMessagesQuery{Limit: 1, Before: cursor})
				Expect(err).NotTo(HaveOccurred())
				Expect(page).To(HaveLen(1))
				seen[page[0].Content] = true
				cursor = page[0].ID
			}
			Expect(seen).To(HaveLen(3))
		})

		It("hides a message when queried through the wrong server", func() {
			m := send("tenant-bound")
			_, err := service.Update(ctx, "srv-other", authorID, m.ID, message.UpdateMessageDTO{Content: "x"})
			Expect(err).To(Equal(internal.ErrMessageNotFound))
		})
	})
})
