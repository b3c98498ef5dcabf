package postgres_test

import (
	"context"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
	"github.com/veyra-chat/veyra/internal/role"
	rolePostgres "github.com/veyra-chat/veyra/internal/role/postgres"
	"github.com/veyra-chat/veyra/internal/server"
	serverPostgres "github.com/veyra-chat/veyra/internal/server/postgres"
	"github.com/veyra-chat/veyra/internal/user"
)

func TestServerPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Postgres Suite")
}

type nopHub struct{}

func (nopHub) BroadcastToServer(string, string, any)  {}
func (nopHub) BroadcastToUsers([]string, string, any) {}
func (nopHub) Subscribe(string, string)               {}
func (nopHub) Unsubscribe(string, string)             {}
func (nopHub) DisconnectUser(string)                  {}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateUser(string) {}
func (nopInvalidator) InvalidateAll()        {}

var _ = Describe("Server Service with SQLite-backed repositories", func() {
	var (
		db          *gorm.DB
		svc         *server.Service
		roleService *role.Service
		ctx         context.Context
	)

	const (
		ownerID  = "00000000-0000-0000-0000-000000000001"
		memberID = "00000000-0000-0000-0000-000000000002"
		otherID  = "00000000-0000-0000-0000-000000000003"
	)

	BeforeEach(func() {
		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&user.User{}, &server.Server{}, &server.Membership{},
			&server.Ban{}, &role.Role{}, &role.Assignment{})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{ownerID, memberID, otherID} {
			Expect(db.Create(&user.User{ID: id, Username: "u-" + id[len(id)-1:], PasswordHash: "x"}).Error).
				NotTo(HaveOccurred())
		}

		lg := slog.Default()
		serverRepo := serverPostgres.NewRepository(db)
		roleService = role.NewService(rolePostgres.NewRepository(db), serverRepo, nopHub{}, nopInvalidator{}, lg)
		svc = server.NewService(serverRepo, roleService, nopHub{}, nopInvalidator{}, lg)
		ctx = context.Background()
	})

	createServer := func(inviteRequired bool) *server.Server {
		srv, err := svc.Create(ctx, ownerID, server.CreateServerDTO{
			Name:           "test server",
			InviteRequired: inviteRequired,
		})
		Expect(err).NotTo(HaveOccurred())
		return srv
	}

	Describe("Create", func() {
		It("provisions the owner membership and both seed roles", func() {
			srv := createServer(false)

			member, err := svc.IsMember(ctx, srv.ID, ownerID)
			Expect(err).NotTo(HaveOccurred())
			Expect(member).To(BeTrue())

			roles, err := roleService.List(ctx, srv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(2))

			base, err := roleService.BasePermissions(ctx, srv.ID, ownerID)
			Expect(err).NotTo(HaveOccurred())
			Expect(base.Has(permissions.Admin)).To(BeTrue())
		})

		It("resolves zero permissions for a user who never joined", func() {
			srv := createServer(false)

			roles, err := roleService.RolesForUser(ctx, srv.ID, otherID)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(BeEmpty())

			base, err := roleService.BasePermissions(ctx, srv.ID, otherID)
			Expect(err).NotTo(HaveOccurred())
			Expect(base).To(BeZero())
		})
	})

	Describe("membership ordering", func() {
		It("appends each new membership at the end of the user's server list", func() {
			first := createServer(false)
			second := createServer(false)

			Expect(svc.Join(ctx, first.ID, memberID, server.JoinServerDTO{})).To(Succeed())
			Expect(svc.Join(ctx, second.ID, memberID, server.JoinServerDTO{})).To(Succeed())

			// Use a fresh struct per lookup: gorm treats primary-key fields
			// already set on the destination as extra query conditions.
			var m1, m2 server.Membership
			Expect(db.First(&m1, "server_id = ? AND user_id = ?", first.ID, memberID).Error).NotTo(HaveOccurred())
			Expect(m1.Position).To(Equal(0))
			Expect(db.First(&m2, "server_id = ? AND user_id = ?", second.ID, memberID).Error).NotTo(HaveOccurred())
			Expect(m2.Position).To(Equal(1))

			srvs, err := svc.ListForUser(ctx, memberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(srvs).To(HaveLen(2))
			Expect(srvs[0].ID).To(Equal(first.ID))
			Expect(srvs[1].ID).To(Equal(second.ID))
		})
	})

	Describe("Join", func() {
		It("admits anyone to an open server", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
		})

		It("requires the matching invite code on a closed server", func() {
			srv := createServer(true)

			err := svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{InviteCode: "wrong"})
			Expect(err).To(Equal(internal.ErrInviteRequired))

			code, err := svc.Invite(ctx, srv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{InviteCode: code})).To(Succeed())
		})

		It("rejects a banned user even with a valid invite code", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
			Expect(svc.Ban(ctx, srv.ID, ownerID, memberID, server.BanDTO{Reason: "spam"})).To(Succeed())

			err := svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})
			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).StatusCode).To(Equal(403))
		})

		It("rejects a double join", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Equal(internal.ErrAlreadyMember))
		})
	})

	Describe("Kick and Ban", func() {
		It("lets the owner kick a plain member", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())

			Expect(svc.Kick(ctx, srv.ID, ownerID, memberID)).To(Succeed())
			member, err := svc.IsMember(ctx, srv.ID, memberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(member).To(BeFalse())
		})

		It("refuses a kick when the actor does not outrank the target", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
			Expect(svc.Join(ctx, srv.ID, otherID, server.JoinServerDTO{})).To(Succeed())

			Expect(svc.Kick(ctx, srv.ID, memberID, otherID)).To(Equal(internal.ErrRoleHierarchy))
		})

		It("never allows targeting the owner", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())

			err := svc.Kick(ctx, srv.ID, memberID, ownerID)
			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).StatusCode).To(Equal(403))
		})

		It("clears the ban on unban so the user can rejoin", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
			Expect(svc.Ban(ctx, srv.ID, ownerID, memberID, server.BanDTO{})).To(Succeed())

			Expect(svc.Unban(ctx, srv.ID, memberID)).To(Succeed())
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
		})
	})

	Describe("Leave", func() {
		It("refuses the owner leaving their own server", func() {
			srv := createServer(false)
			err := svc.Leave(ctx, srv.ID, ownerID)
			Expect(err).To(HaveOccurred())
			Expect(err.(*internal.AppError).StatusCode).To(Equal(400))
		})

		It("removes a plain member", func() {
			srv := createServer(false)
			Expect(svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{})).To(Succeed())
			Expect(svc.Leave(ctx, srv.ID, memberID)).To(Succeed())

			member, err := svc.IsMember(ctx, srv.ID, memberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(member).To(BeFalse())
		})
	})

	Describe("Invite rotation", func() {
		It("replaces the code so the old one stops working", func() {
			srv := createServer(true)
			oldCode, err := svc.Invite(ctx, srv.ID)
			Expect(err).NotTo(HaveOccurred())

			newCode, err := svc.RotateInvite(ctx, srv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(newCode).NotTo(Equal(oldCode))

			err = svc.Join(ctx, srv.ID, memberID, server.JoinServerDTO{InviteCode: oldCode})
			Expect(err).To(Equal(internal.ErrInviteRequired))
		})
	})
})
