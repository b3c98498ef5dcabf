package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/veyra-chat/veyra/internal/auth"
	"github.com/veyra-chat/veyra/internal/channel"
	channelpg "github.com/veyra-chat/veyra/internal/channel/postgres"
	"github.com/veyra-chat/veyra/internal/role"
	rolepg "github.com/veyra-chat/veyra/internal/role/postgres"
	"github.com/veyra-chat/veyra/internal/server"
	serverpg "github.com/veyra-chat/veyra/internal/server/postgres"
	userpg "github.com/veyra-chat/veyra/internal/user/postgres"
)

// nopHub satisfies the broadcast interfaces during seeding, when no gateway
// is running.
type nopHub struct{}

func (nopHub) BroadcastToServer(string, string, any)  {}
func (nopHub) BroadcastToUsers([]string, string, any) {}
func (nopHub) BroadcastToAll(string, any)             {}
func (nopHub) Subscribe(string, string)              {}
func (nopHub) Unsubscribe(string, string)            {}
func (nopHub) DisconnectUser(string)                 {}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateUser(string) {}
func (nopInvalidator) InvalidateAll()        {}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"messages", "channel_overrides", "channels",
				"role_assignments", "roles", "bans", "memberships", "servers", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		ctx := context.Background()
		lg := slog.Default()

		userRepo := userpg.NewRepository(db)
		tokens := auth.NewJWTTokenGenerator(
			cfg.Security.AccessTokenSecret, cfg.Security.RefreshTokenSecret,
			cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration)
		authService := auth.NewService(userRepo, tokens, lg)

		hub := nopHub{}
		channelRepo := channelpg.NewRepository(db)
		serverRepo := serverpg.NewRepository(db)
		roleService := role.NewService(rolepg.NewRepository(db), serverRepo, hub, nopInvalidator{}, lg)
		serverService := server.NewService(serverRepo, roleService, hub, nopInvalidator{}, lg)
		resolver := channel.NewResolver(roleService, channelRepo, resolverTTL, resolverSweepInterval)
		defer resolver.Close()
		channelService := channel.NewService(channelRepo, hub, resolver, lg)

		admin, err := authService.Register(ctx, auth.RegisterDTO{Username: "admin", Password: "password123"})
		if err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
		fmt.Println("Seeded user: admin")

		if _, err := authService.Register(ctx, auth.RegisterDTO{Username: "demo", Password: "password123"}); err != nil {
			log.Fatalf("failed to seed demo user: %v", err)
		}
		fmt.Println("Seeded user: demo")

		srv, err := serverService.Create(ctx, admin.ID, server.CreateServerDTO{Name: "Veyra HQ"})
		if err != nil {
			log.Fatalf("failed to seed server: %v", err)
		}
		fmt.Println("Seeded server:", srv.Name)

		for _, ch := range []channel.CreateChannelDTO{
			{Name: "general", Type: channel.TypeText},
			{Name: "random", Type: channel.TypeText, Position: 1},
			{Name: "voice-lounge", Type: channel.TypeVoice, Position: 2},
		} {
			if _, err := channelService.Create(ctx, srv.ID, ch); err != nil {
				log.Fatalf("failed to seed channel %s: %v", ch.Name, err)
			}
			fmt.Println("Seeded channel:", ch.Name)
		}
	},
}
