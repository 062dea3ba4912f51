package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/asklly/asklly/config"
	"github.com/asklly/asklly/internal/profile"
	"github.com/asklly/asklly/internal/version"
	"github.com/asklly/asklly/session"
	"github.com/asklly/asklly/store"
	"github.com/asklly/asklly/store/db"
)

// Demo identity, matching the seeded demo bot.
const (
	demoOrg    = "asklly"
	demoUID    = "ffb76919-3348-53d4-b6f2-203e92277db2"
	demoBotKey = "cx-odwb1gA9IRpgcVpk"
	demoQuery  = "Current dispute between thailand and combodia"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive terminal session against a local agent roster.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:       viper.GetString("mode"),
			Data:       viper.GetString("data"),
			Driver:     viper.GetString("driver"),
			DSN:        viper.GetString("dsn"),
			ConfigFile: viper.GetString("config"),
			Version:    version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}

		cfg, err := config.Load(instanceProfile.ConfigFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// The chat loop works without storage; persistence is best effort.
		var storeInstance *store.Store
		if dbDriver, err := db.NewDBDriver(instanceProfile); err != nil {
			slog.Warn("running without persistence", "error", err)
		} else {
			storeInstance = store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				slog.Warn("running without persistence", "error", err)
				storeInstance = nil
			} else {
				defer storeInstance.Close()
			}
		}

		manager := session.NewManager(session.ManagerConfig{
			Config:      cfg,
			Store:       storeInstance,
			BraveAPIKey: instanceProfile.BraveAPIKey,
			WorkDir:     instanceProfile.Data,
		})
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := manager.Shutdown(shutdownCtx); err != nil {
				slog.Warn("shutdown finished with errors", "error", err)
			}
		}()

		interaction, err := manager.CreateSession(ctx, session.CreateSessionOptions{
			BotKey: viper.GetString("chat.bot-key"),
		})
		if err != nil {
			return err
		}

		org := viper.GetString("chat.org")
		uid := viper.GetString("chat.uid")
		fmt.Printf("Session %s ready. Agents: %v\n", interaction.CID(), interaction.AgentTypes())
		fmt.Println(`Type a message, "demo" for the knowledge base demo, or "exit" to quit.`)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			case "demo":
				line = demoQuery
				fmt.Printf("(demo) %s\n", line)
			}

			interaction.SetQuery(line)
			go func() {
				if _, err := interaction.Think(ctx, org, uid); err != nil {
					slog.Error("turn failed", "error", err)
				}
			}()
			waitAndPrint(ctx, interaction)
		}
		return scanner.Err()
	},
}

// waitAndPrint polls the session until the answer is ready, then prints it
// with its sources.
func waitAndPrint(ctx context.Context, interaction *session.Interaction) {
	// Give the turn a moment to start before polling.
	time.Sleep(100 * time.Millisecond)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for interaction.IsGenerating() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	answer := interaction.LastAnswer()
	if answer == "" {
		fmt.Println("(no answer)")
		return
	}
	fmt.Printf("[%s] %s\n", interaction.CurrentAgentType(), answer)
	if sources := interaction.LastSources(); len(sources) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(sources, ", "))
	}
}

func init() {
	chatCmd.Flags().String("org", demoOrg, "organization the queries run under")
	chatCmd.Flags().String("uid", demoUID, "user id the queries run under")
	chatCmd.Flags().String("bot-key", demoBotKey, "bot key scoping knowledge base lookups")

	for _, flag := range []string{"org", "uid", "bot-key"} {
		if err := viper.BindPFlag("chat."+flag, chatCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(chatCmd)
}
