package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/telegram"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the clarification dialogue as a Telegram bot",
	Long: `Long-polls Telegram for updates. Send the bot a photo, then ask about it; when
a question is ambiguous the bot offers the candidates as buttons. The token
comes from telegram.token or TELEGRAM_BOT_TOKEN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		token := a.cfg.TelegramToken()
		if token == "" {
			return fmt.Errorf("telegram token is required: set telegram.token or TELEGRAM_BOT_TOKEN")
		}
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return fmt.Errorf("connecting to telegram: %w", err)
		}
		api.Debug = verbose

		logger.Info("telegram bot started", zap.String("username", api.Self.UserName))

		bot := telegram.New(api, a.svc, a.extractor, telegram.Config{
			PollTimeout: a.cfg.Telegram.PollTimeout,
			Logger:      logger,
		})
		return bot.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)
}
