package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/attendantbot/attendant/internal/bot"
	"github.com/attendantbot/attendant/internal/setup"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// BotLogDir specifies where bot log files are stored by default.
const BotLogDir = "logs/bot_logs"

func main() {
	app := &cli.Command{
		Name:  "attendant",
		Usage: "Start the attendant Discord bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-dir",
				Value: BotLogDir,
				Usage: "Directory to store log files in",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Environment file with secrets",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, c.String("log-dir"), c.String("env-file"))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, logDir, envFile string) error {
	// Secrets may live in a local env file; a missing one is fine.
	_ = godotenv.Load(envFile)

	app, err := setup.InitializeApp(ctx, logDir)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	discordBot, err := bot.New(app)
	if err != nil {
		return err
	}

	if err := discordBot.Start(runCtx); err != nil {
		return err
	}

	app.Logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	cancel()
	discordBot.Close()
	return nil
}
