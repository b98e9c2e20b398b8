package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/bot"
	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/bookwyrm/bookwyrm/internal/setup"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
	// CLILogDir specifies where logs of one-off commands are stored.
	CLILogDir = "logs/cli_logs"
	// shutdownTimeout bounds the graceful shutdown.
	shutdownTimeout = 15 * time.Second
)

var ErrMessageIDRequired = errors.New("MESSAGE_ID argument required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:   "bookwyrm",
		Usage:  "Guild bot tracking reward submissions and game postings",
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connect to Discord and start the daily digest",
				Action: runBot,
			},
			migrateCommand(),
			{
				Name:  "digest",
				Usage: "Post the rewards digest once and exit",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:    "channel",
						Aliases: []string{"c"},
						Usage:   "Channel to post to instead of the discussion channel",
					},
					&cli.BoolFlag{
						Name:  "no-ping",
						Usage: "Do not mention the configured roles",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withREST(ctx, func(app *setup.App, sink *bot.Sink) error {
						digester := bot.NewDigester(&app.Config.Bot, app.Submissions, sink, app.Logger)
						return digester.Deliver(ctx, rewards.DigestOptions{
							Destination: c.Uint("channel"),
							NoPing:      c.Bool("no-ping"),
						})
					})
				},
			},
			{
				Name:      "untrack",
				Usage:     "Stop tracking a reward submission",
				ArgsUsage: "MESSAGE_ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrMessageIDRequired
					}

					messageID, err := snowflake.Parse(c.Args().First())
					if err != nil {
						return fmt.Errorf("invalid message id: %w", err)
					}

					return withREST(ctx, func(app *setup.App, sink *bot.Sink) error {
						controller := rewards.NewController(app.Submissions, sink,
							app.Config.Bot.Rewards.ChannelID, app.Config.Bot.Discord.OwnerIDs, app.Logger)

						submission, err := controller.ForceUntrack(ctx, uint64(messageID))
						if err != nil {
							return err
						}

						app.Logger.Info("Untracked reward submission",
							zap.Uint64("messageID", submission.MessageID),
							zap.String("title", submission.QuestTitle))
						return nil
					})
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runBot connects to Discord and runs the digest scheduler until interrupted.
func runBot(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	location, err := app.Config.Bot.Rewards.Location()
	if err != nil {
		return err
	}

	discordBot, err := bot.New(&app.Config.Bot, bot.Stores{
		Submissions: app.Submissions,
		Games:       app.Games,
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	scheduler := rewards.NewScheduler(discordBot.Digester(), app.Config.Bot.Rewards.DigestHour, location, app.Logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := discordBot.Start(gctx); err != nil {
			return fmt.Errorf("failed to start bot: %w", err)
		}

		app.Logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	err = g.Wait()

	// Handlers are stopped first, the gateway gets a bounded time to close
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	discordBot.Close(shutdownCtx)

	return err
}

// withREST runs fn with the application and a REST-only sink.
func withREST(ctx context.Context, fn func(app *setup.App, sink *bot.Sink) error) error {
	app, err := setup.InitializeApp(ctx, CLILogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	client := rest.NewClient(app.Config.Bot.Discord.Token, bot.RESTOptions(&app.Config.Bot)...)
	defer client.Close(ctx)

	return fn(app, bot.NewSink(rest.New(client)))
}
