// Command main populates the socialnet database with demo data.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/middleware"
	"socialnet/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	postsPerUser := flag.Int("posts", defaults.PostsPerUser, "Posts per user")
	friendsPerUser := flag.Int("friends", defaults.FriendsPerUser, "Friend requests sent by each user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the demo password at minimum bcrypt cost")
	randSeed := flag.Int64("seed", defaults.RandSeed, "Random seed for generated data")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating random data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := middleware.NewLogger(cfg.Env, os.Stdout)

	ctx := context.Background()
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		logger.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.PostsPerUser = *postsPerUser
	opts.FriendsPerUser = *friendsPerUser
	opts.Clean = *shouldClean
	opts.FastHash = *fast
	opts.RandSeed = *randSeed
	s := seed.NewSeeder(db, opts, logger)

	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			logger.Error("failed to load fixture", slog.String("path", *fixture), slog.String("error", err.Error()))
			os.Exit(1)
		}
		users, err := s.ApplyFixture(ctx, fx)
		if err != nil {
			logger.Error("fixture seeding failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("fixture applied", slog.String("path", *fixture), slog.Int("users", len(users)))
		return
	}

	summary, err := s.Seed(ctx)
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("database seeded",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("likes", summary.Likes),
		slog.Int("friendships", summary.Friendships),
		slog.String("password", seed.DemoPassword))
}
