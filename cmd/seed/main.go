// Command seed fills the database with demo users, posts and activity.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"nodeback/internal/bootstrap"
	"nodeback/internal/config"
	"nodeback/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	opts := defaults
	flag.IntVar(&opts.NumUsers, "users", defaults.NumUsers, "number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", defaults.PostsPerUser, "posts per user")
	flag.IntVar(&opts.FollowsPerUser, "follows", defaults.FollowsPerUser, "accounts each user follows")
	flag.Float64Var(&opts.LikeRate, "like-rate", defaults.LikeRate, "chance a user likes a given post")
	flag.Float64Var(&opts.CommentRate, "comment-rate", defaults.CommentRate, "chance a user comments on a given post")
	flag.IntVar(&opts.MaxDays, "days", defaults.MaxDays, "spread post timestamps over this many days")
	flag.Int64Var(&opts.RandSeed, "rand-seed", 0, "fixed random seed for reproducible data (0 picks one)")
	flag.BoolVar(&opts.FastHash, "fast-hash", true, "hash the shared password with the minimum bcrypt cost")
	flag.BoolVar(&opts.ShouldClean, "clean", false, "delete existing rows before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to initialize runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := seed.NewSeeder(db, opts)
	if err != nil {
		log.Fatalf("failed to create seeder: %v", err)
	}
	sum, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	log.Printf("seeded %d users, %d posts, %d follows, %d likes, %d comments",
		sum.Users, sum.Posts, sum.Follows, sum.Likes, sum.Comments)
	log.Printf("every seeded account uses the password %q", seed.DefaultPassword)
}
