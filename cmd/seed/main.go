// Command seed populates the database with demo users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts, replies and reposts to create")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Maximum accounts each user follows")
	likes := flag.Int("likes", defaults.LikesPerPost, "Maximum likes per post")
	days := flag.Int("days", defaults.Days, "Spread post timestamps over this many days")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	shouldClean := flag.Bool("clean", false, "Delete all existing rows before seeding (refused in production)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *shouldClean && cfg.IsProduction() {
		log.Fatalf("Refusing to clean a %s database", cfg.Env)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, *randSeed)
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	opts := defaults
	opts.Users = *numUsers
	opts.Posts = *numPosts
	opts.FollowsPerUser = *follows
	opts.LikesPerPost = *likes
	opts.Days = *days

	summary, err := s.Seed(ctx, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d posts (%d replies, %d reposts), %d follows, %d likes in %s",
		summary.Users, summary.Posts, summary.Replies, summary.Reposts, summary.Follows, summary.Likes, summary.Duration)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
