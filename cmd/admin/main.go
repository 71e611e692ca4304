// Command admin grants and revokes staff rights from the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"nodeback/internal/bootstrap"
	"nodeback/internal/config"
	"nodeback/internal/repository"
	"nodeback/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <email>   - Grant staff rights")
	fmt.Println("  go run ./cmd/admin demote <email>    - Revoke staff rights")
	fmt.Println("  go run ./cmd/admin list-staff        - List staff accounts")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	repos := repository.NewRepositories(db)
	users := service.NewUserService(repos.Users, service.NewFanout(nil, nil))
	ctx := context.Background()

	switch cmd := os.Args[1]; cmd {
	case "promote", "demote":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		user, err := users.SetStaff(ctx, os.Args[2], cmd == "promote")
		if err != nil {
			log.Fatalf("Failed to %s %s: %v", cmd, os.Args[2], err)
		}
		fmt.Printf("%s (ID: %d) staff=%t\n", user.Email, user.ID, user.IsStaff)

	case "list-staff":
		staff, err := users.ListStaff(ctx)
		if err != nil {
			log.Fatalf("Failed to list staff: %v", err)
		}
		if len(staff) == 0 {
			fmt.Println("No staff accounts found")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tACTIVE")
		for _, u := range staff {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", u.ID, u.Email, u.FullName(), u.IsActive)
		}
		_ = w.Flush()

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}
