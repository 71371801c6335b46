// Command admin is a small maintenance CLI for operators: change a complaint
// status, inspect the undelivered queue, or put a message back on it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cityhelper/backend/internal/models"
	"cityhelper/backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	repo := storage.NewService(db)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: set-status <complaint_id> <status>, undelivered, requeue <message_id>")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "set-status":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin set-status <complaint_id> <status>")
			os.Exit(1)
		}
		id := parseID(os.Args[2])
		status := os.Args[3]
		if !models.KnownStatus(status) {
			fmt.Printf("Unknown status %q\n", status)
			os.Exit(1)
		}
		if err := repo.SetComplaintStatus(ctx, id, status); err != nil {
			log.Fatalf("Error setting status: %v", err)
		}
		fmt.Printf("Complaint %d is now %q.\n", id, status)

	case "undelivered":
		rows, err := repo.ListUndelivered(ctx)
		if err != nil {
			log.Fatalf("Error listing undelivered messages: %v", err)
		}
		if len(rows) == 0 {
			fmt.Println("The undelivered queue is empty.")
			return
		}
		for _, row := range rows {
			fmt.Printf("message %d -> complaint %d (chat %d): %q, %d attachment(s)\n",
				row.ID, row.ComplaintID, row.ChatID, row.Text, len(row.Attachments))
		}

	case "requeue":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin requeue <message_id>")
			os.Exit(1)
		}
		id := parseID(os.Args[2])
		if err := repo.RequeueMessage(ctx, id); err != nil {
			log.Fatalf("Error requeueing message: %v", err)
		}
		fmt.Printf("Message %d will be delivered on the next relay cycle.\n", id)

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func parseID(s string) uint {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		fmt.Printf("Invalid id %q. Please provide an integer.\n", s)
		os.Exit(1)
	}
	return uint(id)
}
