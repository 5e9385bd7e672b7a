package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/config"
	"github.com/garyjia/partner-review/internal/domain/entity"
	infraLark "github.com/garyjia/partner-review/internal/infrastructure/external/lark"
)

// Sends one text message and one card per notification category to a Lark
// user, outside the running service, to check app credentials and card
// rendering.
func main() {
	configPath := flag.String("config", "", "optional YAML config file; credentials may come from LARK_APP_ID/LARK_APP_SECRET")
	formID := flag.Int64("form", 1, "form id shown on the sample cards")
	flag.Parse()

	fmt.Println("=== Lark IM Notification Test ===")
	fmt.Println()

	if flag.NArg() != 1 || !strings.HasPrefix(flag.Arg(0), "ou_") {
		log.Fatal("Usage: test-notification [-config path] [-form id] <open_id>")
	}
	openID := flag.Arg(0)

	cfg, err := config.Read(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" {
		log.Fatal("LARK_APP_ID and LARK_APP_SECRET must be set")
	}
	fmt.Printf("App ID: %s\n", mask(cfg.Lark.AppID))

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
		BaseURL:   cfg.Lark.BaseURL,
	}, logger)
	messenger := infraLark.NewMessenger(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("\n[Step 1] Sending simple text message...")
	if err := messenger.SendMessage(ctx, openID, "Test message from the partner review service"); err != nil {
		fmt.Printf("✗ Failed to send text message: %v\n", err)
	} else {
		fmt.Println("✓ Text message sent")
	}

	samples := []entity.Message{
		{Title: "Review needed", Message: "Onboard request \"Acme\" is waiting for your approval.", Category: entity.CategoryInfo},
		{Title: "Request approved", Message: "Your onboard request \"Acme\" was approved.", Category: entity.CategorySuccess},
		{Title: "Request denied", Message: "Your onboard request \"Acme\" was denied: missing tax documents.", Category: entity.CategoryWarning},
	}

	for i, msg := range samples {
		msg.FormID = *formID
		fmt.Printf("\n[Step %d] Sending %s card...\n", i+2, msg.Category)
		if err := messenger.SendCardMessage(ctx, openID, infraLark.NotificationCard(msg)); err != nil {
			fmt.Printf("✗ Failed to send card: %v\n", err)
			continue
		}
		fmt.Println("✓ Card sent")
	}

	fmt.Println("\n=== Test Complete ===")
}

func mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
