package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/config"
	"github.com/garyjia/partner-review/internal/container"
	"github.com/garyjia/partner-review/internal/domain/entity"
)

// Issues an admin bearer token, optionally creating the admin first. Used to
// bootstrap the first FULL admin and for local testing.
//
//	admin-token -id 3
//	admin-token -create -name "Ops" -email ops@example.com -role FULL
//	admin-token -create -name "Cora" -email cora@example.com -role COORDINATOR -regions G:SBU1,H
func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		adminID    = flag.Int64("id", 0, "existing admin id to issue a token for")
		create     = flag.Bool("create", false, "create the admin before issuing")
		name       = flag.String("name", "", "admin name (with -create)")
		email      = flag.String("email", "", "admin email (with -create)")
		role       = flag.String("role", "", "COORDINATOR, MANAGER, SENIOR_MANAGER, GOVERNANCE or FULL (with -create)")
		regions    = flag.String("regions", "", "comma separated REGION or REGION:SBU assignments (with -create)")
		larkOpenID = flag.String("lark", "", "Lark open_id for push notifications (with -create)")
	)
	flag.Parse()

	if err := run(*configPath, *adminID, *create, *name, *email, *role, *regions, *larkOpenID); err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, adminID int64, create bool, name, email, role, regions, larkOpenID string) error {
	if !create && adminID <= 0 {
		return fmt.Errorf("either -id or -create is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Never push or stream from a command line tool
	cc := cfg.ToContainerConfig()
	cc.Lark.Enabled = false
	cc.Kafka.Enabled = false
	cc.MetricsEnabled = false

	c, err := container.NewContainer(cc, zap.NewNop())
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	directory := c.Services().Directory

	var admin *entity.Admin
	if create {
		scopes, err := parseRegions(regions)
		if err != nil {
			return err
		}
		admin = &entity.Admin{
			Name:       name,
			Email:      email,
			LarkOpenID: larkOpenID,
			Role:       entity.Role(role),
			Regions:    scopes,
		}
		if err := directory.CreateAdmin(ctx, admin); err != nil {
			return err
		}
		fmt.Printf("Created admin #%d (%s, %s)\n", admin.ID, admin.Name, admin.Role)
	} else {
		admin, err = directory.GetAdmin(ctx, adminID)
		if err != nil {
			return err
		}
		if admin == nil {
			return fmt.Errorf("admin %d not found", adminID)
		}
	}

	token, expires, err := c.Tokens().Issue(admin.ID, string(admin.Role))
	if err != nil {
		return err
	}

	fmt.Printf("Token for admin #%d, expires %s:\n%s\n", admin.ID, expires.Format("2006-01-02 15:04 MST"), token)
	return nil
}

// parseRegions reads "G:SBU1,H" as two scopes. Codes are validated when the
// admin is created.
func parseRegions(s string) ([]entity.RegionScope, error) {
	var scopes []entity.RegionScope
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		region, sbu, _ := strings.Cut(part, ":")
		if region == "" {
			return nil, fmt.Errorf("region missing in %q", part)
		}
		scopes = append(scopes, entity.RegionScope{RegionCode: region, SBUCode: sbu})
	}
	return scopes, nil
}
