package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"festivalhub/internal/apperr"
	"festivalhub/internal/identity"
	"festivalhub/internal/models"
)

type demoAccount struct {
	Username string
	FullName string
	Role     models.Role
}

var demoAccounts = []demoAccount{
	{Username: "demo-organizer", FullName: "Demo Organizer", Role: models.RoleOrganizer},
	{Username: "demo-artist", FullName: "Demo Artist", Role: models.RoleArtist},
	{Username: "demo-bandmate", FullName: "Demo Bandmate", Role: models.RoleArtist},
	{Username: "demo-staff", FullName: "Demo Staff", Role: models.RoleStaff},
	{Username: "demo-visitor", FullName: "Demo Visitor", Role: models.RoleVisitor},
}

// bootstrapDemoData signs up one account per role. Existing accounts are left alone.
func bootstrapDemoData(ctx context.Context, accounts identity.Service) error {
	for _, a := range demoAccounts {
		_, err := accounts.Signup(ctx, identity.SignupInput{
			Username: a.Username,
			Password: "demo123",
			FullName: a.FullName,
			Roles:    []string{string(a.Role)},
		})
		switch {
		case err == nil:
			log.Info().Str("username", a.Username).Str("role", string(a.Role)).Msg("seeded demo account")
		case apperr.KindOf(err) == apperr.KindConflict:
		default:
			return fmt.Errorf("bootstrap demo account %s: %w", a.Username, err)
		}
	}
	return nil
}
