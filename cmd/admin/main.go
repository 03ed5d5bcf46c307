// Command admin prints a token carrying the admin role, signed with JWT_SECRET.
package main

import (
	"fmt"
	"os"

	"empires-server/internal/auth"
	"empires-server/internal/shared/config"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	issuer, err := auth.NewTokenIssuer(config.GlobalConfig.Auth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create token issuer: %v\n", err)
		os.Exit(1)
	}

	token, err := issuer.Generate(0, "admin", auth.RoleAdmin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate admin token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
