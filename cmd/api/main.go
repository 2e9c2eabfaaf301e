package main

import (
	"os"

	"github.com/linskybing/zeera/cmd"
)

// @title Zeera API
// @version 1.0
// @description Issue tracking backend: projects, members, issues, comments and history.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
