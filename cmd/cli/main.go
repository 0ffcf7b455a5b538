package main

import (
	"fmt"
	"os"

	"github.com/packrat-app/packrat/cmd/cli/assets"
	"github.com/packrat-app/packrat/cmd/cli/auth"
	"github.com/packrat-app/packrat/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	assets.InitAssets(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
