package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ashutoshrp06/agentflow/internal/ui"
)

var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	styles := ui.DefaultStyles()
	label := styles.StatusText
	value := styles.Label.UnsetBold()

	fmt.Println(styles.BannerTitle.Render("agentflow"))
	fmt.Println()
	fmt.Printf("%s %s\n", label.Render("Version:"), value.Render(Version))
	fmt.Printf("%s %s\n", label.Render("Git Commit:"), value.Render(GitCommit))
	fmt.Printf("%s %s\n", label.Render("Build Date:"), value.Render(BuildDate))
	fmt.Printf("%s %s\n", label.Render("Go Version:"), value.Render(runtime.Version()))
	fmt.Printf("%s %s/%s\n", label.Render("Platform:"), value.Render(runtime.GOOS), value.Render(runtime.GOARCH))
}
