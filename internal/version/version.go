package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/pterm/pterm"
)

var (
	Name        = "nrtf"
	Description = "Network Resilience Testing Framework"
	Version     = "v0.1.0"
	Commit      = "none"
	Date        = "nowish"
)

const GithubHomeUri = "https://github.com/Gh05t666nero/nrtf"

// PrintBanner writes the startup banner for a service binary.
func PrintBanner(service string, extendedInfo bool, vlog *log.Logger) {
	var b strings.Builder

	b.WriteString(pterm.FgLightCyan.Sprint(`
╔══════════════════════════════════════════════╗
│  ███╗   ██╗██████╗ ████████╗███████╗         │
│  ████╗  ██║██╔══██╗╚══██╔══╝██╔════╝         │
│  ██╔██╗ ██║██████╔╝   ██║   █████╗           │
│  ██║╚██╗██║██╔══██╗   ██║   ██╔══╝           │
│  ██║ ╚████║██║  ██║   ██║   ██║              │
│  ╚═╝  ╚═══╝╚═╝  ╚═╝   ╚═╝   ╚═╝              │
╚══════════════════════════════════════════════╝`))
	b.WriteString("\n ")
	b.WriteString(pterm.FgGray.Sprint(Description))
	b.WriteString("\n ")
	b.WriteString(pterm.FgLightYellow.Sprint(service))
	b.WriteString(pterm.FgGray.Sprint(" · "))
	b.WriteString(pterm.FgLightGreen.Sprint(Version))
	b.WriteString(pterm.FgGray.Sprint(" · ", GithubHomeUri))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s", Date))
	}

	vlog.Println(b.String())
}
