package banner

import (
	"fmt"

	"convosync/pkg/config"
)

const banner = `
 ██████╗ ██████╗ ███╗   ██╗██╗   ██╗ ██████╗ ███████╗██╗   ██╗███╗   ██╗ ██████╗
██╔════╝██╔═══██╗████╗  ██║██║   ██║██╔═══██╗██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝
██║     ██║   ██║██╔██╗ ██║██║   ██║██║   ██║███████╗ ╚████╔╝ ██╔██╗ ██║██║
██║     ██║   ██║██║╚██╗██║╚██╗ ██╔╝██║   ██║╚════██║  ╚██╔╝  ██║╚██╗██║██║
╚██████╗╚██████╔╝██║ ╚████║ ╚████╔╝ ╚██████╔╝███████║   ██║   ██║ ╚████║╚██████╗
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝  ╚═══╝   ╚═════╝ ╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝
`

// Print shows startup configuration with quick production checks.
func Print(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/conversations/{id}/messages?limit=<n>&cursor=<id>")
	fmt.Println("POST /v1/conversations/{id}/messages  {content, messageType?}")
	fmt.Println("POST /v1/conversations/{id}/read")

	fmt.Println("\n== Production? ================================================")
	tokens := 0
	if eff.Config != nil {
		tokens = len(eff.Config.Security.Tokens)
	}
	if tokens > 0 {
		fmt.Printf("- Bearer tokens: OK (%d)\n", tokens)
	} else {
		fmt.Println("- Bearer tokens: MISSING (all API calls will be rejected)")
	}
	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}
	if eff.Config != nil && eff.Config.Retention.Enabled {
		fmt.Printf("- Retention: enabled (cron=%s)\n", eff.Config.Retention.Cron)
	} else {
		fmt.Println("- Retention: disabled")
	}

	fmt.Println("\n== Logs: ======================================================")
}
