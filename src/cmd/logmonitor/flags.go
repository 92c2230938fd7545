// FILE: logmonitor/src/cmd/logmonitor/flags.go
package main

import "strings"

// extractConfigFlag removes -c/--config from args. Everything else is left
// for the config loader, which takes --section.key=value overrides.
func extractConfigFlag(args []string) (string, []string) {
	var path string
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-c" || arg == "--config" || arg == "-config":
			if i+1 < len(args) {
				path = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-c="):
			path = strings.TrimPrefix(arg, "-c=")
		case arg == "-q":
			rest = append(rest, "--quiet=true")
		default:
			rest = append(rest, arg)
		}
	}
	return path, rest
}
