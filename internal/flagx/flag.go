// Package flagx helps several flag sets share one command line: each
// component extracts only the flags it owns before parsing.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// Flags listed in boolFlags never consume the following token, matching
// the flag package where "-m false" is not a valid way to clear a bool
// (use "-m=false").
func FilterArgs(args []string, allowedFlags []string, boolFlags ...string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}
	bools := make(map[string]struct{}, len(boolFlags))
	for _, f := range boolFlags {
		bools[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)

		if _, isBool := bools[arg]; isBool {
			continue
		}
		// the next token is the value unless it looks like another flag
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags extracts the config file path given via -c or -config.
// If neither is present, an empty string is returned.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
