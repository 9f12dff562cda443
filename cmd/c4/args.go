package main

import "strings"

// wildcardSuffixes are shell-style "everything in this directory" endings
// that name the directory itself.
var wildcardSuffixes = []string{"/*.*", `\*.*`, "/*", `\*`}

// stripWildcard turns "dir/*" and friends into "dir".
func stripWildcard(path string) string {
	for _, suffix := range wildcardSuffixes {
		if strings.HasSuffix(path, suffix) {
			stripped := strings.TrimSuffix(path, suffix)
			if stripped == "" {
				return path[:1]
			}
			return stripped
		}
	}
	return path
}

// parseCopyArgs splits the positional arguments of cp into the source and its
// destinations. Accepted shapes are "<src> <dst>" and "<src> -t <dst>...".
func parseCopyArgs(args []string) (string, []string, error) {
	switch {
	case len(args) == 2 && args[1] != "-t":
		return stripWildcard(args[0]), []string{args[1]}, nil
	case len(args) > 2 && args[1] == "-t":
		return stripWildcard(args[0]), args[2:], nil
	case len(args) < 2:
		return "", nil, usageError{msg: "source and destination are required"}
	default:
		return "", nil, usageError{msg: "use -t before a list of destinations"}
	}
}
