// Command oxy-viewer displays glTF/GLB models and browses a catalog of scenes.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
