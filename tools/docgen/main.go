// Command docgen renders the kompara CLI reference from the cobra command
// tree, as markdown pages or man pages.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/kompara/cmd/kompara/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated pages")
	format := flag.String("format", "markdown", "page format: markdown or man")
	flag.Parse()

	if err := os.MkdirAll(*output, 0o750); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	var err error
	switch *format {
	case "markdown":
		err = doc.GenMarkdownTree(root, *output)
	case "man":
		err = doc.GenManTree(root, &doc.GenManHeader{
			Title:   "KOMPARA",
			Section: "1",
			Source:  "kompara " + cmd.Version,
			Manual:  "Kompara Manual",
		}, *output)
	default:
		log.Fatalf("unknown format %q (want markdown or man)", *format)
	}
	if err != nil {
		log.Fatalf("generating %s docs: %v", *format, err)
	}

	fmt.Printf("CLI %s docs generated in %s/\n", *format, *output)
}
