package utils

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// AskForConfirmationDefaultYes prompts on stdin; empty input counts as
// yes.
func AskForConfirmationDefaultYes(s string) bool {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("%s [Y/n]: ", s)

	response, err := reader.ReadString('\n')
	if err != nil {
		log.Fatal(err)
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes", "":
		return true
	default:
		return false
	}
}

// DumpOption writes opt as YAML to outputPath, creating the parent
// directory if needed. Unless overwrite is set, an existing file
// prompts for confirmation first.
func DumpOption(opt interface{}, outputPath string, overwrite bool) error {
	buffer, err := yaml.Marshal(opt)
	if err != nil {
		return err
	}

	parentPath := path.Dir(outputPath)
	if _, err := os.Stat(parentPath); os.IsNotExist(err) {
		if err := os.MkdirAll(parentPath, 0700); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", parentPath, err)
		}
	}

	if !overwrite {
		if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
			if !AskForConfirmationDefaultYes("configuration " + outputPath + " already exist, overwrite?") {
				log.Infoln("abort")
				return nil
			}
		}
	}

	log.Infoln("writing default configuration to", outputPath)
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", outputPath, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	if _, err := w.Write(buffer); err != nil {
		return fmt.Errorf("cannot write configuration: %w", err)
	}
	return w.Flush()
}
