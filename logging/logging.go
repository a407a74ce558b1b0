package logging

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Setup installs the global apex handler for the given level and format
func Setup(w io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	switch format {
	case "json":
		log.SetHandler(json.New(w))
	case "text", "":
		log.SetHandler(text.New(w))
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	log.SetLevel(lvl)
	return nil
}
