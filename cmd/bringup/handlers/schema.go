package handlers

import (
	"fmt"

	"github.com/imamik/bringup/internal/config"
)

// Schema prints the JSON schema of the configuration file.
func Schema() error {
	data, err := config.Schema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}
