package config

import (
	"github.com/m-mizutani/satchel/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Client holds download client configuration
type Client struct {
	URL    string
	Output string
}

// Flags returns CLI flags for client configuration
func (c *Client) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "Download endpoint URL",
			Value:       "http://localhost:8080" + types.DefaultEndpoint,
			Destination: &c.URL,
			Sources:     cli.EnvVars("SATCHEL_URL"),
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Directory the download is saved into",
			Value:       ".",
			Destination: &c.Output,
			Sources:     cli.EnvVars("SATCHEL_OUTPUT"),
		},
	}
}
