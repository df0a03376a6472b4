package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/cli/config"
	"github.com/m-mizutani/satchel/pkg/domain/model"
	"github.com/m-mizutani/satchel/pkg/infra/downloader"
	"github.com/m-mizutani/satchel/pkg/infra/fs"
	"github.com/urfave/cli/v3"
)

// reportingSaver prints every saved path so the command can tell success from
// a download that was only logged as failed
type reportingSaver struct {
	downloader.Saver
	w     io.Writer
	saved []string
}

func (s *reportingSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	path, err := s.Saver.Save(ctx, name, data)
	if err != nil {
		return "", err
	}
	s.saved = append(s.saved, path)

	fmt.Fprintf(s.w, "%s %s %s\n",
		color.GreenString("saved"),
		color.New(color.Bold).Sprint(path),
		color.HiBlackString("(%d bytes)", len(data)),
	)
	return path, nil
}

func cmdDownload() *cli.Command {
	var clientCfg config.Client

	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"d"},
		Usage:     "Download files or directories sharing one parent as a single artifact",
		ArgsUsage: "URI [URI...]",
		Flags:     clientCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args().Slice()
			if len(args) == 0 {
				return goerr.New("at least one URI is required")
			}

			uris := make([]*model.URI, 0, len(args))
			for _, arg := range args {
				uri, err := model.ParseURI(arg)
				if err != nil {
					return err
				}
				uris = append(uris, uri)
			}

			saver := &reportingSaver{
				Saver: downloader.NewDirSaver(clientCfg.Output),
				w:     os.Stdout,
			}
			client, err := downloader.New(clientCfg.URL, fs.NewLocal(), downloader.WithSaver(saver))
			if err != nil {
				return err
			}

			client.Download(ctx, uris)
			if len(saver.saved) == 0 {
				fmt.Fprintln(os.Stderr, color.RedString("download failed"))
				return goerr.New("nothing was downloaded", goerr.V("uris", args))
			}
			return nil
		},
	}
}
