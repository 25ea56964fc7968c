package main

import (
	"github.com/danmuck/exireq/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) runEncode(cmd *cobra.Command, _ []string) error {
	cfg, err := a.resolve(cmd)
	if err != nil {
		return err
	}
	in, closeIn, err := a.openInput()
	if err != nil {
		return err
	}
	defer closeIn()

	res, err := pipeline.Run(in, a.stdout, pipeline.Options{Config: cfg, Logger: a.logger})
	if err != nil {
		return err
	}
	a.logger.Debug().Msgf("exireq.encode run_id=%s bytes=%d", res.RunID, res.Bytes)
	return nil
}
